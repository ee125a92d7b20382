package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"image"
	imagedraw "image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"image/color"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

const avatarMaxDim = 512

// ProfileFlow handles customer profile reads and updates
type ProfileFlow interface {
	GetProfile(ctx context.Context, customerID uint) (*dto.GetProfileResponse, error)
	UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.GetProfileResponse, error)
	UploadAvatar(ctx context.Context, customerID uint, data []byte, metadata *ClientMetadata) (*dto.GetProfileResponse, error)
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditLogRepository
	avatarDir    string
	db           *gorm.DB
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(customerRepo repository.CustomerRepository, auditRepo repository.AuditLogRepository, avatarDir string, db *gorm.DB) ProfileFlow {
	return &ProfileFlowImpl{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		avatarDir:    avatarDir,
		db:           db,
	}
}

// GetProfile returns the customer's own profile
func (f *ProfileFlowImpl) GetProfile(ctx context.Context, customerID uint) (*dto.GetProfileResponse, error) {
	customer, err := getCustomer(ctx, f.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	return &dto.GetProfileResponse{Profile: mapCustomerToProfileDTO(customer)}, nil
}

// UpdateProfile changes the customer's display fields
func (f *ProfileFlowImpl) UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.GetProfileResponse, error) {
	var customer *models.Customer

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		customer, err = getCustomer(txCtx, f.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		if req.FirstName != nil && strings.TrimSpace(*req.FirstName) != "" {
			customer.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil && strings.TrimSpace(*req.LastName) != "" {
			customer.LastName = strings.TrimSpace(*req.LastName)
		}

		return f.customerRepo.Update(txCtx, customer)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Profile update failed: %s", err.Error())
		_ = f.createAuditLog(ctx, req.CustomerID, models.AuditActionProfileUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
	}

	msg := fmt.Sprintf("Profile updated: %d", customer.ID)
	_ = f.createAuditLog(ctx, req.CustomerID, models.AuditActionProfileUpdated, msg, true, nil, metadata)

	return &dto.GetProfileResponse{Profile: mapCustomerToProfileDTO(customer)}, nil
}

// UploadAvatar decodes the uploaded image, scales it down and stores it as
// PNG. The stored path replaces any previous avatar.
func (f *ProfileFlowImpl) UploadAvatar(ctx context.Context, customerID uint, data []byte, metadata *ClientMetadata) (*dto.GetProfileResponse, error) {
	customer, err := getCustomer(ctx, f.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, NewBusinessError("AVATAR_DECODE_FAILED", "Avatar image could not be decoded", err)
	}

	resized := resizeImage(src, avatarMaxDim)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, NewBusinessError("AVATAR_ENCODE_FAILED", "Avatar image could not be encoded", err)
	}

	if err := os.MkdirAll(f.avatarDir, 0o755); err != nil {
		return nil, NewBusinessError("AVATAR_STORE_FAILED", "Avatar image could not be stored", err)
	}

	fileName := fmt.Sprintf("avatar_%s.png", customer.UUID)
	fullPath := filepath.Join(f.avatarDir, fileName)
	if err := os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil {
		return nil, NewBusinessError("AVATAR_STORE_FAILED", "Avatar image could not be stored", err)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		customer.AvatarPath = &fileName
		return f.customerRepo.Update(txCtx, customer)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Avatar upload failed: %s", err.Error())
		_ = f.createAuditLog(ctx, customerID, models.AuditActionAvatarUploaded, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("AVATAR_UPLOAD_FAILED", "Avatar upload failed", err)
	}

	msg := fmt.Sprintf("Avatar uploaded: %d", customer.ID)
	_ = f.createAuditLog(ctx, customerID, models.AuditActionAvatarUploaded, msg, true, nil, metadata)

	return &dto.GetProfileResponse{Profile: mapCustomerToProfileDTO(customer)}, nil
}

// Private helper methods

func mapCustomerToProfileDTO(c *models.Customer) dto.ProfileDTO {
	return dto.ProfileDTO{
		ID:              c.ID,
		UUID:            c.UUID.String(),
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Email:           c.Email,
		AvatarPath:      c.AvatarPath,
		IsEmailVerified: c.IsEmailVerified,
		IsActive:        c.IsActive,
		IsManager:       c.IsManager,
		CreatedAt:       c.CreatedAt,
		LastLoginAt:     c.LastLoginAt,
	}
}

func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func (f *ProfileFlowImpl) createAuditLog(ctx context.Context, customerID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   &customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
