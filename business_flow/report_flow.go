// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
)

// ReportFlow produces downloadable exports of campaign delivery history
type ReportFlow interface {
	ExportAttemptsXLSX(ctx context.Context, customerID, campaignID uint) (string, []byte, error)
}

// ReportFlowImpl implements the report business flow
type ReportFlowImpl struct {
	campaignRepo repository.CampaignRepository
	attemptRepo  repository.DeliveryAttemptRepository
	customerRepo repository.CustomerRepository
	authz        *Authorization
}

// NewReportFlow creates a new report flow instance
func NewReportFlow(
	campaignRepo repository.CampaignRepository,
	attemptRepo repository.DeliveryAttemptRepository,
	customerRepo repository.CustomerRepository,
) ReportFlow {
	return &ReportFlowImpl{
		campaignRepo: campaignRepo,
		attemptRepo:  attemptRepo,
		customerRepo: customerRepo,
		authz:        NewAuthorization(),
	}
}

// ExportAttemptsXLSX builds a workbook with every delivery attempt for the
// campaign, newest first. Returns the suggested file name and the bytes.
func (f *ReportFlowImpl) ExportAttemptsXLSX(ctx context.Context, customerID, campaignID uint) (string, []byte, error) {
	customer, err := getCustomer(ctx, f.customerRepo, customerID)
	if err != nil {
		return "", nil, err
	}

	campaign, err := f.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return "", nil, err
	}
	if campaign == nil {
		return "", nil, ErrCampaignNotFound
	}
	if !f.authz.CanView(customer, campaign.CustomerID) {
		return "", nil, ErrAccessDenied
	}

	filter := models.DeliveryAttemptFilter{CampaignID: &campaignID}
	attempts, err := f.attemptRepo.ByFilter(ctx, filter, "attempted_at DESC, id DESC", 0, 0)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "attempts"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "campaign_id", "recipient_id", "recipient_email", "dispatch_run_id", "status", "response", "attempted_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, attempt := range attempts {
		runID := ""
		if attempt.DispatchRunID != nil {
			runID = strconv.FormatUint(uint64(*attempt.DispatchRunID), 10)
		}

		record := []string{
			strconv.FormatUint(uint64(attempt.ID), 10),
			strconv.FormatUint(uint64(attempt.CampaignID), 10),
			strconv.FormatUint(uint64(attempt.RecipientID), 10),
			attempt.RecipientEmail,
			runID,
			attempt.Status.String(),
			attempt.Response,
			attempt.AttemptedAt.UTC().Format(time.RFC3339),
		}

		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("ATTEMPTS_EXPORT_FAILED", "Attempts export failed", err)
	}

	fileName := fmt.Sprintf("campaign_%d_attempts.xlsx", campaignID)
	return fileName, buf.Bytes(), nil
}
