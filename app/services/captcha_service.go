// Package services provides external service integrations and technical concerns like mail delivery and tokens
package services

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"
)

// ErrCaptchaGeneration is returned when the rotator yields no usable data
var ErrCaptchaGeneration = errors.New("captcha generation returned no data")

// CaptchaService guards the signup endpoint with a rotate captcha. Generate
// hands out a challenge ID plus two base64 images; the client rotates the
// thumb and submits the angle with the signup request. Challenges live
// in memory with a TTL and are consumed on the first verification attempt,
// pass or fail.
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

// RotateChallenge is the client-facing half of a pending captcha
type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   *challengeStore
	padding int
}

// NewCaptchaServiceRotate builds the service. padding is the accepted angle
// deviation in degrees, sizePx the square image size.
func NewCaptchaServiceRotate(ttl time.Duration, padding int, sizePx int) (CaptchaService, error) {
	if sizePx <= 0 {
		sizePx = 300
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(sizePx),
	)
	builder.SetResources(
		rotate.WithImages([]image.Image{
			gradientBackground(sizePx),
			gradientBackground(sizePx),
			gradientBackground(sizePx),
		}),
	)

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   newChallengeStore(ttl),
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}
	block := captData.GetData()
	if block == nil {
		return nil, ErrCaptchaGeneration
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	s.store.put(id, block.Angle)

	return &RotateChallenge{
		ID:                id,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	angle, ok := s.store.take(challengeID)
	if !ok {
		return false
	}
	return rotate.Validate(int(math.Round(userAngle)), angle, s.padding)
}

// challengeStore holds pending target angles keyed by challenge ID. Entries
// expire after ttl and are removed by take or by the sweep loop.
type challengeStore struct {
	mu      sync.Mutex
	entries map[string]pendingChallenge
	ttl     time.Duration
}

type pendingChallenge struct {
	angle     int
	expiresAt time.Time
}

func newChallengeStore(ttl time.Duration) *challengeStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	cs := &challengeStore{
		entries: make(map[string]pendingChallenge),
		ttl:     ttl,
	}
	go cs.sweep()
	return cs
}

func (cs *challengeStore) put(id string, angle int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.entries[id] = pendingChallenge{angle: angle, expiresAt: time.Now().Add(cs.ttl)}
}

// take removes and returns the target angle; a challenge is single-use
func (cs *challengeStore) take(id string) (int, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	entry, ok := cs.entries[id]
	if !ok {
		return 0, false
	}
	delete(cs.entries, id)
	if time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.angle, true
}

func (cs *challengeStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		cs.mu.Lock()
		for id, entry := range cs.entries {
			if now.After(entry.expiresAt) {
				delete(cs.entries, id)
			}
		}
		cs.mu.Unlock()
	}
}

// gradientBackground renders a diagonal gradient with light noise so the
// rotator has non-uniform source material to cut the thumb from.
func gradientBackground(size int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(2*size)
			base := uint8(220 - int(140*t))
			noise := uint8(rand.Intn(24))
			rgba.Set(x, y, color.RGBA{R: base, G: base - noise/2, B: 255 - base/3, A: 255})
		}
	}
	band := image.Rect(size/8, size/3, size-size/8, size/3+size/10)
	draw.Draw(rgba, band, &image.Uniform{C: color.RGBA{R: 255, G: 255, B: 255, A: 28}}, image.Point{}, draw.Over)
	return rgba
}
