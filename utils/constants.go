package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour

	// SignupVerificationExpiry is the time-to-live for signup verification tokens (24 hours)
	SignupVerificationExpiry = 24 * time.Hour

	// PasswordResetExpiry is the time-to-live for password reset tokens (30 minutes)
	PasswordResetExpiry = 30 * time.Minute
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Cache key formats. Keys are always assembled from these formats plus the
// configured prefix; no code path may delete keys by pattern.
const (
	// CampaignStatusCacheKeyFmt caches the derived status of one campaign
	CampaignStatusCacheKeyFmt = "campaign:%d:status"

	// CampaignAttemptsCacheKeyFmt caches the first page of a campaign's delivery attempts
	CampaignAttemptsCacheKeyFmt = "campaign:%d:attempts"

	// HomeStatsCacheKeyFmt caches the home summary per customer; customer id 0 is the global view
	HomeStatsCacheKeyFmt = "stats:home:%d"
)

// Cache staleness bounds
const (
	// MaxStatusCacheTTL bounds how stale a cached campaign status may be.
	// Callers of the cached resolver tolerate up to this window; the batch
	// sender never reads the cache.
	MaxStatusCacheTTL = 60 * time.Second
)

// Delivery attempt response texts
const (
	// DeliveredResponse is recorded when the transport returns no confirmation text of its own
	DeliveredResponse = "delivered"
)

// Pagination defaults
const (
	DefaultPageSize     = 20
	MaxPageSize         = 100
	AttemptsPreviewSize = 10
)
