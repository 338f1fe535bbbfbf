package constants

// Default tenant used when auth is disabled (local development)
const DefaultTenantID = "default"

// Sample flow seeded on first start
const (
	SampleFlowID   = "sample-flow"
	SampleFlowName = "Main Line"
)

// Save retry policy defaults
const (
	DefaultRetryAttempts    = 3
	DefaultRetryBaseDelayMs = 100
)

// Cache and locking
const (
	CacheKeyPrefix     = "nexora:ivr:flow:"
	LockKeyPrefix      = "nexora:ivr:"
	DefaultCacheTTLSec = 300
	SaveLockTTLSec     = 10
)

// IVR domain event names
const (
	EventFlowSaved   = "ivr.flow.saved"
	EventFlowDeleted = "ivr.flow.deleted"
)
