package quota

// Rejection reasons surfaced to callers. Validation reasons live in
// services/license; these cover the quota and lock paths.
const (
	ReasonMaxAppsReached         = "MAX_APPS_REACHED"
	ReasonExecutionQuotaExceeded = "EXECUTION_QUOTA_EXCEEDED"
	ReasonLockTimeout            = "LOCK_TIMEOUT"
)

// Decision is the outcome of an admission check. Count is the new count when
// admitted and the current count when rejected, so callers can always show
// utilization.
type Decision struct {
	Admitted bool   `json:"admitted"`
	Count    int64  `json:"current_count"`
	Limit    int64  `json:"limit"`
	Reason   string `json:"reason,omitempty"`
}
