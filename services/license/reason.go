package license

// Rejection reasons for the validation path. Quota reasons live in
// services/quota.
const (
	ReasonInvalidSignature   = "INVALID_SIGNATURE"
	ReasonUnknownLicense     = "UNKNOWN_LICENSE"
	ReasonNotActive          = "LICENSE_NOT_ACTIVE"
	ReasonExpiredOrNotYetValid = "LICENSE_EXPIRED_OR_NOT_YET_VALID"
)
