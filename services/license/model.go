package license

import "time"

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusExpired   Status = "EXPIRED"
	StatusRevoked   Status = "REVOKED"
)

// License is the per-tenant licensing record. The quota gates never read it
// directly; the validator re-fetches it on every admission so suspensions and
// revocations apply immediately.
type License struct {
	ID                  string     `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updated_at"`
	TenantID            string     `gorm:"column:tenant_id;uniqueIndex" json:"tenant_id"`
	TenantName          string     `gorm:"column:tenant_name" json:"tenant_name"`
	MaxApps             int64      `gorm:"column:max_apps" json:"max_apps"`
	MaxExecutionsPer24h int64      `gorm:"column:max_executions_per_24h" json:"max_executions_per_24h"`
	ValidFrom           time.Time  `gorm:"column:valid_from" json:"valid_from"`
	ValidTo             time.Time  `gorm:"column:valid_to" json:"valid_to"`
	Status              Status     `gorm:"column:status" json:"status"`
	RevokedAt           *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedBy           string     `gorm:"column:created_by" json:"created_by,omitempty"`
	ContactEmail        string     `gorm:"column:contact_email" json:"contact_email,omitempty"`
	ContactName         string     `gorm:"column:contact_name" json:"contact_name,omitempty"`
}

func (License) TableName() string { return "licenses" }

// IsValid reports whether the license admits requests at the given instant.
func (l *License) IsValid(now time.Time) bool {
	return l.Status == StatusActive &&
		!now.Before(l.ValidFrom) &&
		!now.After(l.ValidTo)
}

func (l *License) IsExpired(now time.Time) bool {
	return now.After(l.ValidTo)
}

// LicenseToken is an audit row for issued tokens. Verification is stateless;
// this table only tracks issuance and last use.
type LicenseToken struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	LicenseID  string     `gorm:"column:license_id;index" json:"license_id"`
	Token      string     `gorm:"column:token" json:"token"`
	IsActive   bool       `gorm:"column:is_active" json:"is_active"`
	ExpiresAt  time.Time  `gorm:"column:expires_at" json:"expires_at"`
	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
}

func (LicenseToken) TableName() string { return "license_tokens" }

// Validated is the ephemeral result of a successful validation: just what an
// admission decision needs. It is never persisted and never outlives one
// request.
type Validated struct {
	TenantID            string `json:"tenant_id"`
	MaxApps             int64  `json:"max_apps"`
	MaxExecutionsPer24h int64  `json:"max_executions_per_24h"`
}
