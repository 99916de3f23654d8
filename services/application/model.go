package application

import "time"

// Application is a tenant-registered workload identity. Each active row
// occupies one slot of the tenant's app quota; deactivated rows are kept for
// history but hold no slot.
type Application struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	TenantID     string     `gorm:"index:idx_applications_tenant_name,unique" json:"tenant_id"`
	Name         string     `gorm:"index:idx_applications_tenant_name,unique" json:"name"`
	Description  string     `json:"description,omitempty"`
	Version      string     `json:"version,omitempty"`
	WebhookURL   string     `json:"webhook_url,omitempty"`
	APIKey       string     `gorm:"uniqueIndex" json:"api_key"`
	IsActive     bool       `json:"is_active"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}
