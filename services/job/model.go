package job

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether s ends a job's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job is a single quota-gated execution. The row is created only after the
// execution gate admits it, so every RUNNING or finished row corresponds to
// exactly one entry in the tenant's sliding window.
type Job struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	TenantID      string     `gorm:"index" json:"tenant_id"`
	AppID         string     `gorm:"index" json:"app_id"`
	Name          string     `json:"name"`
	Status        Status     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	ExecutionTime float64    `json:"execution_time,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
