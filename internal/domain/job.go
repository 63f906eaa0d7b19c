package domain

import "time"

// Job statuses. No transition ordering is enforced.
const (
	StatusAssigned   = "assigned"
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusPending    = "pending"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is in the status set.
func ValidStatus(s string) bool {
	switch s {
	case StatusAssigned, StatusStarted, StatusInProgress, StatusCompleted, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// Priorities
const (
	PriorityUrgent = "urgent"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// ValidPriority reports whether p is in the priority set.
func ValidPriority(p string) bool {
	return p == PriorityUrgent || p == PriorityNormal || p == PriorityLow
}

// History actions
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDelegated = "delegated"
)

// Location geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FormData answers keyed by form field id.
type FormData map[string]any

// Job work order (jobs table).
type Job struct {
	JobID       string          `json:"job_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	FormID      *string         `json:"form_id"`
	FormTitle   string          `json:"form_title"`
	AssignedTo  *string         `json:"assigned_to"`
	AssignedBy  *string         `json:"assigned_by"`
	UnitID      *string         `json:"unit_id"`
	Address     string          `json:"address"`
	Location    *Location       `json:"location"`
	Priority    string          `json:"priority"`
	JobType     string          `json:"job_type"`
	Status      string          `json:"status"`
	FormData    FormData        `json:"form_data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	UpdatedBy   *string         `json:"updated_by"`
	History     []*HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry immutable audit record appended on every job mutation.
type HistoryEntry struct {
	HistoryID   string    `json:"history_id"`
	JobID       string    `json:"job_id"`
	Action      string    `json:"action"`
	UserID      *string   `json:"user_id"`
	Description string    `json:"description"`
	FormData    FormData  `json:"form_data"`
	CreatedAt   time.Time `json:"created_at"`
}
