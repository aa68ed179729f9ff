package core

import "time"

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusPaused     TaskStatus = "paused"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

type TaskType string

const (
	TypeTransport TaskType = "transport"
	TypeUnloading TaskType = "unloading"
	TypeLoading   TaskType = "loading"
	TypeOther     TaskType = "other"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParticipantState is a participant's individually reported progress on a
// shared task. It is written once at transition time and never inferred
// from event message text.
type ParticipantState string

const (
	ParticipantActive     ParticipantState = "active"
	ParticipantDonePart   ParticipantState = "done_part"
	ParticipantPausedPart ParticipantState = "paused_part"
)

// Container is a named sub-item of a task, optionally pre-assigned to a
// specific worker.
type Container struct {
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	WorkerID   int64  `json:"worker_id,omitempty"`
}

type Task struct {
	ID            int64       `db:"id" json:"id"`
	TaskType      TaskType    `db:"task_type" json:"task_type"`
	Description   string      `db:"description" json:"description"`
	Material      string      `db:"material" json:"material,omitempty"`
	LocationFrom  string      `db:"location_from" json:"location_from,omitempty"`
	LocationTo    string      `db:"location_to" json:"location_to,omitempty"`
	Department    string      `db:"department" json:"department,omitempty"`
	ScheduledDate string      `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime string      `db:"scheduled_time" json:"scheduled_time,omitempty"`
	Priority      Priority    `db:"priority" json:"priority"`
	SortOrder     int         `db:"sort_order" json:"sort_order"`
	Notes         string      `db:"notes" json:"notes,omitempty"`
	Status        TaskStatus  `db:"status" json:"status"`
	CreatedBy     int64       `db:"created_by" json:"created_by"`
	AssignedTo    *int64      `db:"assigned_to" json:"assigned_to,omitempty"`
	CarriedOver   bool        `db:"carried_over" json:"carried_over"`
	Containers    []Container `db:"-" json:"containers,omitempty"`
	StartedAt     *time.Time  `db:"started_at" json:"started_at,omitempty"`
	PausedAt      *time.Time  `db:"paused_at" json:"paused_at,omitempty"`
	CompletedAt   *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`

	// Denormalized for list/detail responses.
	AssignedName string        `db:"assigned_name" json:"assigned_name,omitempty"`
	CreatorName  string        `db:"creator_name" json:"creator_name,omitempty"`
	Participants []Participant `db:"-" json:"participants,omitempty"`
	Events       []TaskEvent   `db:"-" json:"events,omitempty"`

	// Caller-personal flags, filled only when a list query names a user.
	HasCompleted bool `db:"-" json:"has_completed,omitempty"`
	HasPaused    bool `db:"-" json:"has_paused,omitempty"`
}

type Participant struct {
	TaskID         int64            `db:"task_id" json:"task_id"`
	UserID         int64            `db:"user_id" json:"user_id"`
	UserName       string           `db:"user_name" json:"user_name,omitempty"`
	State          ParticipantState `db:"state" json:"state"`
	JoinedAt       time.Time        `db:"joined_at" json:"joined_at"`
	StateChangedAt *time.Time       `db:"state_changed_at" json:"state_changed_at,omitempty"`
}

type EventKind string

const (
	EventNote         EventKind = "note"
	EventDelay        EventKind = "delay"
	EventProblem      EventKind = "problem"
	EventStatusChange EventKind = "status_change"
)

// TaskEvent is an append-only log row. The event log is the ground truth
// the time-accounting engine reads; status fields on Task are a derived
// cache for fast filtering.
type TaskEvent struct {
	ID           int64     `db:"id" json:"id"`
	TaskID       int64     `db:"task_id" json:"task_id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	UserName     string    `db:"user_name" json:"user_name,omitempty"`
	Kind         EventKind `db:"log_type" json:"log_type"`
	Message      string    `db:"message" json:"message,omitempty"`
	DelayReason  string    `db:"delay_reason" json:"delay_reason,omitempty"`
	DelayMinutes int       `db:"delay_minutes" json:"delay_minutes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	TaskID    int64     `db:"task_id" json:"task_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Worker is the read-only slice of the user directory the coordinator
// needs: display names, role, activity flag and the configured shift
// window. User management itself lives elsewhere.
type Worker struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Role      string `db:"role" json:"role"`
	Active    bool   `db:"active" json:"active"`
	WorkStart string `db:"work_start" json:"work_start"` // "07:00"
	WorkEnd   string `db:"work_end" json:"work_end"`     // "15:00"
}

const (
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
	RoleAdmin      = "admin"
)

const (
	DefaultWorkStart = "07:00"
	DefaultWorkEnd   = "15:00"
)

func isValidStatus(st TaskStatus) bool {
	switch st {
	case StatusPending, StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func isValidTaskType(tt TaskType) bool {
	switch tt {
	case TypeTransport, TypeUnloading, TypeLoading, TypeOther:
		return true
	}
	return false
}

func isValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

func isValidEventKind(k EventKind) bool {
	switch k {
	case EventNote, EventDelay, EventProblem, EventStatusChange:
		return true
	}
	return false
}
