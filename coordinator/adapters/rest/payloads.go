package rest

import "github.com/hemprojects/transport/coordinator/core"

type CreateTaskIn struct {
	TaskType      string           `json:"task_type,omitempty"`
	Description   string           `json:"description"`
	Material      string           `json:"material,omitempty"`
	LocationFrom  string           `json:"location_from,omitempty"`
	LocationTo    string           `json:"location_to,omitempty"`
	Department    string           `json:"department,omitempty"`
	ScheduledDate string           `json:"scheduled_date"`
	ScheduledTime string           `json:"scheduled_time,omitempty"`
	Priority      string           `json:"priority,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	AssignedTo    *int64           `json:"assigned_to,omitempty"`
	Containers    []core.Container `json:"containers,omitempty"`
	ActorID       int64            `json:"actorId"`
}

type UpdateTaskIn struct {
	CreateTaskIn
}

type ChangeStatusIn struct {
	Status  string `json:"status"`
	ActorID int64  `json:"actorId"`
}

type JoinTaskIn struct {
	ActorID int64 `json:"actorId"`
}

type CreateLogIn struct {
	ActorID      int64  `json:"actorId"`
	LogType      string `json:"logType"`
	Message      string `json:"message,omitempty"`
	DelayReason  string `json:"delayReason,omitempty"`
	DelayMinutes int    `json:"delayMinutes,omitempty"`
}

type ReorderTasksIn struct {
	Tasks   []int64 `json:"tasks"`
	Reason  string  `json:"reason,omitempty"`
	ActorID int64   `json:"actorId"`
}

type StatusOut struct {
	Success      bool     `json:"success"`
	Partial      bool     `json:"partial,omitempty"`
	Message      string   `json:"message,omitempty"`
	StillWorking []string `json:"still_working,omitempty"`
}

type SuccessOut struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id,omitempty"`
}
