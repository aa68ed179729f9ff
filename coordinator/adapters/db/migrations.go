package db

import (
	_ "embed"
	"fmt"
)

//go:embed migrations/01_create_users.up.sql
var createUsersUp string

//go:embed migrations/02_create_tasks.up.sql
var createTasksUp string

//go:embed migrations/03_create_task_participants.up.sql
var createTaskParticipantsUp string

//go:embed migrations/04_create_task_events.up.sql
var createTaskEventsUp string

//go:embed migrations/05_create_notifications.up.sql
var createNotificationsUp string

// Migrate applies the coordinator schema.
func (db *DB) Migrate() error {
	db.log.Debug("running coordinator migrations")

	steps := []struct {
		name string
		sql  string
	}{
		{"users", createUsersUp},
		{"tasks", createTasksUp},
		{"task_participants", createTaskParticipantsUp},
		{"task_events", createTaskEventsUp},
		{"notifications", createNotificationsUp},
	}
	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("apply %s migration: %w", step.name, err)
		}
	}

	db.log.Debug("coordinator migrations finished")
	return nil
}
