package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/hemprojects/transport/coordinator/core"
)

type DB struct {
	log  *slog.Logger
	conn *sqlx.DB
}

func New(log *slog.Logger, address string) (*DB, error) {
	conn, err := sqlx.Connect("pgx", address)
	if err != nil {
		log.Error("connection problem", "address", address, "error", err)
		return nil, err
	}
	return &DB{log: log, conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

const taskCols = `t.id, t.task_type, t.description, COALESCE(t.material, '') AS material,
	COALESCE(t.location_from, '') AS location_from, COALESCE(t.location_to, '') AS location_to,
	COALESCE(t.department, '') AS department, t.scheduled_date, COALESCE(t.scheduled_time, '') AS scheduled_time,
	t.priority, t.sort_order, COALESCE(t.notes, '') AS notes, t.status, t.created_by, t.assigned_to,
	t.carried_over, t.containers, t.started_at, t.paused_at, t.completed_at, t.created_at,
	COALESCE(u.name, '') AS assigned_name, COALESCE(c.name, '') AS creator_name`

const taskFrom = ` FROM tasks t
	LEFT JOIN users u ON t.assigned_to = u.id
	LEFT JOIN users c ON t.created_by = c.id`

// taskRow mirrors core.Task with containers still raw; JSONB does not
// scan into a slice of structs directly.
type taskRow struct {
	core.Task
	RawContainers []byte `db:"containers"`
}

func (r taskRow) toTask() (core.Task, error) {
	t := r.Task
	if len(r.RawContainers) > 0 {
		if err := json.Unmarshal(r.RawContainers, &t.Containers); err != nil {
			return core.Task{}, fmt.Errorf("decode containers: %w", err)
		}
	}
	return t, nil
}

func rowsToTasks(rows []taskRow) ([]core.Task, error) {
	out := make([]core.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTask()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Tasks

func (db *DB) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	var containers []byte
	if len(t.Containers) > 0 {
		var err error
		if containers, err = json.Marshal(t.Containers); err != nil {
			return core.Task{}, fmt.Errorf("encode containers: %w", err)
		}
	}

	const q = `
		INSERT INTO tasks (task_type, description, material, location_from, location_to, department,
			scheduled_date, scheduled_time, priority, sort_order, notes, status, created_by, assigned_to,
			containers, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			$7, NULLIF($8, ''), $9, $10, NULLIF($11, ''), $12, $13, $14, $15, $16)
		RETURNING id;
	`

	err := db.conn.QueryRowxContext(ctx, q,
		t.TaskType, t.Description, t.Material, t.LocationFrom, t.LocationTo, t.Department,
		t.ScheduledDate, t.ScheduledTime, t.Priority, t.SortOrder, t.Notes, t.Status,
		t.CreatedBy, t.AssignedTo, containers, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Task{}, core.ErrNotFound
		}
		if isCheckViolation(err) {
			return core.Task{}, core.ErrInvalidArgs
		}
		return core.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (db *DB) GetTask(ctx context.Context, id int64) (core.Task, error) {
	q := `SELECT ` + taskCols + taskFrom + ` WHERE t.id = $1`

	var row taskRow
	if err := db.conn.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, core.ErrNotFound
		}
		return core.Task{}, fmt.Errorf("get task: %w", err)
	}
	return row.toTask()
}

func (db *DB) ListTasks(ctx context.Context, f core.ListTasksFilter) ([]core.Task, error) {
	var (
		sb   strings.Builder
		args []any
		n    = 1
	)

	sb.WriteString(`SELECT ` + taskCols + taskFrom + ` WHERE 1=1`)

	if f.Date != "" {
		args = append(args, f.Date)
		sb.WriteString(fmt.Sprintf(" AND t.scheduled_date = $%d", n))
		n++
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		sb.WriteString(fmt.Sprintf(" AND t.status = $%d", n))
		n++
	}

	sb.WriteString(` ORDER BY
		CASE t.status WHEN 'in_progress' THEN 1 WHEN 'pending' THEN 2 WHEN 'paused' THEN 3 WHEN 'completed' THEN 4 ELSE 5 END,
		CASE t.priority WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
		t.sort_order ASC, t.scheduled_time ASC NULLS LAST`)

	var rows []taskRow
	if err := db.conn.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return rowsToTasks(rows)
}

func (db *DB) UpdateTask(ctx context.Context, t core.Task) (core.Task, error) {
	var containers []byte
	if len(t.Containers) > 0 {
		var err error
		if containers, err = json.Marshal(t.Containers); err != nil {
			return core.Task{}, fmt.Errorf("encode containers: %w", err)
		}
	}

	const q = `
		UPDATE tasks
		SET task_type = $2,
		    description = $3,
		    material = NULLIF($4, ''),
		    location_from = NULLIF($5, ''),
		    location_to = NULLIF($6, ''),
		    department = NULLIF($7, ''),
		    scheduled_date = $8,
		    scheduled_time = NULLIF($9, ''),
		    priority = $10,
		    notes = NULLIF($11, ''),
		    assigned_to = $12,
		    containers = $13
		WHERE id = $1
		RETURNING id;
	`

	var id int64
	err := db.conn.QueryRowxContext(ctx, q, t.ID, t.TaskType, t.Description, t.Material,
		t.LocationFrom, t.LocationTo, t.Department, t.ScheduledDate, t.ScheduledTime,
		t.Priority, t.Notes, t.AssignedTo, containers).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, core.ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return core.Task{}, core.ErrNotFound
		}
		if isCheckViolation(err) {
			return core.Task{}, core.ErrInvalidArgs
		}
		return core.Task{}, fmt.Errorf("update task: %w", err)
	}
	return db.GetTask(ctx, id)
}

func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	// Dependent rows cascade via foreign keys.
	const q = `DELETE FROM tasks WHERE id = $1`

	res, err := db.conn.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (db *DB) MaxSortOrder(ctx context.Context, date string) (int, error) {
	const q = `SELECT COALESCE(MAX(sort_order), 0) FROM tasks WHERE scheduled_date = $1`

	var max int
	if err := db.conn.GetContext(ctx, &max, q, date); err != nil {
		return 0, fmt.Errorf("max sort order: %w", err)
	}
	return max, nil
}

func (db *DB) SetSortOrder(ctx context.Context, id int64, order int) error {
	const q = `UPDATE tasks SET sort_order = $2 WHERE id = $1`

	res, err := db.conn.ExecContext(ctx, q, id, order)
	if err != nil {
		return fmt.Errorf("set sort order: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (db *DB) ApplyStatus(ctx context.Context, id int64, u core.StatusUpdate) error {
	var (
		sb   strings.Builder
		args = []any{id, u.Status}
		n    = 3
	)
	sb.WriteString(`UPDATE tasks SET status = $2`)

	if u.StartedAt != nil {
		args = append(args, *u.StartedAt)
		sb.WriteString(fmt.Sprintf(", started_at = $%d", n))
		n++
	}
	if u.PausedAt != nil {
		args = append(args, *u.PausedAt)
		sb.WriteString(fmt.Sprintf(", paused_at = $%d", n))
		n++
	}
	if u.CompletedAt != nil {
		args = append(args, *u.CompletedAt)
		sb.WriteString(fmt.Sprintf(", completed_at = $%d", n))
		n++
	}
	if u.AssignTo != nil {
		args = append(args, *u.AssignTo)
		sb.WriteString(fmt.Sprintf(", assigned_to = $%d", n))
		n++
	}
	sb.WriteString(" WHERE id = $1")

	res, err := db.conn.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("apply status: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (db *DB) RescheduleTask(ctx context.Context, id int64, date string) error {
	const q = `
		UPDATE tasks
		SET scheduled_date = $2,
		    carried_over = TRUE,
		    sort_order = 0
		WHERE id = $1
	`

	res, err := db.conn.ExecContext(ctx, q, id, date)
	if err != nil {
		return fmt.Errorf("reschedule task: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Participants

func (db *DB) AddParticipant(ctx context.Context, taskID, userID int64, at time.Time) error {
	const q = `
		INSERT INTO task_participants (task_id, user_id, state, joined_at)
		VALUES ($1, $2, 'active', $3)
		ON CONFLICT (task_id, user_id) DO NOTHING;
	`

	if _, err := db.conn.ExecContext(ctx, q, taskID, userID, at); err != nil {
		if isForeignKeyViolation(err) {
			return core.ErrNotFound
		}
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (db *DB) Participants(ctx context.Context, taskID int64) ([]core.Participant, error) {
	const q = `
		SELECT tp.task_id, tp.user_id, COALESCE(u.name, '') AS user_name,
		       tp.state, tp.joined_at, tp.state_changed_at
		FROM task_participants tp
		LEFT JOIN users u ON tp.user_id = u.id
		WHERE tp.task_id = $1
		ORDER BY tp.joined_at ASC;
	`

	var out []core.Participant
	if err := db.conn.SelectContext(ctx, &out, q, taskID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

func (db *DB) SetParticipantState(ctx context.Context, taskID, userID int64, st core.ParticipantState, at time.Time) error {
	const q = `
		UPDATE task_participants
		SET state = $3, state_changed_at = $4
		WHERE task_id = $1 AND user_id = $2
	`

	res, err := db.conn.ExecContext(ctx, q, taskID, userID, st, at)
	if err != nil {
		return fmt.Errorf("set participant state: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Events

func (db *DB) AppendEvent(ctx context.Context, e core.TaskEvent) (core.TaskEvent, error) {
	const q = `
		INSERT INTO task_events (task_id, user_id, log_type, message, delay_reason, delay_minutes, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING id;
	`

	err := db.conn.QueryRowxContext(ctx, q, e.TaskID, e.UserID, e.Kind, e.Message,
		e.DelayReason, e.DelayMinutes, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.TaskEvent{}, core.ErrNotFound
		}
		if isCheckViolation(err) {
			return core.TaskEvent{}, core.ErrInvalidArgs
		}
		return core.TaskEvent{}, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

func (db *DB) ListEvents(ctx context.Context, taskID int64) ([]core.TaskEvent, error) {
	const q = `
		SELECT te.id, te.task_id, te.user_id, COALESCE(u.name, '') AS user_name, te.log_type,
		       COALESCE(te.message, '') AS message, COALESCE(te.delay_reason, '') AS delay_reason,
		       COALESCE(te.delay_minutes, 0) AS delay_minutes, te.created_at
		FROM task_events te
		LEFT JOIN users u ON te.user_id = u.id
		WHERE te.task_id = $1
		ORDER BY te.created_at DESC;
	`

	var out []core.TaskEvent
	if err := db.conn.SelectContext(ctx, &out, q, taskID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (db *DB) ClearStatusEvents(ctx context.Context, taskID, userID int64) error {
	const q = `DELETE FROM task_events WHERE task_id = $1 AND user_id = $2 AND log_type = 'status_change'`

	if _, err := db.conn.ExecContext(ctx, q, taskID, userID); err != nil {
		return fmt.Errorf("clear status events: %w", err)
	}
	return nil
}

// Notifications

func (db *DB) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	const q = `
		INSERT INTO notifications (user_id, task_id, type, title, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	err := db.conn.QueryRowxContext(ctx, q, n.UserID, n.TaskID, n.Type, n.Title, n.Message, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Notification{}, core.ErrNotFound
		}
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (db *DB) ListNotifications(ctx context.Context, userID int64, limit int) ([]core.Notification, int, error) {
	const q = `
		SELECT id, user_id, task_id, type, title, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`

	var out []core.Notification
	if err := db.conn.SelectContext(ctx, &out, q, userID, limit); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	const cq = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	var unread int
	if err := db.conn.GetContext(ctx, &unread, cq, userID); err != nil {
		return nil, 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return out, unread, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id int64) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE id = $1`

	res, err := db.conn.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1`

	if _, err := db.conn.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (db *DB) DeleteReadNotifications(ctx context.Context, userID int64) error {
	const q = `DELETE FROM notifications WHERE user_id = $1 AND is_read = TRUE`

	if _, err := db.conn.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("delete read notifications: %w", err)
	}
	return nil
}

// Workers

func (db *DB) GetWorker(ctx context.Context, id int64) (core.Worker, error) {
	const q = `
		SELECT id, name, role, active,
		       COALESCE(work_start, '') AS work_start, COALESCE(work_end, '') AS work_end
		FROM users WHERE id = $1;
	`

	var w core.Worker
	if err := db.conn.GetContext(ctx, &w, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Worker{}, core.ErrNotFound
		}
		return core.Worker{}, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

func (db *DB) ListWorkers(ctx context.Context, role string) ([]core.Worker, error) {
	const q = `
		SELECT id, name, role, active,
		       COALESCE(work_start, '') AS work_start, COALESCE(work_end, '') AS work_end
		FROM users
		WHERE role = $1 AND active = TRUE
		ORDER BY lower(name) ASC;
	`

	var out []core.Worker
	if err := db.conn.SelectContext(ctx, &out, q, role); err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return out, nil
}

// Reporting and rollover scans

func (db *DB) WorkerTasks(ctx context.Context, workerID int64, p core.Period) ([]core.Task, error) {
	q := `SELECT DISTINCT ` + taskCols + taskFrom + `
		LEFT JOIN task_participants tp ON t.id = tp.task_id
		WHERE (t.assigned_to = $1 OR tp.user_id = $1)
		AND t.scheduled_date >= $2 AND t.scheduled_date <= $3
		AND t.started_at IS NOT NULL
		ORDER BY t.started_at ASC`

	var rows []taskRow
	if err := db.conn.SelectContext(ctx, &rows, q, workerID, p.From, p.To); err != nil {
		return nil, fmt.Errorf("worker tasks: %w", err)
	}
	return rowsToTasks(rows)
}

func (db *DB) WorkerDelays(ctx context.Context, workerID int64, p core.Period) ([]core.TaskEvent, error) {
	const q = `
		SELECT te.id, te.task_id, te.user_id, te.log_type,
		       COALESCE(te.message, '') AS message, COALESCE(te.delay_reason, '') AS delay_reason,
		       COALESCE(te.delay_minutes, 0) AS delay_minutes, te.created_at
		FROM task_events te
		JOIN tasks t ON te.task_id = t.id
		WHERE te.user_id = $1 AND te.log_type = 'delay'
		AND t.scheduled_date >= $2 AND t.scheduled_date <= $3
		ORDER BY te.created_at ASC;
	`

	var out []core.TaskEvent
	if err := db.conn.SelectContext(ctx, &out, q, workerID, p.From, p.To); err != nil {
		return nil, fmt.Errorf("worker delays: %w", err)
	}
	return out, nil
}

func (db *DB) TasksInProgressOn(ctx context.Context, date string) ([]core.Task, error) {
	q := `SELECT ` + taskCols + taskFrom + ` WHERE t.scheduled_date = $1 AND t.status = 'in_progress'`

	var rows []taskRow
	if err := db.conn.SelectContext(ctx, &rows, q, date); err != nil {
		return nil, fmt.Errorf("tasks in progress: %w", err)
	}
	return rowsToTasks(rows)
}

func (db *DB) TasksUnresolvedThrough(ctx context.Context, date string) ([]core.Task, error) {
	q := `SELECT ` + taskCols + taskFrom + `
		WHERE t.scheduled_date <= $1 AND t.status IN ('pending', 'paused')
		ORDER BY t.scheduled_date ASC`

	var rows []taskRow
	if err := db.conn.SelectContext(ctx, &rows, q, date); err != nil {
		return nil, fmt.Errorf("unresolved tasks: %w", err)
	}
	return rowsToTasks(rows)
}

// pg helpers

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
