package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
)

// Actions are dropped after this many failed attempts and surfaced to the
// user as a synchronization failure.
const maxAttempts = 3

// DefaultDrainInterval is how often the queue retries on its own between
// explicit triggers.
const DefaultDrainInterval = 30 * time.Second

// Action is one pending mutating operation, durable until the server
// confirms it or the retry ceiling drops it.
type Action struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
}

// Mutation is the optimistic-update pair for one user intent: Apply
// mutates the local view immediately, Revert restores it. The queue runs
// Apply synchronously at enqueue time and never calls Revert itself:
// after a dropped action the optimistic state stands until the next full
// refresh, and Revert stays with the caller for explicit use.
type Mutation struct {
	Apply  func()
	Revert func()
}

// Executor performs one action against the server. Any error counts as a
// failed attempt; the action kinds themselves must be idempotent because
// a retry can duplicate a send whose response was lost.
type Executor func(ctx context.Context, a Action) error

// FailureHandler is told about an action dropped at the retry ceiling.
type FailureHandler func(a Action, err error)

type Queue struct {
	log       *slog.Logger
	path      string
	exec      Executor
	online    func() bool
	onFailure FailureHandler
	interval  time.Duration

	mu       stdsync.Mutex
	actions  []Action
	draining bool
}

type Option func(*Queue)

// WithOnline installs a connectivity probe; draining is skipped while it
// reports false.
func WithOnline(fn func() bool) Option {
	return func(q *Queue) { q.online = fn }
}

func WithFailureHandler(fn FailureHandler) Option {
	return func(q *Queue) { q.onFailure = fn }
}

func WithDrainInterval(d time.Duration) Option {
	return func(q *Queue) { q.interval = d }
}

// NewQueue loads any actions persisted by a previous process from path.
func NewQueue(log *slog.Logger, path string, exec Executor, opts ...Option) (*Queue, error) {
	q := &Queue{
		log:      log,
		path:     path,
		exec:     exec,
		interval: DefaultDrainInterval,
	}
	for _, opt := range opts {
		opt(q)
	}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

// Enqueue applies the optimistic mutation, records the action durably and
// kicks a background drain. By the time it returns, a process kill can no
// longer lose the intent.
func (q *Queue) Enqueue(name string, payload any, m Mutation) (string, error) {
	if m.Apply != nil {
		m.Apply()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	action := Action{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.actions = append(q.actions, action)
	err = q.persistLocked()
	q.mu.Unlock()
	if err != nil {
		return "", err
	}

	go q.Drain(context.Background())
	return action.ID, nil
}

// Start drains immediately and then on a fixed interval until the
// context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go q.Drain(ctx)
	ticker := time.NewTicker(q.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.Drain(ctx)
			}
		}
	}()
}

// Drain walks a snapshot of the queue in FIFO order and sends each action
// to the server. It is single-flight, a no-op while offline, and stops at
// the first failure so later actions never overtake an earlier one that
// is still failing.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining || len(q.actions) == 0 {
		q.mu.Unlock()
		return
	}
	if q.online != nil && !q.online() {
		q.mu.Unlock()
		return
	}
	q.draining = true
	snapshot := make([]Action, len(q.actions))
	copy(snapshot, q.actions)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	for _, action := range snapshot {
		if err := q.exec(ctx, action); err != nil {
			q.recordFailure(action.ID, err)
			return
		}
		q.remove(action.ID)
	}
}

// Len reports how many actions are still waiting for the server.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
	if err := q.persistLocked(); err != nil {
		q.log.Error("persist queue", "error", err)
	}
}

func (q *Queue) removeLocked(id string) {
	for i, a := range q.actions {
		if a.ID == id {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			return
		}
	}
}

func (q *Queue) recordFailure(id string, cause error) {
	q.mu.Lock()
	var dropped *Action
	for i := range q.actions {
		if q.actions[i].ID != id {
			continue
		}
		q.actions[i].Attempts++
		q.log.Warn("sync action failed", "action", q.actions[i].Name, "attempts", q.actions[i].Attempts, "error", cause)
		if q.actions[i].Attempts >= maxAttempts {
			a := q.actions[i]
			dropped = &a
			q.removeLocked(id)
		}
		break
	}
	if err := q.persistLocked(); err != nil {
		q.log.Error("persist queue", "error", err)
	}
	q.mu.Unlock()

	if dropped != nil && q.onFailure != nil {
		q.onFailure(*dropped, cause)
	}
}

func (q *Queue) persistLocked() error {
	data, err := json.MarshalIndent(q.actions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	tmp := q.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("queue dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

func (q *Queue) load() error {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read queue file: %w", err)
	}
	if err := json.Unmarshal(data, &q.actions); err != nil {
		// A corrupt queue file must not brick the app; start fresh.
		q.log.Error("queue file unreadable, starting empty", "path", q.path, "error", err)
		q.actions = nil
	}
	return nil
}
