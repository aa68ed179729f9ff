package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hemprojects/transport/coordinator/adapters/rest"
	"github.com/hemprojects/transport/coordinator/core"
)

// Client talks to the coordinator REST boundary. Every mutating call is
// safe to repeat: the server treats duplicate transitions and joins as
// no-ops, which is what lets the sync queue retry freely.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/ping", nil, nil)
}

// Online reports whether the coordinator is currently reachable.
func (c *Client) Online() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.Ping(ctx) == nil
}

func (c *Client) Tasks(ctx context.Context, date string, userID int64) ([]core.Task, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if userID > 0 {
		q.Set("userId", strconv.FormatInt(userID, 10))
	}
	var out []core.Task
	if err := c.call(ctx, http.MethodGet, "/api/tasks?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, in rest.CreateTaskIn) (int64, error) {
	var out rest.SuccessOut
	if err := c.call(ctx, http.MethodPost, "/api/tasks", in, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, status string, actorID int64) (rest.StatusOut, error) {
	var out rest.StatusOut
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/status", taskID),
		rest.ChangeStatusIn{Status: status, ActorID: actorID}, &out)
	return out, err
}

func (c *Client) JoinTask(ctx context.Context, taskID, actorID int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/join", taskID),
		rest.JoinTaskIn{ActorID: actorID}, nil)
}

func (c *Client) CreateTaskLog(ctx context.Context, taskID int64, in rest.CreateLogIn) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/logs", taskID), in, nil)
}

func (c *Client) Notifications(ctx context.Context, userID int64) (core.NotificationFeed, error) {
	var out core.NotificationFeed
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/notifications/%d", userID), nil, &out)
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", id), nil, nil)
}

func (c *Client) DeleteReadNotifications(ctx context.Context, userID int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/notifications/read/%d", userID), nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
