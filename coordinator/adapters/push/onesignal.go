package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultEndpoint = "https://onesignal.com/api/v1/notifications"

// Sender delivers push notifications through the OneSignal REST API.
// Delivery is best effort: the coordinator logs failures and never
// retries, the in-app notification row is the durable copy.
type Sender struct {
	log      *slog.Logger
	client   *http.Client
	endpoint string
	appID    string
	apiKey   string
}

func NewSender(log *slog.Logger, appID, apiKey string) *Sender {
	return &Sender{
		log:      log,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: defaultEndpoint,
		appID:    appID,
		apiKey:   apiKey,
	}
}

func (s *Sender) Push(ctx context.Context, userIDs []int64, title, message string, taskID int64) error {
	if s.appID == "" || s.apiKey == "" {
		return nil
	}

	aliases := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		aliases = append(aliases, strconv.FormatInt(id, 10))
	}

	payload := map[string]any{
		"app_id":                    s.appID,
		"include_external_user_ids": aliases,
		"headings":                  map[string]string{"en": title},
		"contents":                  map[string]string{"en": message},
		"data":                      map[string]any{"taskId": taskID},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push rejected: status %d", resp.StatusCode)
	}
	s.log.Debug("push sent", "recipients", len(userIDs), "task_id", taskID)
	return nil
}
