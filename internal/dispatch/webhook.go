package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/achimid/web-page-notify-api/internal/model"
)

// Webhook POSTs the rendered message and the task snapshot as JSON to the
// channel target URL. Any 2xx status counts as delivered.
type Webhook struct {
	client *http.Client
}

func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Webhook{client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Deliver(ctx context.Context, ch model.Channel, msg Message) error {
	if ch.Target == "" {
		return errors.New("webhook target is empty")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.Target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: status %d", ch.Target, resp.StatusCode)
	}
	return nil
}
