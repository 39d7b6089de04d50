package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/achimid/web-page-notify-api/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []Message
	chs  []model.Channel
	err  error
}

func (d *recordingDispatcher) Deliver(ctx context.Context, ch model.Channel, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	d.chs = append(d.chs, ch)
	return d.err
}

func (d *recordingDispatcher) delivered() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

func TestNotifyRendersTemplatePerChannel(t *testing.T) {
	t.Parallel()
	rec := &recordingDispatcher{}
	svc := New(Config{}, testLogger())
	svc.Register(model.ChannelWebhook, rec)

	task := model.WatchTask{ID: "t1", URL: "https://a.test"}
	svc.Notify(context.Background(), task, []model.Channel{
		{Kind: model.ChannelWebhook, Target: "x", Template: "plain: {{url}}"},
		{Kind: model.ChannelWebhook, Target: "y", Template: "other: {{id}}"},
	})
	svc.Drain()

	if rec.delivered() != 2 {
		t.Fatalf("delivered %d messages, want 2", rec.delivered())
	}
	texts := map[string]bool{}
	rec.mu.Lock()
	for _, m := range rec.msgs {
		texts[m.Text] = true
	}
	rec.mu.Unlock()
	if !texts["plain: https://a.test"] || !texts["other: t1"] {
		t.Fatalf("rendered texts = %v", texts)
	}
}

func TestNotifyUnknownKindSkipped(t *testing.T) {
	t.Parallel()
	rec := &recordingDispatcher{}
	svc := New(Config{}, testLogger())
	svc.Register(model.ChannelWebhook, rec)

	svc.Notify(context.Background(), model.WatchTask{ID: "t1"}, []model.Channel{
		{Kind: model.ChannelTelegram, Target: "123"},
		{Kind: model.ChannelWebhook, Target: "x"},
	})
	svc.Drain()

	if rec.delivered() != 1 {
		t.Fatalf("delivered %d, want 1 (unregistered kind skipped)", rec.delivered())
	}
}

func TestNotifyFailingChannelDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	failing := &recordingDispatcher{err: errors.New("smtp down")}
	healthy := &recordingDispatcher{}
	svc := New(Config{}, testLogger())
	svc.Register(model.ChannelEmail, failing)
	svc.Register(model.ChannelWebhook, healthy)

	svc.Notify(context.Background(), model.WatchTask{ID: "t1"}, []model.Channel{
		{Kind: model.ChannelEmail, Target: "a@b.test"},
		{Kind: model.ChannelWebhook, Target: "x"},
	})
	svc.Drain()

	if healthy.delivered() != 1 {
		t.Fatalf("healthy channel delivered %d, want 1", healthy.delivered())
	}
	if failing.delivered() != 1 {
		t.Fatalf("failing channel attempted %d, want 1", failing.delivered())
	}
}

func TestNotifyEmptyChannelsIsNoOp(t *testing.T) {
	t.Parallel()
	rec := &recordingDispatcher{}
	svc := New(Config{}, testLogger())
	svc.Register(model.ChannelWebhook, rec)

	svc.Notify(context.Background(), model.WatchTask{ID: "t1"}, nil)
	svc.Drain()

	if rec.delivered() != 0 {
		t.Fatalf("delivered %d, want 0", rec.delivered())
	}
}

func TestWebhookDeliverPostsJSON(t *testing.T) {
	t.Parallel()
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	w := NewWebhook(0)
	msg := Message{Text: "page updated", Task: model.WatchTask{ID: "t1", URL: "https://a.test"}}
	if err := w.Deliver(context.Background(), model.Channel{Kind: model.ChannelWebhook, Target: srv.URL}, msg); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Text != "page updated" || got.Task.ID != "t1" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestWebhookDeliverErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(0)
	err := w.Deliver(context.Background(), model.Channel{Target: srv.URL}, Message{Text: "x"})
	if err == nil {
		t.Fatal("non-2xx status must be an error")
	}
}

func TestWebhookDeliverEmptyTarget(t *testing.T) {
	t.Parallel()
	w := NewWebhook(0)
	if err := w.Deliver(context.Background(), model.Channel{}, Message{}); err == nil {
		t.Fatal("empty target must be rejected")
	}
}
