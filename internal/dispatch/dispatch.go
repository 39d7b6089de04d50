package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/achimid/web-page-notify-api/internal/model"
	"github.com/achimid/web-page-notify-api/internal/watch"
)

// Message is the rendered notification plus the task snapshot, for
// dispatchers that send structured payloads instead of plain text.
type Message struct {
	Text string          `json:"message"`
	Task model.WatchTask `json:"task"`
}

// Dispatcher delivers one message to one channel target. Beyond
// success/failure it is opaque to the fan-out.
type Dispatcher interface {
	Deliver(ctx context.Context, ch model.Channel, msg Message) error
}

type Config struct {
	RatePerSec int
}

// Service fans one notification out to every resolved channel. Deliveries
// are started concurrently and independently; a failing channel is logged
// and never affects the others or the calling cycle.
type Service struct {
	mu sync.Mutex

	log     *slog.Logger
	limiter *rate.Limiter

	registry map[model.ChannelKind]Dispatcher

	wg sync.WaitGroup
}

func New(cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &Service{
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
		registry: map[model.ChannelKind]Dispatcher{},
	}
}

func (s *Service) Register(kind model.ChannelKind, d Dispatcher) {
	s.mu.Lock()
	s.registry[kind] = d
	s.mu.Unlock()
}

// Notify renders a message per channel and starts one delivery goroutine
// each. It returns once all deliveries are initiated, not confirmed:
// delivery is fire-and-forget relative to the caller.
func (s *Service) Notify(ctx context.Context, task model.WatchTask, channels []model.Channel) {
	if len(channels) == 0 {
		s.log.Info("no notification channels resolved", slog.String("task", task.ID))
		return
	}

	for _, ch := range channels {
		s.mu.Lock()
		d := s.registry[ch.Kind]
		s.mu.Unlock()
		if d == nil {
			s.log.Warn("no dispatcher for channel",
				slog.String("task", task.ID), slog.String("kind", string(ch.Kind)))
			continue
		}

		msg := Message{Text: watch.FormatTemplate(task, ch.Template), Task: task}
		s.wg.Add(1)
		go func(ch model.Channel, d Dispatcher) {
			defer s.wg.Done()
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			if err := d.Deliver(ctx, ch, msg); err != nil {
				s.log.Warn("delivery failed",
					slog.String("task", task.ID), slog.String("kind", string(ch.Kind)), slog.Any("err", err))
			}
		}(ch, d)
	}
}

// Drain blocks until all in-flight deliveries finish. Used on shutdown.
func (s *Service) Drain() { s.wg.Wait() }
