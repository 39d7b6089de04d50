package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/achimid/web-page-notify-api/internal/model"
)

// TaskStore is the persistence surface the scheduler drives each tick.
type TaskStore interface {
	LoadEligibleTasks(ctx context.Context) ([]model.WatchTask, error)
	SaveTask(ctx context.Context, t *model.WatchTask) error
	AppendExecution(ctx context.Context, e model.ExecutionResult) error
	GetOwner(ctx context.Context, id string) (model.Owner, error)
}

// Notifier fans a decided notification out to the resolved channels.
// Implementations must initiate deliveries and return; failures stay on
// their side of the boundary.
type Notifier interface {
	Notify(ctx context.Context, task model.WatchTask, channels []model.Channel)
}

type runState struct {
	mu      sync.Mutex
	running bool
}

func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *runState) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

type entry struct {
	task    *model.WatchTask
	entryID cron.EntryID
	state   *runState
}

// Scheduler owns one recurring cron entry per eligible task and runs the
// execute -> record -> decide -> dispatch -> persist cycle on every tick.
// Cycles of different tasks are independent; a failure in one never
// touches another task's schedule.
type Scheduler struct {
	mu sync.Mutex

	log    *slog.Logger
	store  TaskStore
	runner *Runner
	policy *Policy
	out    Notifier

	c       *cron.Cron
	entries map[string]*entry

	runCtx    context.Context
	runCancel context.CancelFunc
	cycleWG   sync.WaitGroup
}

func NewScheduler(store TaskStore, runner *Runner, policy *Policy, out Notifier, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		log:     log,
		store:   store,
		runner:  runner,
		policy:  policy,
		out:     out,
		entries: map[string]*entry{},
	}
}

// Start loads the eligible tasks, runs one immediate cycle per task and
// registers its recurring entry. A load failure is logged and leaves the
// scheduler running with zero tasks; it does not fail the process.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New()
	s.mu.Unlock()

	tasks, err := s.store.LoadEligibleTasks(ctx)
	if err != nil {
		s.log.Error("task load failed, scheduler starts empty", slog.Any("err", err))
		tasks = nil
	}

	for i := range tasks {
		t := tasks[i]
		if err := s.add(&t); err != nil {
			s.log.Error("schedule register failed", slog.String("task", t.ID), slog.Any("err", err))
		}
	}

	s.mu.Lock()
	s.c.Start()
	n := len(s.entries)
	s.mu.Unlock()
	s.log.Info("watch scheduler started", slog.Int("tasks", n))
}

// Stop cancels in-flight cycle contexts, stops the cron runner and waits
// for running cycles to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.c == nil {
		s.mu.Unlock()
		return
	}
	c := s.c
	s.c = nil
	cancel := s.runCancel
	s.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.cycleWG.Wait()
	s.log.Info("watch scheduler stopped")
}

// Cancel removes a task's recurring entry. An in-flight cycle is allowed
// to complete; the removal takes effect from the next tick.
func (s *Scheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[taskID]
	if !ok {
		return false
	}
	if s.c != nil {
		s.c.Remove(e.entryID)
	}
	delete(s.entries, taskID)
	s.log.Info("watch schedule removed", slog.String("task", taskID))
	return true
}

// Reschedule replaces a task's cadence. The minimum cadence is one minute.
func (s *Scheduler) Reschedule(taskID string, every time.Duration) error {
	if every < time.Minute {
		return fmt.Errorf("cadence %s below 1m minimum", every)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, errNotScheduled)
	}
	if s.c == nil {
		return errors.New("scheduler not started")
	}

	s.c.Remove(e.entryID)
	id, err := s.c.AddFunc(fmt.Sprintf("@every %s", every), func() { s.runCycle(s.runCtx, e) })
	if err != nil {
		delete(s.entries, taskID)
		return err
	}
	e.entryID = id
	e.task.Options.HitTime = int(every / time.Minute)
	s.log.Info("watch schedule replaced", slog.String("task", taskID), slog.Duration("every", every))
	return nil
}

var errNotScheduled = errors.New("not scheduled")

func (s *Scheduler) add(t *model.WatchTask) error {
	minutes := t.Options.HitTime
	if minutes < 1 {
		minutes = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return errors.New("scheduler not started")
	}
	if _, exists := s.entries[t.ID]; exists {
		return fmt.Errorf("task %s already scheduled", t.ID)
	}

	e := &entry{task: t, state: &runState{}}
	id, err := s.c.AddFunc(fmt.Sprintf("@every %dm", minutes), func() { s.runCycle(s.runCtx, e) })
	if err != nil {
		return err
	}
	e.entryID = id
	s.entries[t.ID] = e

	s.log.Info("watch schedule registered",
		slog.String("task", t.ID), slog.String("url", t.URL), slog.Int("every_minutes", minutes))

	// immediate first cycle, off the caller's goroutine
	go s.runCycle(s.runCtx, e)
	return nil
}

// runCycle is one tick: execute, record, decide, dispatch, persist.
// Nothing escapes to the cron callback; every failure is logged and
// converted into a non-fatal outcome.
func (s *Scheduler) runCycle(ctx context.Context, e *entry) {
	if ctx == nil || ctx.Err() != nil {
		return
	}
	task := e.task
	if !e.state.tryAcquire() {
		s.log.Debug("cycle skipped, previous run still in flight", slog.String("task", task.ID))
		return
	}
	s.cycleWG.Add(1)
	defer func() {
		e.state.release()
		s.cycleWG.Done()
	}()

	res := s.runner.Run(ctx, task)
	ApplyResult(task, res)

	if err := s.store.AppendExecution(ctx, res); err != nil {
		s.log.Warn("execution history append failed", slog.String("task", task.ID), slog.Any("err", err))
	}

	owner := s.resolveOwner(ctx, task)

	if ok, reason := s.policy.ShouldNotify(ctx, task, owner, res); ok {
		s.out.Notify(ctx, *task, EffectiveChannels(*task, owner))
	} else {
		s.log.Info("notification skipped", slog.String("task", task.ID), slog.String("reason", reason))
	}

	// persisted exactly once per tick, after dispatch has been initiated
	if err := s.store.SaveTask(ctx, task); err != nil {
		s.log.Error("task save failed", slog.String("task", task.ID), slog.Any("err", err))
	}
}

func (s *Scheduler) resolveOwner(ctx context.Context, task *model.WatchTask) model.Owner {
	if task.OwnerID == "" {
		return model.Owner{}
	}
	owner, err := s.store.GetOwner(ctx, task.OwnerID)
	if err != nil {
		s.log.Debug("owner lookup failed", slog.String("task", task.ID), slog.String("owner", task.OwnerID), slog.Any("err", err))
		return model.Owner{}
	}
	return owner
}
