package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/louisbranch/hiring.space/internal/services/notifications/email"
	"github.com/louisbranch/hiring.space/internal/services/notifications/render"
	pipelinedomain "github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	pipelinestorage "github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
	pipelinesqlite "github.com/louisbranch/hiring.space/internal/services/pipeline/storage/sqlite"
	workerdomain "github.com/louisbranch/hiring.space/internal/services/worker/domain"
	workersqlite "github.com/louisbranch/hiring.space/internal/services/worker/storage/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var baseTime = time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, task pipelinedomain.NotificationTask) error
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, task pipelinedomain.NotificationTask) error {
	r.mu.Lock()
	r.calls = append(r.calls, task.ID)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, task)
	}
	return nil
}

func (r *recordingDispatcher) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type drainHarness struct {
	queue    *pipelinesqlite.Store
	attempts *workersqlite.Store
	logs     *observer.ObservedLogs
}

func newDrainHarness(t *testing.T) *drainHarness {
	t.Helper()
	dir := t.TempDir()
	queue, err := pipelinesqlite.Open(filepath.Join(dir, "pipeline.db"))
	if err != nil {
		t.Fatalf("open pipeline store: %v", err)
	}
	t.Cleanup(func() { _ = queue.Close() })
	attempts, err := workersqlite.Open(filepath.Join(dir, "worker.db"))
	if err != nil {
		t.Fatalf("open worker store: %v", err)
	}
	t.Cleanup(func() { _ = attempts.Close() })

	candidate, err := pipelinedomain.NewCandidate("cand-1", pipelinedomain.Registration{
		Name:     "Ada",
		Email:    "ada@example.com",
		JobTitle: "Engineer",
	}, baseTime.Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("new candidate: %v", err)
	}
	if err := queue.CreateCandidate(context.Background(), candidate); err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	return &drainHarness{queue: queue, attempts: attempts}
}

func (h *drainHarness) drainer(t *testing.T, dispatcher Dispatcher, cfg Config) *Drainer {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	h.logs = logs
	var seq atomic.Int64
	return NewDrainer(Dependencies{
		Queue:      h.queue,
		Dispatcher: dispatcher,
		Attempts:   h.attempts,
		Logger:     zap.New(core),
		Clock:      func() time.Time { return baseTime },
		NewID: func() (string, error) {
			return fmt.Sprintf("%d", seq.Add(1)), nil
		},
	}, cfg)
}

func (h *drainHarness) enqueue(t *testing.T, id string, scheduledFor time.Time) {
	t.Helper()
	task, err := pipelinedomain.NewNotificationTask(id, "cand-1", pipelinedomain.RejectionPayload{
		Recipient: pipelinedomain.Recipient{Name: "Ada", Email: "ada@example.com"},
		JobTitle:  "Engineer",
	}, scheduledFor, baseTime.Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.queue.EnqueueNotification(context.Background(), task); err != nil {
		t.Fatalf("enqueue %s: %v", id, err)
	}
}

func (h *drainHarness) task(t *testing.T, id string) pipelinedomain.NotificationTask {
	t.Helper()
	task, err := h.queue.GetNotification(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return task
}

func (h *drainHarness) outcomes(t *testing.T, taskID string) []string {
	t.Helper()
	records, err := h.attempts.ListAttempts(context.Background(), taskID, 100)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	outcomes := make([]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		outcomes = append(outcomes, records[i].Outcome)
	}
	return outcomes
}

func mustDrain(t *testing.T, d *Drainer) DrainResult {
	t.Helper()
	result, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	return result
}

func TestDrainSendsDueTasksOldestFirst(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-mid", baseTime.Add(-time.Hour))
	h.enqueue(t, "task-early", baseTime.Add(-2*time.Hour))
	h.enqueue(t, "task-now", baseTime)
	h.enqueue(t, "task-future", baseTime.Add(time.Hour))

	dispatcher := &recordingDispatcher{}
	result := mustDrain(t, h.drainer(t, dispatcher, Config{}))

	if got, want := dispatcher.dispatched(), []string{"task-early", "task-mid", "task-now"}; !slices.Equal(got, want) {
		t.Fatalf("dispatched = %v, want %v", got, want)
	}
	if result.Claimed != 3 || result.Sent != 3 || result.Owner != "drain-1" {
		t.Fatalf("result = %+v", result)
	}
	sent := h.task(t, "task-early")
	if sent.Status != pipelinedomain.TaskSent || sent.SentAt == nil || !sent.SentAt.Equal(baseTime) {
		t.Fatalf("task-early = %+v", sent)
	}
	if future := h.task(t, "task-future"); future.Status != pipelinedomain.TaskPending || future.RetryCount != 0 {
		t.Fatalf("task-future = %+v", future)
	}
	if got := h.outcomes(t, "task-mid"); !slices.Equal(got, []string{"sent"}) {
		t.Fatalf("attempts = %v", got)
	}
}

func TestDrainRespectsMaxBatch(t *testing.T) {
	h := newDrainHarness(t)
	for i := range 5 {
		h.enqueue(t, fmt.Sprintf("task-%d", i), baseTime.Add(-time.Duration(5-i)*time.Minute))
	}
	dispatcher := &recordingDispatcher{}
	d := h.drainer(t, dispatcher, Config{MaxBatch: 2})

	if result := mustDrain(t, d); result.Sent != 2 {
		t.Fatalf("first pass = %+v", result)
	}
	if got := dispatcher.dispatched(); !slices.Equal(got, []string{"task-0", "task-1"}) {
		t.Fatalf("dispatched = %v", got)
	}
	mustDrain(t, d)
	mustDrain(t, d)
	if result := mustDrain(t, d); result.Claimed != 0 {
		t.Fatalf("final pass = %+v", result)
	}
	if len(dispatcher.dispatched()) != 5 {
		t.Fatalf("dispatched = %v", dispatcher.dispatched())
	}
}

func TestDrainRetriesUntilTerminalFailure(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime)
	dispatcher := &recordingDispatcher{fn: func(context.Context, pipelinedomain.NotificationTask) error {
		return errors.New("provider unavailable")
	}}
	d := h.drainer(t, dispatcher, Config{MaxRetries: 3})

	for pass := 1; pass <= 2; pass++ {
		result := mustDrain(t, d)
		if result.Retried != 1 {
			t.Fatalf("pass %d = %+v", pass, result)
		}
		task := h.task(t, "task-1")
		if task.Status != pipelinedomain.TaskPending || task.RetryCount != pass || task.LastError != "provider unavailable" {
			t.Fatalf("pass %d task = %+v", pass, task)
		}
	}
	if result := mustDrain(t, d); result.Failed != 1 {
		t.Fatalf("third pass = %+v", result)
	}
	task := h.task(t, "task-1")
	if task.Status != pipelinedomain.TaskFailed || task.RetryCount != 3 {
		t.Fatalf("task = %+v", task)
	}

	if result := mustDrain(t, d); result.Claimed != 0 {
		t.Fatalf("terminal task claimed again: %+v", result)
	}
	if len(dispatcher.dispatched()) != 3 {
		t.Fatalf("dispatch attempts = %d, want 3", len(dispatcher.dispatched()))
	}
	if got := h.outcomes(t, "task-1"); !slices.Equal(got, []string{"retry", "retry", "failed"}) {
		t.Fatalf("attempt outcomes = %v", got)
	}
	if h.logs.FilterMessage("notification delivery failed permanently").Len() != 1 {
		t.Fatalf("logs = %+v", h.logs.All())
	}
}

func TestDrainPermanentFailureIsTerminalAtOnce(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime)
	dispatcher := &recordingDispatcher{fn: func(context.Context, pipelinedomain.NotificationTask) error {
		return workerdomain.Permanent(errors.New("mailbox does not exist"))
	}}

	result := mustDrain(t, h.drainer(t, dispatcher, Config{MaxRetries: 3}))
	if result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	task := h.task(t, "task-1")
	if task.Status != pipelinedomain.TaskFailed || task.RetryCount != 3 || task.LastError != "mailbox does not exist" {
		t.Fatalf("task = %+v", task)
	}
}

func TestDrainIsolatesPerTaskFailures(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-a", baseTime.Add(-3*time.Minute))
	h.enqueue(t, "task-b", baseTime.Add(-2*time.Minute))
	h.enqueue(t, "task-c", baseTime.Add(-time.Minute))

	dispatcher := &recordingDispatcher{fn: func(_ context.Context, task pipelinedomain.NotificationTask) error {
		switch task.ID {
		case "task-a":
			return errors.New("boom")
		case "task-b":
			panic("template exploded")
		}
		return nil
	}}
	result := mustDrain(t, h.drainer(t, dispatcher, Config{}))
	if result.Claimed != 3 || result.Retried != 2 || result.Sent != 1 {
		t.Fatalf("result = %+v", result)
	}
	if task := h.task(t, "task-b"); task.Status != pipelinedomain.TaskPending || task.LastError != "dispatch panic: template exploded" {
		t.Fatalf("task-b = %+v", task)
	}
	if task := h.task(t, "task-c"); task.Status != pipelinedomain.TaskSent {
		t.Fatalf("task-c = %+v", task)
	}
}

func TestDrainAppliesSendTimeout(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime)
	dispatcher := &recordingDispatcher{fn: func(ctx context.Context, _ pipelinedomain.NotificationTask) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	result := mustDrain(t, h.drainer(t, dispatcher, Config{SendTimeout: 20 * time.Millisecond}))
	if result.Retried != 1 {
		t.Fatalf("result = %+v", result)
	}
	if task := h.task(t, "task-1"); task.RetryCount != 1 || task.Status != pipelinedomain.TaskPending {
		t.Fatalf("task = %+v", task)
	}
}

func TestConcurrentDrainsNeverDoubleSend(t *testing.T) {
	h := newDrainHarness(t)
	const total = 30
	for i := range total {
		h.enqueue(t, fmt.Sprintf("task-%02d", i), baseTime.Add(-time.Duration(i)*time.Second))
	}

	var mu sync.Mutex
	sends := map[string]int{}
	dispatcher := &recordingDispatcher{fn: func(_ context.Context, task pipelinedomain.NotificationTask) error {
		mu.Lock()
		sends[task.ID]++
		mu.Unlock()
		time.Sleep(time.Millisecond)
		return nil
	}}
	d := h.drainer(t, dispatcher, Config{MaxBatch: 10})

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Drain(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent drain: %v", err)
	}

	mustDrain(t, d)
	mu.Lock()
	defer mu.Unlock()
	if len(sends) != total {
		t.Fatalf("sent %d distinct tasks, want %d", len(sends), total)
	}
	for id, count := range sends {
		if count != 1 {
			t.Fatalf("task %s sent %d times", id, count)
		}
	}
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestDrainSkipsTasksWhoseLeaseExpiredMidBatch(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime.Add(-3*time.Minute))
	h.enqueue(t, "task-2", baseTime.Add(-2*time.Minute))
	h.enqueue(t, "task-3", baseTime.Add(-time.Minute))

	clock := &steppingClock{now: baseTime}
	var mu sync.Mutex
	sends := map[string]int{}
	record := func(id string) {
		mu.Lock()
		sends[id]++
		mu.Unlock()
	}
	newPass := func(prefix string, dispatcher Dispatcher) *Drainer {
		return NewDrainer(Dependencies{
			Queue:      h.queue,
			Dispatcher: dispatcher,
			Attempts:   h.attempts,
			Clock:      clock.Now,
			NewID:      func() (string, error) { return "1", nil },
		}, Config{LeaseTTL: 2 * time.Minute, OwnerPrefix: prefix})
	}

	var overlap DrainResult
	passB := newPass("b", &recordingDispatcher{fn: func(_ context.Context, task pipelinedomain.NotificationTask) error {
		record(task.ID)
		return nil
	}})
	passA := newPass("a", &recordingDispatcher{fn: func(_ context.Context, task pipelinedomain.NotificationTask) error {
		record(task.ID)
		// Every send takes 90s; the batch lease of 2m runs out during task-2.
		clock.Advance(90 * time.Second)
		if task.ID == "task-2" {
			overlap = mustDrain(t, passB)
		}
		return nil
	}})

	result := mustDrain(t, passA)
	if result.Claimed != 3 || result.Sent != 2 || result.LeaseLost != 1 {
		t.Fatalf("first pass = %+v", result)
	}
	if overlap.Claimed != 1 || overlap.Sent != 1 {
		t.Fatalf("overlapping pass = %+v", overlap)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, id := range []string{"task-1", "task-2", "task-3"} {
		if sends[id] != 1 {
			t.Fatalf("%s sent %d times, want 1 (all: %v)", id, sends[id], sends)
		}
	}
	for _, id := range []string{"task-1", "task-2", "task-3"} {
		if task := h.task(t, id); task.Status != pipelinedomain.TaskSent {
			t.Fatalf("%s = %+v", id, task)
		}
	}
}

type leaseLosingQueue struct {
	Queue
}

func (leaseLosingQueue) CompleteNotificationAttempt(context.Context, pipelinestorage.AttemptResult) error {
	return pipelinestorage.ErrLeaseLost
}

func TestDrainCountsLostLeases(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime)
	d := h.drainer(t, &recordingDispatcher{}, Config{})
	d.queue = leaseLosingQueue{Queue: h.queue}

	result := mustDrain(t, d)
	if result.LeaseLost != 1 || result.Sent != 0 {
		t.Fatalf("result = %+v", result)
	}
	if got := h.outcomes(t, "task-1"); len(got) != 0 {
		t.Fatalf("attempts = %v, want none", got)
	}
}

func TestDrainStopsWhenContextEnds(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime.Add(-2*time.Minute))
	h.enqueue(t, "task-2", baseTime.Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher := &recordingDispatcher{fn: func(context.Context, pipelinedomain.NotificationTask) error {
		cancel()
		return nil
	}}
	d := h.drainer(t, dispatcher, Config{})
	result, err := d.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(dispatcher.dispatched()) != 1 || result.Skipped != 1 || result.Sent != 1 {
		t.Fatalf("result = %+v, dispatched %v", result, dispatcher.dispatched())
	}
	if task := h.task(t, "task-2"); task.Status != pipelinedomain.TaskPending || task.RetryCount != 0 {
		t.Fatalf("skipped task = %+v", task)
	}
}

func TestDrainerRequiresCollaborators(t *testing.T) {
	if _, err := NewDrainer(Dependencies{}, Config{}).Drain(context.Background()); err == nil {
		t.Fatal("expected error without queue and dispatcher")
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []render.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg render.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestDrainWithEmailDispatcher(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-ok", baseTime)
	sender := &fakeSender{}

	result := mustDrain(t, h.drainer(t, NewEmailDispatcher(sender, "pt-BR"), Config{}))
	if result.Sent != 1 || len(sender.sent) != 1 {
		t.Fatalf("result = %+v, sent %d", result, len(sender.sent))
	}
	if sender.sent[0].Subject != "Atualização sobre sua candidatura para Engineer" {
		t.Fatalf("subject = %q", sender.sent[0].Subject)
	}

	h.enqueue(t, "task-rejected", baseTime)
	sender.err = &email.SendError{StatusCode: http.StatusUnprocessableEntity, Body: "invalid to"}
	result = mustDrain(t, h.drainer(t, NewEmailDispatcher(sender, ""), Config{MaxRetries: 3}))
	if result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if task := h.task(t, "task-rejected"); task.Status != pipelinedomain.TaskFailed || task.RetryCount != 3 {
		t.Fatalf("task = %+v", task)
	}
}

func TestRunDrainsOnInterval(t *testing.T) {
	h := newDrainHarness(t)
	h.enqueue(t, "task-1", baseTime)
	dispatcher := &recordingDispatcher{}
	d := h.drainer(t, dispatcher, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(dispatcher.dispatched()) == 0 {
		select {
		case <-deadline:
			t.Fatal("task not dispatched by loop")
		case <-time.After(5 * time.Millisecond):
		}
	}
	h.enqueue(t, "task-2", baseTime)
	for len(dispatcher.dispatched()) < 2 {
		select {
		case <-deadline:
			t.Fatal("second task not dispatched by loop")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestConfigValidateRequiresLeaseBeyondSendTimeout(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "lease equals send timeout", cfg: Config{LeaseTTL: 15 * time.Second, SendTimeout: 15 * time.Second}, wantErr: true},
		{name: "lease below send timeout", cfg: Config{LeaseTTL: 10 * time.Second, SendTimeout: time.Minute}, wantErr: true},
		{name: "lease above send timeout", cfg: Config{LeaseTTL: time.Minute, SendTimeout: 10 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	h := newDrainHarness(t)
	d := h.drainer(t, &recordingDispatcher{}, Config{LeaseTTL: time.Second, SendTimeout: time.Minute})
	if _, err := d.Drain(context.Background()); err == nil {
		t.Fatal("expected drain to reject a lease shorter than the send timeout")
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{}.normalized()
	if cfg.MaxBatch != 50 || cfg.MaxRetries != 3 || cfg.LeaseTTL != 2*time.Minute || cfg.PollInterval != time.Minute || cfg.OwnerPrefix != "drain" {
		t.Fatalf("normalized = %+v", cfg)
	}
}
