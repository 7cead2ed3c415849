// Package task runs bulk operations as background tasks and publishes their
// state transitions to subscribers.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/sdejongh/bulkops/pkg/compare"
	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/models"
	"github.com/sdejongh/bulkops/pkg/operation"
	"github.com/sdejongh/bulkops/pkg/ratelimit"
	"github.com/sdejongh/bulkops/pkg/storage"
)

// ErrManagerClosed is returned by Submit once Shutdown has been called
var ErrManagerClosed = errors.New("task manager is shut down")

const (
	// DefaultMaxConcurrent is the number of tasks allowed to run at once
	DefaultMaxConcurrent = 5
	// DefaultProgressInterval is the delay between two Running snapshots
	DefaultProgressInterval = time.Second

	eventQueueSize = 1024
)

// ManagerConfig holds the configuration of a Manager
type ManagerConfig struct {
	MaxConcurrent    int
	ProgressInterval time.Duration

	Backend storage.Backend
	Logger  logging.Logger
	Clock   models.Clock

	// Settings applied to every operation
	BufferSize    int
	Limiter       *ratelimit.Limiter
	PreserveTimes bool
	Exclude       []string
	SortByName    bool
	Verify        bool

	// OnReport is called on the delivery goroutine right after a task's
	// terminal state has been delivered to subscribers
	OnReport func(*models.TaskReport)
}

// DefaultManagerConfig returns sensible defaults
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxConcurrent:    DefaultMaxConcurrent,
		ProgressInterval: DefaultProgressInterval,
		BufferSize:       operation.DefaultBufferSize,
		PreserveTimes:    true,
	}
}

func (c *ManagerConfig) defaults() {
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	if c.Backend == nil {
		c.Backend = storage.NewLocal()
	}
	if c.Logger == nil {
		c.Logger = logging.Noop
	}
	c.Logger = c.Logger.WithFields(logging.Fields{"svc": "task.Manager"})
	if c.Clock == nil {
		c.Clock = models.NewSystemClock()
	}
}

type event struct {
	state    *models.TaskState
	notFound *models.TaskNotFound
	report   *models.TaskReport
}

type subscriber struct {
	id         int
	onState    func(models.TaskState)
	onNotFound func(models.TaskNotFound)
}

type handle struct {
	id     models.TaskID
	runID  string
	cancel context.CancelFunc
	done   chan struct{}
	final  models.TaskState
}

// Manager schedules tasks on a bounded pool. Every state transition of every
// task goes through a single delivery goroutine, so the states of one task
// are always observed in order.
type Manager struct {
	cfg ManagerConfig
	sem *semaphore.Weighted

	mu      sync.Mutex
	tasks   map[models.TaskID]*handle
	closing bool
	wg      sync.WaitGroup

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int

	sendMu       sync.RWMutex
	sendClosed   bool
	events       chan event
	dispatchDone chan struct{}
}

// NewManager creates a manager and starts its delivery goroutine
func NewManager(cfg ManagerConfig) *Manager {
	cfg.defaults()

	m := &Manager{
		cfg:          cfg,
		sem:          semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		tasks:        make(map[models.TaskID]*handle),
		events:       make(chan event, eventQueueSize),
		dispatchDone: make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// Submit starts a task for req and returns its id. The task's context is
// derived from ctx; cancelling ctx cancels the task. The Pending state is
// queued for delivery before Submit returns.
func (m *Manager) Submit(ctx context.Context, req models.Request) (models.TaskID, error) {
	op, err := operation.New(m.operationConfig(req.Kind, req.Roots, req.Destination))
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return 0, ErrManagerClosed
	}
	taskCtx, cancel := context.WithCancel(ctx)
	h := &handle{
		id:     m.freeID(),
		runID:  uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.tasks[h.id] = h
	m.wg.Add(1)
	m.mu.Unlock()

	pending := models.NewPendingState(h.id, req.Kind, models.NewTarget(req.Kind, req.Roots, req.Destination), m.cfg.Clock.Now())
	m.publishState(pending)

	w := &worker{
		m:      m,
		h:      h,
		op:     op,
		state:  pending,
		logger: m.cfg.Logger.WithFields(logging.Fields{"task": int(h.id), "run_id": h.runID, "operation": req.Kind.String()}),
	}
	w.logger.Info(ctx, "task submitted", logging.Fields{"roots": op.Roots(), "destination": req.Destination})
	go w.run(taskCtx)

	return h.id, nil
}

// Cancel requests cancellation of an active task. It takes effect at the
// next node boundary. An unknown id publishes a TaskNotFound event.
func (m *Manager) Cancel(id models.TaskID) error {
	m.mu.Lock()
	h, ok := m.tasks[id]
	m.mu.Unlock()

	if !ok {
		m.publish(event{notFound: &models.TaskNotFound{Task: id}})
		return fmt.Errorf("cannot cancel task %d: %w", id, models.ErrTaskNotFound)
	}
	h.cancel()
	return nil
}

// Subscribe registers callbacks for state transitions and not-found events.
// Callbacks run on the delivery goroutine and must not block. Either may be
// nil. The returned function removes the subscription.
func (m *Manager) Subscribe(onState func(models.TaskState), onNotFound func(models.TaskNotFound)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscriber{id: id, onState: onState, onNotFound: onNotFound})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Wait blocks until the active task id finishes and returns its terminal
// state. Finished tasks are forgotten, so waiting on one fails with
// ErrTaskNotFound.
func (m *Manager) Wait(ctx context.Context, id models.TaskID) (models.TaskState, error) {
	m.mu.Lock()
	h, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return models.TaskState{}, fmt.Errorf("cannot wait for task %d: %w", id, models.ErrTaskNotFound)
	}

	select {
	case <-h.done:
		return h.final, nil
	case <-ctx.Done():
		return models.TaskState{}, ctx.Err()
	}
}

// RunID returns the unique run id of an active task
func (m *Manager) RunID(id models.TaskID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.tasks[id]
	if !ok {
		return "", fmt.Errorf("task %d: %w", id, models.ErrTaskNotFound)
	}
	return h.runID, nil
}

// Active returns the number of tasks that have not finished yet
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Shutdown refuses new tasks, cancels the active ones and waits until they
// have finished and every pending event has been delivered.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	for _, h := range m.tasks {
		h.cancel()
	}
	m.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}

	m.sendMu.Lock()
	if !m.sendClosed {
		m.sendClosed = true
		close(m.events)
	}
	m.sendMu.Unlock()

	select {
	case <-m.dispatchDone:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}
}

// freeID returns the lowest positive id not held by an active task.
// Must be called with m.mu held.
func (m *Manager) freeID() models.TaskID {
	for id := models.TaskID(1); ; id++ {
		if _, ok := m.tasks[id]; !ok {
			return id
		}
	}
}

// release forgets a finished task so its id can be reused
func (m *Manager) release(h *handle, final models.TaskState) {
	m.mu.Lock()
	delete(m.tasks, h.id)
	m.mu.Unlock()

	h.final = final
	close(h.done)
	m.wg.Done()
}

func (m *Manager) operationConfig(kind models.OperationKind, roots []string, dest string) operation.Config {
	var verifier compare.Comparator
	if m.cfg.Verify {
		verifier = compare.NewHashComparator(m.cfg.BufferSize)
	}
	return operation.Config{
		Kind:          kind,
		Roots:         roots,
		Destination:   dest,
		Backend:       m.cfg.Backend,
		Logger:        m.cfg.Logger,
		BufferSize:    m.cfg.BufferSize,
		Limiter:       m.cfg.Limiter,
		PreserveTimes: m.cfg.PreserveTimes,
		Exclude:       m.cfg.Exclude,
		SortByName:    m.cfg.SortByName,
		Verifier:      verifier,
	}
}

func (m *Manager) publishState(s models.TaskState) {
	m.publish(event{state: &s})
}

func (m *Manager) publish(e event) {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()
	if m.sendClosed {
		return
	}
	m.events <- e
}

// dispatch delivers events one at a time until the queue is closed
func (m *Manager) dispatch() {
	defer close(m.dispatchDone)

	for e := range m.events {
		if e.report != nil {
			if m.cfg.OnReport != nil {
				m.cfg.OnReport(e.report)
			}
			continue
		}

		m.subMu.Lock()
		subs := append([]subscriber(nil), m.subs...)
		m.subMu.Unlock()

		for _, s := range subs {
			switch {
			case e.state != nil && s.onState != nil:
				s.onState(*e.state)
			case e.notFound != nil && s.onNotFound != nil:
				s.onNotFound(*e.notFound)
			}
		}
	}
}
