// Package crawler drives the fetch, clean, classify and persist cycles of
// every entity family. Each orchestrator owns a Runner: a goroutine loop that
// runs a cycle, waits for the delay the cycle returned, and repeats until it
// is stopped.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned by Start and Run while the loop is active.
var ErrAlreadyRunning = errors.New("crawler is already running")

// State is the lifecycle state of a Runner.
type State int

const (
	Idle State = iota
	Running
	Waiting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CycleFunc performs one cycle and returns the delay before the next one.
// A zero delay falls back to the runner's interval.
type CycleFunc func(ctx context.Context, logger *slog.Logger) (time.Duration, error)

// Status is a point-in-time view of a Runner.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Cycles    int       `json:"cycles"`
	LastCycle time.Time `json:"last_cycle,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitzero"`
}

// Runner serializes the cycles of one orchestrator. Stop never interrupts a
// cycle in flight; it only prevents the next one.
type Runner struct {
	name     string
	interval time.Duration
	cycle    CycleFunc
	logger   *slog.Logger

	cycleMu sync.Mutex // held for the duration of a cycle

	mu         sync.Mutex
	state      State
	active     bool
	stop       chan struct{}
	reschedule chan time.Duration
	cycles     int
	lastCycle  time.Time
	lastErr    error
	nextRun    time.Time
}

// NewRunner returns an idle runner.
func NewRunner(name string, interval time.Duration, cycle CycleFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		name:       name,
		interval:   interval,
		cycle:      cycle,
		logger:     logger.With("crawler", name),
		reschedule: make(chan time.Duration, 1),
	}
}

func (r *Runner) Name() string { return r.name }

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns a snapshot for the control API.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Status{
		Name:      r.name,
		State:     r.state,
		Cycles:    r.cycles,
		LastCycle: r.lastCycle,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	if r.state == Waiting {
		s.NextRun = r.nextRun
	}
	return s
}

// RunOnce performs exactly one cycle. It waits for a cycle already in flight.
func (r *Runner) RunOnce(ctx context.Context) error {
	_, err := r.runCycle(ctx)
	return err
}

func (r *Runner) runCycle(ctx context.Context) (time.Duration, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	r.mu.Lock()
	prev := r.state
	r.state = Running
	r.mu.Unlock()

	cycleID := uuid.NewString()
	logger := r.logger.With("cycle_id", cycleID)
	start := time.Now()
	logger.Debug("Cycle started")

	delay, err := r.cycle(ctx, logger)
	if err != nil {
		logger.Warn("Cycle failed", "error", err, "duration", time.Since(start))
	} else {
		logger.Debug("Cycle complete", "duration", time.Since(start))
	}
	if delay <= 0 {
		delay = r.interval
	}

	r.mu.Lock()
	r.cycles++
	r.lastCycle = start
	r.lastErr = err
	if r.state == Running {
		switch {
		case !r.active:
			r.state = prev
		case prev == Waiting:
			r.state = Waiting
		}
	}
	r.mu.Unlock()
	return delay, err
}

// Start launches Run in a new goroutine.
func (r *Runner) Start(ctx context.Context) error {
	stop, err := r.activate()
	if err != nil {
		return err
	}
	go func() {
		if err := r.loop(ctx, stop); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("Crawler exited", "error", err)
		}
	}()
	return nil
}

// Run cycles until Stop is called or ctx is cancelled. A stopped runner can
// be run again.
func (r *Runner) Run(ctx context.Context) error {
	stop, err := r.activate()
	if err != nil {
		return err
	}
	return r.loop(ctx, stop)
}

func (r *Runner) activate() (chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil, ErrAlreadyRunning
	}
	r.active = true
	r.stop = make(chan struct{})
	// Drop a reschedule left over from a previous run.
	select {
	case <-r.reschedule:
	default:
	}
	return r.stop, nil
}

func (r *Runner) loop(ctx context.Context, stop chan struct{}) error {
	defer func() {
		r.mu.Lock()
		r.active = false
		r.state = Stopped
		r.mu.Unlock()
	}()

	r.logger.Info("Crawler started", "interval", r.interval)
	for {
		select {
		case <-stop:
			r.logger.Info("Crawler stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delay, _ := r.runCycle(ctx)

		if err := r.wait(ctx, stop, delay); err != nil {
			if errors.Is(err, errStopped) {
				r.logger.Info("Crawler stopped")
				return nil
			}
			return err
		}
	}
}

var errStopped = errors.New("stopped")

// wait blocks for delay. A Reschedule restarts the wait with the new delay
// measured from now.
func (r *Runner) wait(ctx context.Context, stop chan struct{}, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	r.markWaiting(delay)

	for {
		select {
		case <-timer.C:
			return nil
		case d := <-r.reschedule:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			r.logger.Info("Next cycle rescheduled", "delay", d)
			timer.Reset(d)
			r.markWaiting(d)
		case <-stop:
			return errStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) markWaiting(d time.Duration) {
	r.mu.Lock()
	r.state = Waiting
	r.nextRun = time.Now().Add(d)
	r.mu.Unlock()
	r.logger.Debug("Waiting for next cycle", "delay", d)
}

// Reschedule replaces the pending wait with d. It has no effect when the
// runner is not looping.
func (r *Runner) Reschedule(d time.Duration) {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if !active {
		return
	}
	select {
	case <-r.reschedule:
	default:
	}
	select {
	case r.reschedule <- d:
	default:
	}
}

// Stop prevents any further cycle. A cycle in flight runs to completion.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active && r.stop != nil {
		select {
		case <-r.stop:
		default:
			close(r.stop)
		}
	}
	if r.state != Running {
		r.state = Stopped
	}
}
