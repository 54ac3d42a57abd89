package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"roomguard/internal/model"
)

// Sink is one delivery channel for alerts. Send failures are the sink's to
// report and the dispatcher's to log; nothing propagates further.
type Sink interface {
	Name() string
	Send(ctx context.Context, alert model.Alert) error
	Close() error
}

// Dispatcher fans qualifying alerts out to its sinks, one detached goroutine
// per alert, so the recording path never waits on network I/O. Delivery is
// best-effort: no retries, no ordering guarantee.
type Dispatcher struct {
	sinks       []Sink
	logger      *slog.Logger
	minSeverity model.Severity
	timeout     time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(logger *slog.Logger, minSeverity model.Severity, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return &Dispatcher{
		sinks:       live,
		logger:      logger,
		minSeverity: minSeverity,
		timeout:     timeout,
	}
}

// Dispatch returns immediately. Alerts below the severity floor are dropped,
// as are alerts arriving after Close.
func (d *Dispatcher) Dispatch(alert model.Alert) {
	if d == nil || len(d.sinks) == 0 {
		return
	}
	if !alert.Severity.AtLeast(d.minSeverity) {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		for _, s := range d.sinks {
			if err := s.Send(ctx, alert); err != nil {
				if d.logger != nil {
					d.logger.Error("alert dispatch failed",
						"sink", s.Name(),
						"alert_id", alert.ID,
						"alert_type", alert.Type,
						"severity", alert.Severity,
						"err", err,
					)
				}
			}
		}
	}()
}

// Close stops accepting new dispatches, waits for in-flight ones to finish,
// then closes the sinks. Safe to call once from shutdown.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
	for _, s := range d.sinks {
		if err := s.Close(); err != nil && d.logger != nil {
			d.logger.Error("sink close failed", "sink", s.Name(), "err", err)
		}
	}
}

// Drain waits for in-flight dispatches without closing sinks.
func (d *Dispatcher) Drain() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
