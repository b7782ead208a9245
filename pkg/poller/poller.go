package poller

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// Task is one poll. Errors are logged and polling continues.
type Task func(ctx context.Context) error

// Poller runs a task on a fixed interval until its context is cancelled.
// Trigger runs it out of band; callers arriving while a run is in flight
// share that run instead of starting another.
type Poller struct {
	name     string
	interval time.Duration
	task     Task
	group    singleflight.Group
}

func New(name string, interval time.Duration, task Task) *Poller {
	return &Poller{name: name, interval: interval, task: task}
}

// Trigger runs the task now, or waits for the run already in flight.
func (p *Poller) Trigger(ctx context.Context) error {
	_, err, _ := p.group.Do(p.name, func() (any, error) {
		return nil, p.task(ctx)
	})
	return err
}

// Run polls immediately and then every interval. It returns ctx.Err() once
// ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Trigger(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[POLL] %s failed: %v", p.name, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
