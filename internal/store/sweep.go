package store

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper periodically triggers the mailbox's bounded active-expiration
// sweep on a gocron schedule, in the style of the scheduled maintenance
// jobs a larger server registers at startup. It is pure memory-bounding
// housekeeping: lazy expiration on read already guarantees correctness
// without it (spec.md §4.2, §9).
type Sweeper struct {
	scheduler gocron.Scheduler
	mailbox   *Mailbox

	// OnSweep, if set, is called after each tick with the number of keys
	// removed, for metrics collection.
	OnSweep func(removed int)
}

// NewSweeper builds a Sweeper without starting it. interval controls how
// often the sweep runs; sample bounds how many keys each tick samples.
func NewSweeper(mailbox *Mailbox, interval time.Duration, sample int) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	sw := &Sweeper{scheduler: scheduler, mailbox: mailbox}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			removed := sw.mailbox.TriggerSweep(ctx, sample)
			if sw.OnSweep != nil {
				sw.OnSweep(removed)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return sw, nil
}

// Start begins running the scheduled sweep job.
func (s *Sweeper) Start() { s.scheduler.Start() }

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Sweeper) Stop() error { return s.scheduler.Shutdown() }
