package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Engine runs one scheduling tick: materialize today's chores, evaluate the
// reminder cadence over all open instances, send what is due. The three
// phases run sequentially; overlapping ticks are skipped, not queued.
type Engine struct {
	materializer *Materializer
	reminders    *ReminderEngine
	notifier     *Notifier
	log          zerolog.Logger

	busy atomic.Bool
}

func NewEngine(materializer *Materializer, reminders *ReminderEngine, notifier *Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		materializer: materializer,
		reminders:    reminders,
		notifier:     notifier,
		log:          log.With().Str("comp", "engine").Logger(),
	}
}

// Tick is the single entry point the host scheduler calls. A returned error
// means the whole tick was aborted (store unreachable); the transactions
// involved roll back cleanly and the next tick retries from a clean state.
func (e *Engine) Tick(ctx context.Context) error {
	if !e.busy.CompareAndSwap(false, true) {
		e.log.Debug().Msg("tick skipped, previous run still in progress")
		return nil
	}
	defer e.busy.Store(false)

	created, err := e.materializer.Run(ctx)
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}
	due, err := e.reminders.DueForReminder(ctx, created)
	if err != nil {
		return fmt.Errorf("evaluate cadence: %w", err)
	}
	e.notifier.Remind(ctx, due)
	return nil
}
