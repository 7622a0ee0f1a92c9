package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chorebot/internal/repository"
)

// ReminderEngine decides which open instances are owed a reminder this tick
// by applying the cadence lookup law to their elapsed overdue time.
type ReminderEngine struct {
	instances *repository.InstanceRepository
	schedules *repository.ScheduleRepository
	clock     Clock
	log       zerolog.Logger
}

func NewReminderEngine(instances *repository.InstanceRepository, schedules *repository.ScheduleRepository, clock Clock, log zerolog.Logger) *ReminderEngine {
	return &ReminderEngine{
		instances: instances,
		schedules: schedules,
		clock:     clock,
		log:       log.With().Str("comp", "cadence").Logger(),
	}
}

// DueForReminder returns the instances that must notify now. Newly
// materialized instances are included unconditionally: a fresh chore is
// announced immediately, not one cadence interval later. Instances without an
// assignee are excluded from evaluation entirely.
func (e *ReminderEngine) DueForReminder(ctx context.Context, newInstances []uint) ([]uint, error) {
	now := e.clock.Now()

	due := make([]uint, 0, len(newInstances))
	seen := make(map[uint]bool, len(newInstances))
	for _, id := range newInstances {
		due = append(due, id)
		seen[id] = true
	}

	cadences, err := e.loadCadences(ctx)
	if err != nil {
		return nil, err
	}

	open, err := e.instances.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open instances: %w", err)
	}

	for _, inst := range open {
		if inst.Assignee == nil || seen[inst.ID] {
			continue
		}

		var pairs []CadencePair
		if inst.ReminderScheduleID != nil {
			pairs = cadences[*inst.ReminderScheduleID]
		}
		required := RequiredInterval(pairs, now.Sub(inst.DueAt))
		if now.Sub(inst.LastRemindAt) > required {
			due = append(due, inst.ID)
		}
	}
	return due, nil
}

// loadCadences reparses every schedule each tick so edits made between ticks
// take effect without a restart. A malformed schedule is logged and treated
// as never-reminding until its owner fixes it; it must not poison the tick.
func (e *ReminderEngine) loadCadences(ctx context.Context) (map[uint][]CadencePair, error) {
	schedules, err := e.schedules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	cadences := make(map[uint][]CadencePair, len(schedules))
	for _, sched := range schedules {
		pairs, err := ParseCadence(sched.Cadence)
		if err != nil {
			e.log.Error().Err(err).Uint("schedule", sched.ID).Str("name", sched.Name).
				Msg("cadence spec rejected")
			continue
		}
		cadences[sched.ID] = pairs
	}
	return cadences, nil
}
