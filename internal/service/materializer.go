package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chorebot/internal/model"
	"chorebot/internal/repository"
)

// Materializer turns templates whose recurrence lands on today into open
// chore instances, at most once per template per day.
type Materializer struct {
	templates  *repository.TemplateRepository
	clock      Clock
	cutoffHour int
	log        zerolog.Logger
}

func NewMaterializer(templates *repository.TemplateRepository, clock Clock, cutoffHour int, log zerolog.Logger) *Materializer {
	return &Materializer{
		templates:  templates,
		clock:      clock,
		cutoffHour: cutoffHour,
		log:        log.With().Str("comp", "materializer").Logger(),
	}
}

// Run performs one materialization pass and returns the ids of the instances
// it created, so the caller can put them straight into reminder evaluation.
// Before the local cutoff hour the pass is a no-op. The watermark check makes
// reruns within the same day no-ops as well. A broken rule on one template is
// logged and skipped; it never blocks the remaining templates. A store
// failure aborts the pass.
func (m *Materializer) Run(ctx context.Context) ([]uint, error) {
	now := m.clock.Now()
	if now.Hour() < m.cutoffHour {
		return nil, nil
	}
	today := midnight(now)

	candidates, err := m.templates.ListStale(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var created []uint
	for _, tmpl := range candidates {
		if tmpl.Assignee == nil {
			continue
		}
		next, err := NextOccurrence(tmpl.Recurrence, today)
		if err != nil {
			m.log.Error().Err(err).Uint("template", tmpl.ID).Str("name", tmpl.Name).
				Msg("recurrence rule rejected, template skipped")
			continue
		}
		if next.IsZero() {
			continue
		}
		m.log.Debug().Uint("template", tmpl.ID).Str("name", tmpl.Name).
			Time("next", next).Time("watermark", tmpl.GeneratedThrough).
			Msg("next occurrence")
		if !sameDay(next, today) {
			continue
		}

		inst := model.ChoreInstance{
			Name:               tmpl.Name,
			DueAt:              now,
			LastRemindAt:       now,
			ReminderScheduleID: tmpl.ReminderScheduleID,
			Assignee:           tmpl.Assignee,
		}
		if err := m.templates.Materialize(ctx, tmpl.ID, today, &inst); err != nil {
			m.log.Error().Err(err).Uint("template", tmpl.ID).Msg("materialize failed")
			continue
		}
		m.log.Info().Uint("template", tmpl.ID).Uint("instance", inst.ID).
			Str("name", inst.Name).Msg("chore instance created")
		created = append(created, inst.ID)
	}
	return created, nil
}
