package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorebot/internal/model"
	"chorebot/internal/repository"
)

// Monday 2026-01-05, comfortably past the 9:00 cutoff.
var monday10am = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

func newMaterializer(t *testing.T, clock Clock) (*Materializer, *repository.TemplateRepository, *repository.InstanceRepository) {
	t.Helper()
	db := newTestDB(t)
	templates := repository.NewTemplateRepository(db)
	instances := repository.NewInstanceRepository(db)
	return NewMaterializer(templates, clock, 9, testLogger()), templates, instances
}

func TestMaterializer_CreatesInstanceOnMatchingDay(t *testing.T) {
	t.Parallel()

	clock := &stubClock{t: monday10am}
	m, templates, instances := newMaterializer(t, clock)
	ctx := context.Background()

	tmpl := &model.ChoreTemplate{
		Name:       "Empty the autoclave",
		Assignee:   strPtr("42"),
		Recurrence: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
	}
	require.NoError(t, templates.Create(ctx, tmpl))

	created, err := m.Run(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)

	inst, err := instances.FindByID(ctx, created[0])
	require.NoError(t, err)
	assert.Equal(t, "Empty the autoclave", inst.Name)
	assert.False(t, inst.Done)
	assert.Equal(t, "42", *inst.Assignee)
	assert.True(t, inst.DueAt.Equal(monday10am))
	assert.True(t, inst.LastRemindAt.Equal(monday10am))

	// The watermark advanced with the insert.
	got, err := templates.FindByID(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.True(t, sameDay(got.GeneratedThrough, monday10am))
}

func TestMaterializer_IdempotentWithinDay(t *testing.T) {
	t.Parallel()

	clock := &stubClock{t: monday10am}
	m, templates, _ := newMaterializer(t, clock)
	ctx := context.Background()

	require.NoError(t, templates.Create(ctx, &model.ChoreTemplate{
		Name:       "Refill pipette tips",
		Assignee:   strPtr("42"),
		Recurrence: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
	}))

	first, err := m.Run(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same day, later tick: the watermark guard makes this a no-op.
	clock.Advance(4 * time.Hour)
	second, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestMaterializer_SkipsBeforeCutoff(t *testing.T) {
	t.Parallel()

	clock := &stubClock{t: time.Date(2026, 1, 5, 7, 30, 0, 0, time.UTC)}
	m, templates, _ := newMaterializer(t, clock)
	ctx := context.Background()

	require.NoError(t, templates.Create(ctx, &model.ChoreTemplate{
		Name:       "Water the plants",
		Assignee:   strPtr("42"),
		Recurrence: "FREQ=DAILY",
	}))

	created, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, created, "no materialization before the cutoff hour")

	// Once past the cutoff the same tick materializes.
	clock.Advance(2 * time.Hour)
	created, err = m.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestMaterializer_SkipsNonMatchingDay(t *testing.T) {
	t.Parallel()

	// Wednesday: the weekly-Monday template's next occurrence is next Monday.
	clock := &stubClock{t: time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)}
	m, templates, _ := newMaterializer(t, clock)
	ctx := context.Background()

	require.NoError(t, templates.Create(ctx, &model.ChoreTemplate{
		Name:       "Defrost the -80 freezer",
		Assignee:   strPtr("42"),
		Recurrence: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
	}))

	created, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestMaterializer_SkipsUnassignedTemplate(t *testing.T) {
	t.Parallel()

	clock := &stubClock{t: monday10am}
	m, templates, _ := newMaterializer(t, clock)
	ctx := context.Background()

	require.NoError(t, templates.Create(ctx, &model.ChoreTemplate{
		Name:       "Orphaned chore",
		Recurrence: "FREQ=DAILY",
	}))

	created, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, created, "templates without an assignee are inert")
}

func TestMaterializer_BadRuleIsolatedPerTemplate(t *testing.T) {
	t.Parallel()

	clock := &stubClock{t: monday10am}
	m, templates, _ := newMaterializer(t, clock)
	ctx := context.Background()

	require.NoError(t, templates.Create(ctx, &model.ChoreTemplate{
		Name:         "Broken rule",
		SortPriority: 1,
		Assignee:     strPtr("42"),
		Recurrence:   "FREQ=NEVERMIND",
	}))
	require.NoError(t, templates.Create(ctx, &model.ChoreTemplate{
		Name:         "Healthy rule",
		SortPriority: 2,
		Assignee:     strPtr("43"),
		Recurrence:   "FREQ=DAILY",
	}))

	created, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 1, "the broken template must not block the healthy one")
}
