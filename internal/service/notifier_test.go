package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chorebot/internal/model"
	"chorebot/internal/repository"
)

// fakeMessenger records outbound traffic instead of talking to a chat API.
type fakeMessenger struct {
	sends     []uint
	edits     []int
	nextMsgID int
	failSends bool
}

func (f *fakeMessenger) SendReminder(ctx context.Context, inst model.ChoreInstance) (int64, int, error) {
	if f.failSends {
		return 0, 0, fmt.Errorf("chat unavailable")
	}
	f.sends = append(f.sends, inst.ID)
	f.nextMsgID++
	return 42, f.nextMsgID, nil
}

func (f *fakeMessenger) MarkCompleted(ctx context.Context, rec model.NotificationRecord, inst model.ChoreInstance) error {
	f.edits = append(f.edits, rec.MessageID)
	return nil
}

type notifierFixture struct {
	notifier  *Notifier
	instances *repository.InstanceRepository
	records   *repository.NotificationRepository
	chat      *fakeMessenger
	clock     *stubClock
	db        *gorm.DB
}

func newNotifierFixture(t *testing.T) *notifierFixture {
	t.Helper()
	db := newTestDB(t)
	clock := &stubClock{t: monday10am}
	chat := &fakeMessenger{}
	instances := repository.NewInstanceRepository(db)
	records := repository.NewNotificationRepository(db)
	return &notifierFixture{
		notifier:  NewNotifier(instances, records, chat, clock, testLogger()),
		instances: instances,
		records:   records,
		chat:      chat,
		clock:     clock,
		db:        db,
	}
}

func (f *notifierFixture) addInstance(t *testing.T) uint {
	t.Helper()
	now := f.clock.Now()
	inst := &model.ChoreInstance{
		Name:         "Restock gloves",
		DueAt:        now.Add(-24 * time.Hour),
		LastRemindAt: now.Add(-24 * time.Hour),
		Assignee:     strPtr("42"),
	}
	require.NoError(t, f.db.Create(inst).Error)
	return inst.ID
}

func TestNotifier_RemindRecordsHandle(t *testing.T) {
	t.Parallel()

	f := newNotifierFixture(t)
	ctx := context.Background()
	id := f.addInstance(t)

	f.notifier.Remind(ctx, []uint{id})

	assert.Equal(t, []uint{id}, f.chat.sends)
	records, err := f.records.ListByInstance(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(42), records[0].ChatID)

	inst, err := f.instances.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, inst.LastRemindAt.Equal(f.clock.Now()), "last reminder advanced with the send")
}

func TestNotifier_SendFailureLeavesTimerUntouched(t *testing.T) {
	t.Parallel()

	f := newNotifierFixture(t)
	ctx := context.Background()
	id := f.addInstance(t)
	before, err := f.instances.FindByID(ctx, id)
	require.NoError(t, err)

	f.chat.failSends = true
	f.notifier.Remind(ctx, []uint{id})

	records, err := f.records.ListByInstance(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, records, "no record for a failed send")

	after, err := f.instances.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, after.LastRemindAt.Equal(before.LastRemindAt),
		"timer untouched so the next tick retries naturally")
}

func TestNotifier_CompleteEditsEveryMessageOnce(t *testing.T) {
	t.Parallel()

	f := newNotifierFixture(t)
	ctx := context.Background()
	id := f.addInstance(t)

	// Three reminders over time, three records.
	for i := 0; i < 3; i++ {
		f.notifier.Remind(ctx, []uint{id})
		f.clock.Advance(12 * time.Hour)
	}
	require.Len(t, f.chat.sends, 3)

	inst, err := f.notifier.Complete(ctx, id)
	require.NoError(t, err)
	assert.True(t, inst.Done)
	assert.ElementsMatch(t, []int{1, 2, 3}, f.chat.edits, "exactly one edit per sent message")
	assert.Len(t, f.chat.sends, 3, "completion sends nothing new")
}

func TestNotifier_CompleteIdempotent(t *testing.T) {
	t.Parallel()

	f := newNotifierFixture(t)
	ctx := context.Background()
	id := f.addInstance(t)

	f.notifier.Remind(ctx, []uint{id})
	_, err := f.notifier.Complete(ctx, id)
	require.NoError(t, err)
	editsAfterFirst := len(f.chat.edits)

	// Completing again is a safe no-op: no duplicate edits.
	inst, err := f.notifier.Complete(ctx, id)
	require.NoError(t, err)
	assert.True(t, inst.Done)
	assert.Len(t, f.chat.edits, editsAfterFirst)
}

func TestNotifier_ReassignChangesAssigneeOnly(t *testing.T) {
	t.Parallel()

	f := newNotifierFixture(t)
	ctx := context.Background()
	id := f.addInstance(t)
	f.notifier.Remind(ctx, []uint{id})
	sendsBefore := len(f.chat.sends)

	inst, err := f.notifier.Reassign(ctx, id, "77")
	require.NoError(t, err)
	assert.Equal(t, "77", *inst.Assignee)
	assert.Len(t, f.chat.sends, sendsBefore, "reassignment sends nothing")
	assert.Empty(t, f.chat.edits, "reassignment rewrites nothing")
}

func TestNotifier_ReassignRejectsDoneInstance(t *testing.T) {
	t.Parallel()

	f := newNotifierFixture(t)
	ctx := context.Background()
	id := f.addInstance(t)
	_, err := f.notifier.Complete(ctx, id)
	require.NoError(t, err)

	_, err = f.notifier.Reassign(ctx, id, "77")
	assert.ErrorIs(t, err, ErrInstanceDone)
}
