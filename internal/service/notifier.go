package service

import (
	"context"

	"github.com/rs/zerolog"

	"chorebot/internal/model"
	"chorebot/internal/repository"
)

// Messenger is the outbound chat surface the notifier drives. Message
// content and formatting live behind it; the notifier only cares about the
// handles that come back. Both calls may fail or be slow.
type Messenger interface {
	// SendReminder posts a fresh reminder message for the instance and
	// returns the chat and message ids needed to edit it later.
	SendReminder(ctx context.Context, inst model.ChoreInstance) (chatID int64, messageID int, err error)
	// MarkCompleted rewrites one previously sent message to its terminal
	// "complete" form.
	MarkCompleted(ctx context.Context, rec model.NotificationRecord, inst model.ChoreInstance) error
}

// Notifier owns the notification lifecycle of an instance: every reminder is
// a new message (history stays visible), completion rewrites all of them in
// place, reassignment touches neither.
type Notifier struct {
	instances *repository.InstanceRepository
	records   *repository.NotificationRepository
	chat      Messenger
	clock     Clock
	log       zerolog.Logger
}

func NewNotifier(instances *repository.InstanceRepository, records *repository.NotificationRepository, chat Messenger, clock Clock, log zerolog.Logger) *Notifier {
	return &Notifier{
		instances: instances,
		records:   records,
		chat:      chat,
		clock:     clock,
		log:       log.With().Str("comp", "notifier").Logger(),
	}
}

// Remind sends one fresh message per instance and records the handle. On a
// send failure the last-reminder timestamp is left untouched, so the next
// tick's cadence check naturally fires again; failures never stop the rest
// of the batch.
func (n *Notifier) Remind(ctx context.Context, ids []uint) {
	for _, id := range ids {
		inst, err := n.instances.FindByID(ctx, id)
		if err != nil {
			n.log.Error().Err(err).Uint("instance", id).Msg("load instance for reminder")
			continue
		}
		chatID, messageID, err := n.chat.SendReminder(ctx, *inst)
		if err != nil {
			n.log.Warn().Err(err).Uint("instance", id).Msg("reminder send failed, will retry next tick")
			continue
		}
		rec := model.NotificationRecord{InstanceID: id, ChatID: chatID, MessageID: messageID}
		if err := n.instances.FireReminder(ctx, id, n.clock.Now(), &rec); err != nil {
			// The message is out but untracked; it will be re-sent rather
			// than silently dropped.
			n.log.Error().Err(err).Uint("instance", id).Int("message", messageID).
				Msg("reminder sent but not recorded")
			continue
		}
		n.log.Info().Uint("instance", id).Str("name", inst.Name).Msg("reminder sent")
	}
}

// Complete marks the instance done and rewrites every one of its sent
// messages to the terminal form. Calling it on an already-done instance is a
// safe no-op: no new edits are issued. Edit failures are logged per message
// and do not undo completion.
func (n *Notifier) Complete(ctx context.Context, id uint) (*model.ChoreInstance, error) {
	inst, err := n.instances.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Done {
		return inst, nil
	}
	if err := n.instances.MarkDone(ctx, inst); err != nil {
		return nil, err
	}

	records, err := n.records.ListByInstance(ctx, id)
	if err != nil {
		n.log.Error().Err(err).Uint("instance", id).Msg("list notification records")
		return inst, nil
	}
	for _, rec := range records {
		if err := n.chat.MarkCompleted(ctx, rec, *inst); err != nil {
			n.log.Warn().Err(err).Uint("instance", id).Int("message", rec.MessageID).
				Msg("completion edit failed")
		}
	}
	n.log.Info().Uint("instance", id).Str("name", inst.Name).Int("messages", len(records)).
		Msg("chore completed")
	return inst, nil
}

// Reassign hands this one occurrence to a different assignee. Future cadence
// evaluation targets the new assignee; messages already sent are deliberately
// left addressed to the old one, matching the one-off nature of the action.
// Template-level reassignment is a template edit and affects future
// instances only.
func (n *Notifier) Reassign(ctx context.Context, id uint, assignee string) (*model.ChoreInstance, error) {
	inst, err := n.instances.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Done {
		return nil, ErrInstanceDone
	}
	previous := ""
	if inst.Assignee != nil {
		previous = *inst.Assignee
	}
	if err := n.instances.UpdateAssignee(ctx, inst, assignee); err != nil {
		return nil, err
	}
	n.log.Info().Uint("instance", id).Str("name", inst.Name).
		Str("from", previous).Str("to", assignee).Msg("chore reassigned")
	return inst, nil
}
