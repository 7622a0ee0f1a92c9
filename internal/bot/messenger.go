package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chorebot/internal/model"
)

// Messenger delivers chore messages over Telegram. Reminders go to the
// assignee's private chat; the chat and message ids of every send are handed
// back so completion can edit those messages in place.
type Messenger struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

func NewMessenger(api *tgbotapi.BotAPI, log zerolog.Logger) *Messenger {
	return &Messenger{api: api, log: log.With().Str("comp", "messenger").Logger()}
}

// SendReminder posts a fresh reminder with complete/reassign buttons.
func (m *Messenger) SendReminder(ctx context.Context, inst model.ChoreInstance) (int64, int, error) {
	if inst.Assignee == nil {
		return 0, 0, fmt.Errorf("instance %d has no assignee", inst.ID)
	}
	chatID, err := strconv.ParseInt(*inst.Assignee, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("assignee %q is not a chat id: %w", *inst.Assignee, err)
	}

	msg := tgbotapi.NewMessage(chatID, reminderText(inst))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = instanceKeyboard(inst.ID)

	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("send reminder: %w", err)
	}
	return chatID, sent.MessageID, nil
}

// MarkCompleted rewrites one previously sent reminder to its terminal form,
// dropping the action buttons.
func (m *Messenger) MarkCompleted(ctx context.Context, rec model.NotificationRecord, inst model.ChoreInstance) error {
	edit := tgbotapi.NewEditMessageText(rec.ChatID, rec.MessageID, completedText(inst))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := m.api.Send(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", rec.MessageID, err)
	}
	return nil
}

func reminderText(inst model.ChoreInstance) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧹 <b>Chore:</b> %s\n", escape(inst.Name)))
	sb.WriteString(fmt.Sprintf("⏰ Due %s\n", inst.DueAt.Format("Mon, 02 Jan 2006")))
	sb.WriteString("<i>If you can't do it this time, reassign it to someone who can after checking with them.</i>")
	return sb.String()
}

func completedText(inst model.ChoreInstance) string {
	return fmt.Sprintf("✅ Chore <b>%s</b> complete!", escape(inst.Name))
}

func instanceKeyboard(id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I did this chore", fmt.Sprintf("%s%d", cbCompletePrefix, id)),
			tgbotapi.NewInlineKeyboardButtonData("♻️ Reassign", fmt.Sprintf("%s%d", cbReassignPrefix, id)),
		),
	)
}

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
