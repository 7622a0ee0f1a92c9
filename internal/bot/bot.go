package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chorebot/internal/model"
	"chorebot/internal/repository"
	"chorebot/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTemplateName
	stageTemplateAssignee
	stageTemplateRecurrence
	stageTemplateSchedule
	stageTemplatePriority
	stageScheduleName
	stageScheduleCadence
	stageReassignTarget
)

const (
	cbCompletePrefix = "complete:"
	cbReassignPrefix = "reassign:"
)

const defaultRecurrence = "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO"

type templateDraft struct {
	name       string
	assignee   *string
	recurrence string
	scheduleID *uint
}

type scheduleDraft struct {
	name string
}

type conversationState struct {
	stage      conversationStage
	template   templateDraft
	schedule   scheduleDraft
	reassignID uint
}

// Bot aggregates the Telegram API with the chore services.
type Bot struct {
	api           *tgbotapi.BotAPI
	templates     *repository.TemplateRepository
	schedules     *repository.ScheduleRepository
	instances     *repository.InstanceRepository
	notifier      *service.Notifier
	log           zerolog.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(api *tgbotapi.BotAPI, templates *repository.TemplateRepository, schedules *repository.ScheduleRepository, instances *repository.InstanceRepository, notifier *service.Notifier, log zerolog.Logger) *Bot {
	return &Bot{
		api:           api,
		templates:     templates,
		schedules:     schedules,
		instances:     instances,
		notifier:      notifier,
		log:           log.With().Str("comp", "bot").Logger(),
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Str("account", b.api.Self.UserName).Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.log.Debug().Int64("user", msg.From.ID).Str("command", msg.Command()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /chores to see what's open, or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "chores":
		return b.handleListChores(ctx, msg)
	case "templates":
		return b.handleListTemplates(ctx, msg)
	case "newtemplate":
		return b.startTemplateConversation(msg)
	case "deltemplate":
		return b.handleDeleteTemplate(ctx, msg)
	case "assign":
		return b.handleAssignTemplate(ctx, msg)
	case "schedules":
		return b.handleListSchedules(ctx, msg)
	case "newschedule":
		return b.startScheduleConversation(msg)
	case "delschedule":
		return b.handleDeleteSchedule(ctx, msg)
	case "status":
		return b.handleStatus(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Dialog cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command, see /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(
		"👋 Hi %s!\n<b>I keep track of recurring chores and nag the right person until they're done.</b>\n\nCommands:\n"+
			"• /chores — open chores with complete/reassign buttons\n"+
			"• /templates — recurring chore definitions\n"+
			"• /newtemplate — define a new recurring chore\n"+
			"• /schedules — reminder escalation schedules\n"+
			"• /status — quick overview\n"+
			"• /help — all commands",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /chores — list open chores, complete or reassign them\n" +
		"• /templates — list chore templates\n" +
		"• /newtemplate — add a template step by step\n" +
		"• /deltemplate &lt;id&gt; — delete a template (history stays)\n" +
		"• /assign &lt;template id&gt; &lt;user id|me&gt; — reassign all future chores\n" +
		"• /schedules — list reminder schedules\n" +
		"• /newschedule — add a reminder schedule\n" +
		"• /delschedule &lt;id&gt; — delete a schedule\n" +
		"• /status — counts of templates and open chores\n" +
		"• /cancel — abort the current dialog\n\n" +
		"Recurrence uses RFC 5545 RRULE syntax, e.g. <code>" + defaultRecurrence + "</code>.\n" +
		"Reminder schedules are <code>delay=interval</code> pairs: <code>0s=1d; 2d=12h; 4d=4h</code> " +
		"means remind daily at first, every 12 hours once two days overdue, every 4 hours after four days."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListChores(ctx context.Context, msg *tgbotapi.Message) error {
	open, err := b.instances.ListOpen(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't load chores: %s", escape(err.Error())))
	}
	if len(open) == 0 {
		return b.sendText(msg.Chat.ID, "🎉 No open chores.")
	}
	for _, inst := range open {
		assignee := "nobody"
		if inst.Assignee != nil {
			assignee = *inst.Assignee
		}
		text := fmt.Sprintf("🧹 <b>#%d %s</b>\n⏰ Due %s\n👤 Assigned to <code>%s</code>",
			inst.ID, escape(inst.Name), inst.DueAt.Format("2006-01-02"), escape(assignee))
		out := tgbotapi.NewMessage(msg.Chat.ID, text)
		out.ParseMode = tgbotapi.ModeHTML
		out.ReplyMarkup = instanceKeyboard(inst.ID)
		if _, err := b.api.Send(out); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleListTemplates(ctx context.Context, msg *tgbotapi.Message) error {
	templates, err := b.templates.List(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't load templates: %s", escape(err.Error())))
	}
	if len(templates) == 0 {
		return b.sendText(msg.Chat.ID, "No templates yet. Add one with /newtemplate.")
	}

	scheduleNames, err := b.scheduleNames(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't load schedules: %s", escape(err.Error())))
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Chore templates</b>\n")
	for _, tmpl := range templates {
		assignee := "—"
		if tmpl.Assignee != nil {
			assignee = *tmpl.Assignee
		}
		schedule := "no reminders"
		if tmpl.ReminderScheduleID != nil {
			if name, ok := scheduleNames[*tmpl.ReminderScheduleID]; ok {
				schedule = name
			}
		}
		sb.WriteString(fmt.Sprintf("• <b>#%d %s</b> → <code>%s</code>\n   🔁 <code>%s</code> · 🔔 %s\n",
			tmpl.ID, escape(tmpl.Name), escape(assignee), escape(tmpl.Recurrence), escape(schedule)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleDeleteTemplate(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a template id: /deltemplate 3")
	}
	if err := b.templates.Delete(ctx, id); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't delete: %s", escape(err.Error())))
	}
	b.log.Info().Uint("template", id).Int64("user", msg.From.ID).Msg("template deleted")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Template #%d deleted. Already generated chores are untouched.", id))
}

// handleAssignTemplate is the template-level reassignment: it only affects
// instances generated from now on.
func (b *Bot) handleAssignTemplate(ctx context.Context, msg *tgbotapi.Message) error {
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /assign &lt;template id&gt; &lt;user id|me&gt;")
	}
	id, err := parseIDArg(parts[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Template id must be a number.")
	}
	assignee, err := resolveAssignee(parts[1], msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}

	tmpl, err := b.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Template not found.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	tmpl.Assignee = &assignee
	if err := b.templates.Update(ctx, tmpl); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't save: %s", escape(err.Error())))
	}
	b.log.Info().Uint("template", id).Str("assignee", assignee).Msg("template reassigned")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👤 Future chores of <b>%s</b> go to <code>%s</code>.", escape(tmpl.Name), escape(assignee)))
}

func (b *Bot) handleListSchedules(ctx context.Context, msg *tgbotapi.Message) error {
	schedules, err := b.schedules.List(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't load schedules: %s", escape(err.Error())))
	}
	if len(schedules) == 0 {
		return b.sendText(msg.Chat.ID, "No reminder schedules yet. Add one with /newschedule.")
	}
	var sb strings.Builder
	sb.WriteString("🔔 <b>Reminder schedules</b>\n")
	for _, sched := range schedules {
		sb.WriteString(fmt.Sprintf("• <b>#%d %s</b>: <code>%s</code>\n", sched.ID, escape(sched.Name), escape(sched.Cadence)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleDeleteSchedule(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a schedule id: /delschedule 2")
	}
	if err := b.schedules.Delete(ctx, id); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't delete: %s", escape(err.Error())))
	}
	b.log.Info().Uint("schedule", id).Int64("user", msg.From.ID).Msg("schedule deleted")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Schedule #%d deleted. Chores that used it stop escalating.", id))
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) error {
	nTemplates, err := b.templates.Count(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	nOpen, err := b.instances.CountOpen(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📊 %d templates defined, %d chores open.", nTemplates, nOpen))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	data := cq.Data

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		id, err := parseIDArg(strings.TrimPrefix(data, cbCompletePrefix))
		if err != nil {
			return b.answerCallback(cq, "Broken button.")
		}
		inst, err := b.notifier.Complete(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return b.answerCallback(cq, "This chore no longer exists.")
			}
			b.log.Error().Err(err).Uint("instance", id).Msg("complete failed")
			return b.answerCallback(cq, "Couldn't complete the chore, try again.")
		}
		return b.answerCallback(cq, fmt.Sprintf("✅ %s done!", inst.Name))

	case strings.HasPrefix(data, cbReassignPrefix):
		id, err := parseIDArg(strings.TrimPrefix(data, cbReassignPrefix))
		if err != nil {
			return b.answerCallback(cq, "Broken button.")
		}
		b.setConversation(cq.From.ID, &conversationState{stage: stageReassignTarget, reassignID: id})
		if err := b.answerCallback(cq, ""); err != nil {
			return err
		}
		return b.sendText(cq.From.ID, fmt.Sprintf("♻️ Who takes over chore #%d this one time? Send their user id, or <code>me</code>.", id))
	}
	return b.answerCallback(cq, "")
}

func (b *Bot) answerCallback(cq *tgbotapi.CallbackQuery, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(cq.ID, text))
	return err
}

func (b *Bot) startTemplateConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.From.ID, &conversationState{stage: stageTemplateName})
	return b.sendText(msg.Chat.ID, "🆕 New chore template.\n<b>Step 1:</b> what is the chore called?")
}

func (b *Bot) startScheduleConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.From.ID, &conversationState{stage: stageScheduleName})
	return b.sendText(msg.Chat.ID, "🆕 New reminder schedule.\n<b>Step 1:</b> give it a short name.")
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTemplateName:
		if text == "" {
			return b.sendText(msg.Chat.ID, "The name can't be empty.")
		}
		state.template.name = text
		state.stage = stageTemplateAssignee
		return b.sendText(msg.Chat.ID, "👤 Who is responsible? Send their user id, <code>me</code>, or <code>-</code> for nobody yet (the chore stays inert until assigned).")
	case stageTemplateAssignee:
		if text != "-" {
			assignee, err := resolveAssignee(text, msg.From.ID)
			if err != nil {
				return b.sendText(msg.Chat.ID, escape(err.Error()))
			}
			state.template.assignee = &assignee
		}
		state.stage = stageTemplateRecurrence
		return b.sendText(msg.Chat.ID, "🔁 Send an RRULE recurrence, or <code>-</code> for the default <code>"+defaultRecurrence+"</code>.\nAnything a calendar app can do works; use an RRULE generator for the fancy ones.")
	case stageTemplateRecurrence:
		rule := defaultRecurrence
		if text != "-" {
			if err := service.ValidateRecurrence(text); err != nil {
				return b.sendText(msg.Chat.ID, fmt.Sprintf("That rule doesn't parse: %s\nTry again or send <code>-</code> for the default.", escape(err.Error())))
			}
			rule = text
		}
		state.template.recurrence = rule
		state.stage = stageTemplateSchedule
		return b.sendText(msg.Chat.ID, "🔔 Reminder schedule id (see /schedules), or <code>-</code> for none (one announcement, no escalation).")
	case stageTemplateSchedule:
		if text != "-" {
			id, err := parseIDArg(text)
			if err != nil {
				return b.sendText(msg.Chat.ID, "Schedule id must be a number, or <code>-</code> for none.")
			}
			if _, err := b.schedules.FindByID(ctx, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return b.sendText(msg.Chat.ID, "No such schedule, check /schedules.")
				}
				return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
			}
			state.template.scheduleID = &id
		}
		state.stage = stageTemplatePriority
		return b.sendText(msg.Chat.ID, "🔢 Sort priority (lower shows first), or <code>-</code> for 0.")
	case stageTemplatePriority:
		priority := 0
		if text != "-" {
			p, err := strconv.Atoi(text)
			if err != nil {
				return b.sendText(msg.Chat.ID, "Priority must be a number.")
			}
			priority = p
		}
		err := b.finishTemplateCreation(ctx, msg.Chat.ID, state.template, priority)
		b.clearConversation(msg.From.ID)
		return err
	case stageScheduleName:
		if text == "" {
			return b.sendText(msg.Chat.ID, "The name can't be empty.")
		}
		state.schedule.name = text
		state.stage = stageScheduleCadence
		return b.sendText(msg.Chat.ID, "⏳ Send the cadence as <code>delay=interval</code> pairs, e.g. <code>0s=1d; 2d=12h; 4d=4h</code>.")
	case stageScheduleCadence:
		if _, err := service.ParseCadence(text); err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("That cadence doesn't parse: %s", escape(err.Error())))
		}
		err := b.finishScheduleCreation(ctx, msg.Chat.ID, state.schedule.name, text)
		b.clearConversation(msg.From.ID)
		return err
	case stageReassignTarget:
		assignee, err := resolveAssignee(text, msg.From.ID)
		if err != nil {
			return b.sendText(msg.Chat.ID, escape(err.Error()))
		}
		reassignID := state.reassignID
		b.clearConversation(msg.From.ID)
		inst, err := b.notifier.Reassign(ctx, reassignID, assignee)
		if err != nil {
			if errors.Is(err, service.ErrInstanceDone) {
				return b.sendText(msg.Chat.ID, "That chore is already done, nothing to reassign.")
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return b.sendText(msg.Chat.ID, "That chore no longer exists.")
			}
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't reassign: %s", escape(err.Error())))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("♻️ <b>%s</b> is now on <code>%s</code> for this occurrence.", escape(inst.Name), escape(assignee)))
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset, start over with /newtemplate or /newschedule.")
	}
}

func (b *Bot) finishTemplateCreation(ctx context.Context, chatID int64, draft templateDraft, priority int) error {
	tmpl := model.ChoreTemplate{
		Name:               draft.name,
		SortPriority:       priority,
		Assignee:           draft.assignee,
		Recurrence:         draft.recurrence,
		ReminderScheduleID: draft.scheduleID,
	}
	if err := b.templates.Create(ctx, &tmpl); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Couldn't save the template: %s", escape(err.Error())))
	}
	b.log.Info().Uint("template", tmpl.ID).Str("name", tmpl.Name).Msg("template created")

	var sb strings.Builder
	sb.WriteString("✅ <b>Template saved</b>\n")
	sb.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", tmpl.ID))
	sb.WriteString(fmt.Sprintf("• <b>Name:</b> %s\n", escape(tmpl.Name)))
	if tmpl.Assignee != nil {
		sb.WriteString(fmt.Sprintf("• <b>Assignee:</b> <code>%s</code>\n", escape(*tmpl.Assignee)))
	} else {
		sb.WriteString("• <b>Assignee:</b> none — inert until /assign\n")
	}
	sb.WriteString(fmt.Sprintf("• <b>Recurrence:</b> <code>%s</code>\n", escape(tmpl.Recurrence)))
	return b.sendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) finishScheduleCreation(ctx context.Context, chatID int64, name, cadence string) error {
	sched := model.ReminderSchedule{Name: name, Cadence: cadence}
	if err := b.schedules.Create(ctx, &sched); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Couldn't save the schedule: %s", escape(err.Error())))
	}
	b.log.Info().Uint("schedule", sched.ID).Str("name", sched.Name).Msg("schedule created")
	return b.sendText(chatID, fmt.Sprintf("✅ Schedule <b>#%d %s</b> saved: <code>%s</code>", sched.ID, escape(sched.Name), escape(sched.Cadence)))
}

func (b *Bot) scheduleNames(ctx context.Context) (map[uint]string, error) {
	schedules, err := b.schedules.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(schedules))
	for _, sched := range schedules {
		names[sched.ID] = sched.Name
	}
	return names, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func parseIDArg(raw string) (uint, error) {
	id64, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id64), nil
}

// resolveAssignee accepts a numeric Telegram user id or the literal "me".
func resolveAssignee(raw string, selfID int64) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "me") {
		return strconv.FormatInt(selfID, 10), nil
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return "", fmt.Errorf("assignee must be a numeric user id or \"me\"")
	}
	return raw, nil
}
