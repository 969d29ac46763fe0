package moderation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db"
	"github.com/iamwavecut/replywarden/internal/event"
	"github.com/iamwavecut/replywarden/internal/i18n"
)

const (
	EventDeleteMessage = "delete_message"

	CallbackRevokePenalty   = "revoke_penalty"
	CallbackResetViolations = "reset_violations"
	CallbackRestoreMessage  = "restore_message"

	mskStampLong  = "2006-01-02 15:04:05 MSK"
	mskStampShort = "02/01/06 15:04"
)

var moscow = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}()

// DeleteMessageEvent asks the janitor to remove a bot message once its
// configured lifetime runs out.
type DeleteMessageEvent struct {
	*event.Base
	ChatID    int64
	MessageID int
}

func NewDeleteMessageEvent(chatID int64, messageID int, fireAt time.Time) *DeleteMessageEvent {
	return &DeleteMessageEvent{
		Base:      event.CreateBase(EventDeleteMessage, fireAt, fireAt.Add(time.Hour)),
		ChatID:    chatID,
		MessageID: messageID,
	}
}

// RegisterMessageJanitor subscribes the delete-message consumer. Failures
// are logged and the event is still marked processed, a message that is
// already gone needs no second attempt.
func RegisterMessageJanitor(worker *event.Worker, gateway Gateway) {
	worker.Subscribe(EventDeleteMessage, func(ev event.Queueable) {
		del, ok := ev.(*DeleteMessageEvent)
		if !ok {
			ev.Drop()
			return
		}
		if err := gateway.DeleteMessage(del.ChatID, del.MessageID); err != nil {
			log.WithError(err).WithField("message_id", del.MessageID).Debug("cant delete expired bot message")
		}
		ev.Process()
	})
}

// Notifier renders and delivers the group notices and admin-chat reports.
type Notifier struct {
	gateway Gateway
	cfg     *config.Config
	bus     *event.Bus
}

func NewNotifier(gateway Gateway, cfg *config.Config, bus *event.Bus) *Notifier {
	return &Notifier{gateway: gateway, cfg: cfg, bus: bus}
}

func (n *Notifier) tr(key string) string {
	return i18n.Get(key, n.cfg.Language)
}

// ceilMinutes matches the user-facing rounding of durations, a partial
// minute reads as a whole one.
func ceilMinutes(d time.Duration) int {
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func (n *Notifier) scheduleDelete(chatID int64, messageID int, lifetime time.Duration) {
	if !n.cfg.DeleteBotMessages || lifetime <= 0 || messageID == 0 {
		return
	}
	n.bus.NQ(NewDeleteMessageEvent(chatID, messageID, time.Now().Add(lifetime)))
}

// NoticeViolation posts the per-type violation notice to the group.
func (n *Notifier) NoticeViolation(chatID int64, userName string, violationType string) error {
	var text string
	switch violationType {
	case config.ViolationNoReply:
		text = fmt.Sprintf(n.tr(textNoReplyNotice), userName)
	case config.ViolationDoubleReply:
		text = fmt.Sprintf(n.tr(textDoubleReplyNotice), userName)
	case config.ViolationSelfReply:
		text = fmt.Sprintf(n.tr(textSelfReplyNotice), userName, ceilMinutes(n.cfg.ReplyCooldown()))
	default:
		return errors.Errorf("no notice template for violation type %q", violationType)
	}

	messageID, err := n.gateway.SendNotice(chatID, 0, text, nil)
	if err != nil {
		return err
	}
	n.scheduleDelete(chatID, messageID, n.cfg.BotMessageLifetime())
	return nil
}

// NoticeWarning posts the official warning with the distance to the next
// rung of the penalty ladder.
func (n *Notifier) NoticeWarning(chatID int64, userName string, incidents int) error {
	nextDesc := n.tr(descTierWarning)
	untilNext := 0
	if next := NextStep(n.cfg.Ladder(), incidents); next != nil {
		nextDesc = n.penaltyDescription(next.Tier)
		untilNext = next.Threshold - incidents
	}

	text := fmt.Sprintf(n.tr(textOfficialWarning), userName, incidents, nextDesc, untilNext)
	messageID, err := n.gateway.SendNotice(chatID, 0, text, nil)
	if err != nil {
		return err
	}
	n.scheduleDelete(chatID, messageID, n.cfg.PenaltyMessageLifetime())
	return nil
}

// NoticePenalty posts the applied-penalty notice to the group, honoring
// the per-kind notification toggles.
func (n *Notifier) NoticePenalty(chatID int64, userName string, tier string, incidents int, until time.Time) error {
	var (
		kind string
		text string
	)
	switch tier {
	case config.TierReadOnly:
		kind = config.NotifyMuteApplied
		text = fmt.Sprintf(n.tr(textMuteApplied),
			userName, incidents, ceilMinutes(n.cfg.MuteDuration()), until.In(moscow).Format(mskStampLong))
	case config.TierKick:
		kind = config.NotifyKickApplied
		text = fmt.Sprintf(n.tr(textKickApplied), userName, incidents)
	case config.TierKickBan:
		kind = config.NotifyKickBanApplied
		text = fmt.Sprintf(n.tr(textKickBanApplied),
			userName, incidents, ceilMinutes(n.cfg.TempBanDuration()), until.In(moscow).Format(mskStampLong))
	case config.TierBan:
		kind = config.NotifyBanApplied
		text = fmt.Sprintf(n.tr(textBanApplied), userName, incidents)
	default:
		return errors.Errorf("no notice template for tier %q", tier)
	}
	if !n.cfg.NotificationEnabled(kind) {
		return nil
	}

	messageID, err := n.gateway.SendNotice(chatID, 0, text, nil)
	if err != nil {
		return err
	}
	n.scheduleDelete(chatID, messageID, n.cfg.PenaltyMessageLifetime())
	return nil
}

// AdminReport sends the incident report to the admin chat with the
// remediation keyboard attached.
func (n *Notifier) AdminReport(userID int64, userName string, violationType string, tier string, msgText string, incidents int, archivedID int64) error {
	violationDesc := n.tr(violationDescriptions[violationType])
	text := fmt.Sprintf(n.tr(textAdminNotification),
		userName, userID, incidents, violationDesc, violationType,
		n.penaltyDescription(tier), tier, msgText)

	chatID, threadID := n.cfg.AdminChat()
	markup := n.adminKeyboard(userID, archivedID)
	_, err := n.gateway.SendNotice(chatID, threadID, text, &markup)
	return err
}

// AdminWarning reports a rule violation by an admin. Admins are immune
// to sanctions, the report is the whole consequence.
func (n *Notifier) AdminWarning(userName string, violationType string, msgText string) error {
	if !n.cfg.NotificationEnabled(config.NotifyAdminWarning) {
		return nil
	}
	violationDesc := n.tr(violationDescriptions[violationType])
	text := fmt.Sprintf(n.tr(textAdminViolationWarning), userName, violationDesc, msgText)

	chatID, threadID := n.cfg.AdminChat()
	_, err := n.gateway.SendNotice(chatID, threadID, text, nil)
	return err
}

// RestoredMessageText renders an archived message for reposting.
func (n *Notifier) RestoredMessageText(msg *db.DeletedMessage) string {
	posted := time.Unix(msg.Timestamp, 0).In(moscow).Format(mskStampShort)
	return fmt.Sprintf(n.tr(textMessageRestored), msg.UserName, msg.MessageText, posted)
}

func (n *Notifier) penaltyDescription(tier string) string {
	switch tier {
	case config.TierWarning:
		return n.tr(descTierWarning)
	case config.TierReadOnly:
		return fmt.Sprintf(n.tr(descTierReadOnly), ceilMinutes(n.cfg.MuteDuration()))
	case config.TierKick:
		return n.tr(descTierKick)
	case config.TierKickBan:
		return fmt.Sprintf(n.tr(descTierKickBan), ceilMinutes(n.cfg.TempBanDuration()))
	case config.TierBan:
		return n.tr(descTierBan)
	}
	return tier
}

func (n *Notifier) adminKeyboard(userID int64, archivedID int64) api.InlineKeyboardMarkup {
	uid := strconv.FormatInt(userID, 10)
	rows := [][]api.InlineKeyboardButton{
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(n.tr(textButtonRevokePenalty), CallbackRevokePenalty+":"+uid),
		),
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(n.tr(textButtonResetViolations), CallbackResetViolations+":"+uid),
		),
	}
	if archivedID > 0 {
		rows = append(rows, api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(n.tr(textButtonRestoreMessage),
				CallbackRestoreMessage+":"+strconv.FormatInt(archivedID, 10)),
		))
	}
	return api.NewInlineKeyboardMarkup(rows...)
}

// MarkActionDone rebuilds a remediation keyboard with the pressed action
// replaced by an inert confirmation button, leaving the other actions
// available.
func (n *Notifier) MarkActionDone(markup api.InlineKeyboardMarkup, action string) api.InlineKeyboardMarkup {
	label := textButtonDone
	if action == CallbackRestoreMessage {
		label = textButtonRestored
	}
	rows := make([][]api.InlineKeyboardButton, 0, len(markup.InlineKeyboard))
	for _, row := range markup.InlineKeyboard {
		newRow := make([]api.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			if button.CallbackData != nil && strings.HasPrefix(*button.CallbackData, action+":") {
				newRow = append(newRow, api.NewInlineKeyboardButtonData(n.tr(label), "done"))
				continue
			}
			newRow = append(newRow, button)
		}
		rows = append(rows, newRow)
	}
	return api.NewInlineKeyboardMarkup(rows...)
}

// CallbackAnswer returns the popup acknowledgement for a completed
// remediation action.
func (n *Notifier) CallbackAnswer(action string) string {
	switch action {
	case CallbackRevokePenalty:
		return n.tr(textAnswerPenaltyRevoked)
	case CallbackResetViolations:
		return n.tr(textAnswerCountersReset)
	case CallbackRestoreMessage:
		return n.tr(textAnswerMessageRestored)
	}
	return n.tr(textAnswerUnknownAction)
}

// AnswerMissingArchive is the popup shown when the archived message is
// already pruned.
func (n *Notifier) AnswerMissingArchive() string {
	return n.tr(textAnswerNothingToRestore)
}
