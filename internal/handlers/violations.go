package handlers

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/replywarden/internal/bot"
	"github.com/iamwavecut/replywarden/internal/db"
	"github.com/iamwavecut/replywarden/internal/moderation"
	"github.com/iamwavecut/replywarden/internal/observability"
)

const adminBadge = "👮‍♂️ "

const lockStripes = 64

// Violations watches group messages for reply-pattern offenses and runs
// the delete, record, notify, escalate pipeline.
type Violations struct {
	s          bot.Service
	classifier *moderation.Classifier
	escalator  *moderation.Escalator
	notifier   *moderation.Notifier
	gateway    moderation.Gateway

	userLocks [lockStripes]sync.Mutex
}

func NewViolations(s bot.Service, classifier *moderation.Classifier, escalator *moderation.Escalator, notifier *moderation.Notifier, gateway moderation.Gateway) *Violations {
	return &Violations{
		s:          s,
		classifier: classifier,
		escalator:  escalator,
		notifier:   notifier,
		gateway:    gateway,
	}
}

// userLock serializes processing per user so two quick messages cannot
// race the history cache or the streak counters. Locks are striped by
// user ID, so the handler holds a fixed amount of state no matter how
// many users it has seen.
func (v *Violations) userLock(userID int64) *sync.Mutex {
	return &v.userLocks[uint64(userID)%lockStripes]
}

func (v *Violations) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	m := u.Message
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		return true, nil
	}
	cfg := v.s.GetConfig()
	if !cfg.IsAllowedGroup(chat.ID) {
		return true, nil
	}
	if user.IsBot || m.SenderChat != nil {
		return true, nil
	}

	finish := observability.StartMessageProcessing()

	text := m.Text
	if text == "" {
		text = m.Caption
	}

	inbound := moderation.InboundMessage{
		UserID:     user.ID,
		MessageID:  m.MessageID,
		Timestamp:  time.Unix(int64(m.Date), 0),
		TextLength: len([]rune(text)),
	}
	if r := m.ReplyToMessage; r != nil && r.From != nil {
		inbound.Reply = &moderation.ReplyTarget{
			MessageID:   r.MessageID,
			AuthorID:    r.From.ID,
			AuthorIsBot: r.From.IsBot,
			SentAt:      time.Unix(int64(r.Date), 0),
		}
	}

	lock := v.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	violationType := v.classifier.Classify(inbound)
	if violationType == "" {
		finish("clean")
		return true, nil
	}
	observability.RecordViolation(violationType)

	userName := bot.GetUN(user)
	if cfg.IsAdmin(user.ID) {
		// Admins are immune, the offense only gets reported upstream.
		if err := v.notifier.AdminWarning(adminBadge+userName, violationType, text); err != nil {
			log.WithError(err).Error("cant send admin violation warning")
		}
		finish("admin_warning")
		return false, nil
	}

	if err := v.process(ctx, m, chat, user, userName, violationType, text); err != nil {
		finish("error")
		return false, err
	}
	finish(violationType)
	return false, nil
}

func (v *Violations) process(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, userName string, violationType string, text string) error {
	l := log.WithFields(log.Fields{
		"user_id":   user.ID,
		"violation": violationType,
	})
	now := time.Unix(int64(m.Date), 0)
	store := v.s.GetDB()
	cfg := v.s.GetConfig()

	if err := v.gateway.DeleteMessage(chat.ID, m.MessageID); err != nil {
		l.WithError(err).Warn("cant delete offending message")
	}

	archivedID, err := store.ArchiveDeletedMessage(ctx, &db.DeletedMessage{
		UserID:      user.ID,
		UserName:    userName,
		GroupID:     chat.ID,
		MessageText: text,
		Timestamp:   now.Unix(),
	})
	if err != nil {
		l.WithError(err).Error("cant archive deleted message")
	}

	outcome, err := store.RecordViolation(ctx, &db.ViolationEvent{
		UserID:        user.ID,
		UserName:      userName,
		ChatID:        chat.ID,
		ViolationType: violationType,
		MessageText:   text,
		Timestamp:     now.Unix(),
	}, cfg.ViolationRules[violationType])
	if err != nil {
		return errors.WithMessage(err, "cant record violation")
	}

	if err := v.notifier.NoticeViolation(chat.ID, userName, violationType); err != nil {
		l.WithError(err).Error("cant send violation notice")
	}

	return v.escalator.Escalate(ctx, moderation.Violation{
		UserID:      user.ID,
		UserName:    userName,
		ChatID:      chat.ID,
		Type:        violationType,
		MessageText: text,
		ArchivedID:  archivedID,
		Outcome:     outcome,
	})
}
