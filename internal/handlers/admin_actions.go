package handlers

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/replywarden/internal/bot"
	"github.com/iamwavecut/replywarden/internal/errs"
	"github.com/iamwavecut/replywarden/internal/moderation"
)

// AdminActions serves the remediation buttons attached to admin-chat
// reports: lifting penalties, resetting counters and restoring deleted
// messages.
type AdminActions struct {
	s        bot.Service
	gateway  moderation.Gateway
	notifier *moderation.Notifier
}

func NewAdminActions(s bot.Service, gateway moderation.Gateway, notifier *moderation.Notifier) *AdminActions {
	return &AdminActions{s: s, gateway: gateway, notifier: notifier}
}

func (a *AdminActions) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	cq := u.CallbackQuery
	if cq == nil {
		return true, nil
	}

	action, idPart, ok := strings.Cut(cq.Data, ":")
	if !ok {
		return true, nil
	}
	switch action {
	case moderation.CallbackRevokePenalty, moderation.CallbackResetViolations, moderation.CallbackRestoreMessage:
	default:
		return true, nil
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		if err := a.gateway.AnswerCallback(cq.ID, a.notifier.CallbackAnswer("")); err != nil {
			log.WithError(err).Error("cant answer malformed callback")
		}
		return false, nil
	}

	if user == nil || !a.s.GetConfig().IsAdmin(user.ID) {
		log.WithField("user", user).Warn("remediation callback from non-admin")
		return false, nil
	}

	var actionErr error
	switch action {
	case moderation.CallbackRevokePenalty:
		actionErr = a.revokePenalty(ctx, id)
	case moderation.CallbackResetViolations:
		actionErr = a.resetViolations(ctx, id)
	case moderation.CallbackRestoreMessage:
		actionErr = a.restoreMessage(ctx, cq, id)
	}
	if actionErr != nil {
		if errors.Is(actionErr, errs.ErrNotFound) {
			if err := a.gateway.AnswerCallback(cq.ID, a.notifier.AnswerMissingArchive()); err != nil {
				log.WithError(err).Error("cant answer callback")
			}
			return false, nil
		}
		return false, actionErr
	}

	a.markDone(cq, action)
	if err := a.gateway.AnswerCallback(cq.ID, a.notifier.CallbackAnswer(action)); err != nil {
		log.WithError(err).Error("cant answer callback")
	}
	return false, nil
}

// revokePenalty lifts the stored penalty, clears the user's history and
// unbans them everywhere the bot moderates. Each step is best effort,
// a user who was never banned must still get their counters cleared.
func (a *AdminActions) revokePenalty(ctx context.Context, userID int64) error {
	store := a.s.GetDB()
	if err := store.DeleteActivePenalty(ctx, userID); err != nil {
		return errors.WithMessage(err, "cant delete active penalty")
	}
	if err := store.ResetAllUserData(ctx, userID); err != nil {
		return errors.WithMessage(err, "cant reset user data")
	}
	for _, groupID := range a.s.GetConfig().AllowedGroups {
		if err := a.gateway.Unban(groupID, userID); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"group_id": groupID,
				"user_id":  userID,
			}).Warn("cant unban user")
		}
	}
	return nil
}

func (a *AdminActions) resetViolations(ctx context.Context, userID int64) error {
	if err := a.s.GetDB().ResetAllUserData(ctx, userID); err != nil {
		return errors.WithMessage(err, "cant reset user data")
	}
	return nil
}

// restoreMessage reposts an archived message into the group it was
// deleted from.
func (a *AdminActions) restoreMessage(ctx context.Context, cq *api.CallbackQuery, archivedID int64) error {
	msg, err := a.s.GetDB().GetArchivedMessage(ctx, archivedID)
	if err != nil {
		return errors.WithMessage(err, "cant load archived message")
	}
	if msg == nil {
		return errors.WithMessage(errs.ErrNotFound, "archived message")
	}
	if _, err := a.gateway.SendNotice(msg.GroupID, 0, a.notifier.RestoredMessageText(msg), nil); err != nil {
		return errors.WithMessage(err, "cant repost archived message")
	}
	return nil
}

// markDone swaps the pressed button for a confirmation so repeated taps
// are visibly inert.
func (a *AdminActions) markDone(cq *api.CallbackQuery, action string) {
	if cq.Message == nil || cq.Message.ReplyMarkup == nil {
		return
	}
	updated := a.notifier.MarkActionDone(*cq.Message.ReplyMarkup, action)
	if err := a.gateway.EditMessageControls(cq.Message.Chat.ID, cq.Message.MessageID, updated); err != nil {
		log.WithError(err).Error("cant update remediation keyboard")
	}
}
