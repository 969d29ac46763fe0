package moderation

import (
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

// Gateway abstracts the Telegram moderation surface so the escalation
// pipeline and the admin handlers can be tested without a live bot.
type Gateway interface {
	SendNotice(chatID int64, threadID int, text string, markup *api.InlineKeyboardMarkup) (int, error)
	DeleteMessage(chatID int64, messageID int) error
	EditMessageControls(chatID int64, messageID int, markup api.InlineKeyboardMarkup) error
	AnswerCallback(callbackID string, text string) error

	Restrict(chatID int64, userID int64, until time.Time) error
	Ban(chatID int64, userID int64, until *time.Time, revokeMessages bool) error
	Unban(chatID int64, userID int64) error
}

type telegramGateway struct {
	bot *api.BotAPI
}

func NewTelegramGateway(bot *api.BotAPI) Gateway {
	return &telegramGateway{bot: bot}
}

func (g *telegramGateway) SendNotice(chatID int64, threadID int, text string, markup *api.InlineKeyboardMarkup) (int, error) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	msg.MessageThreadID = threadID
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := g.bot.Send(msg)
	if err != nil {
		return 0, errors.WithMessage(err, "cant send notice")
	}
	return sent.MessageID, nil
}

func (g *telegramGateway) DeleteMessage(chatID int64, messageID int) error {
	if _, err := g.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

func (g *telegramGateway) EditMessageControls(chatID int64, messageID int, markup api.InlineKeyboardMarkup) error {
	if _, err := g.bot.Request(api.NewEditMessageReplyMarkup(chatID, messageID, markup)); err != nil {
		return errors.WithMessage(err, "cant edit message keyboard")
	}
	return nil
}

func (g *telegramGateway) AnswerCallback(callbackID string, text string) error {
	if _, err := g.bot.Request(api.NewCallback(callbackID, text)); err != nil {
		return errors.WithMessage(err, "cant answer callback query")
	}
	return nil
}

func (g *telegramGateway) Restrict(chatID int64, userID int64, until time.Time) error {
	_, err := g.bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		UntilDate:   until.Unix(),
		Permissions: &api.ChatPermissions{},

		UseIndependentChatPermissions: true,
	})
	if err != nil {
		return errors.WithMessage(err, "cant restrict member")
	}
	return nil
}

func (g *telegramGateway) Ban(chatID int64, userID int64, until *time.Time, revokeMessages bool) error {
	cfg := api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		RevokeMessages: revokeMessages,
	}
	if until != nil {
		cfg.UntilDate = until.Unix()
	}
	if _, err := g.bot.Request(cfg); err != nil {
		return errors.WithMessage(err, "cant ban member")
	}
	return nil
}

func (g *telegramGateway) Unban(chatID int64, userID int64) error {
	_, err := g.bot.Request(api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		OnlyIfBanned: true,
	})
	if err != nil {
		return errors.WithMessage(err, "cant unban member")
	}
	return nil
}
