package bot

import (
	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db"
)

type service struct {
	bot *api.BotAPI
	db  db.Client
	cfg *config.Config
}

func NewService(bot *api.BotAPI, dbClient db.Client, cfg *config.Config) *service {
	return &service{
		bot: bot,
		db:  dbClient,
		cfg: cfg,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetConfig() *config.Config {
	return s.cfg
}
