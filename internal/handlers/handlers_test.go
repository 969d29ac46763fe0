package handlers

import (
	"context"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db"
	"github.com/iamwavecut/replywarden/internal/event"
	"github.com/iamwavecut/replywarden/internal/moderation"
)

type fakeGateway struct {
	notices    []string
	deleted    []int
	edited     []int
	answers    []string
	restricted []int64
	banned     []int64
	unbanned   []int64
}

func (f *fakeGateway) SendNotice(chatID int64, threadID int, text string, markup *api.InlineKeyboardMarkup) (int, error) {
	f.notices = append(f.notices, text)
	return len(f.notices), nil
}

func (f *fakeGateway) DeleteMessage(chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) EditMessageControls(chatID int64, messageID int, markup api.InlineKeyboardMarkup) error {
	f.edited = append(f.edited, messageID)
	return nil
}

func (f *fakeGateway) AnswerCallback(callbackID string, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeGateway) Restrict(chatID int64, userID int64, until time.Time) error {
	f.restricted = append(f.restricted, userID)
	return nil
}

func (f *fakeGateway) Ban(chatID int64, userID int64, until *time.Time, revokeMessages bool) error {
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeGateway) Unban(chatID int64, userID int64) error {
	f.unbanned = append(f.unbanned, userID)
	return nil
}

type fakeStore struct {
	db.Client

	archived        []*db.DeletedMessage
	recorded        []*db.ViolationEvent
	outcome         *db.ViolationOutcome
	resetUsers      []int64
	revokedUsers    []int64
	archiveContents map[int64]*db.DeletedMessage
}

func (f *fakeStore) ArchiveDeletedMessage(ctx context.Context, msg *db.DeletedMessage) (int64, error) {
	f.archived = append(f.archived, msg)
	return int64(len(f.archived)), nil
}

func (f *fakeStore) RecordViolation(ctx context.Context, ev *db.ViolationEvent, rule config.ViolationRule) (*db.ViolationOutcome, error) {
	f.recorded = append(f.recorded, ev)
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &db.ViolationOutcome{StreakCount: len(f.recorded)}, nil
}

func (f *fakeStore) SetActivePenalty(ctx context.Context, penalty *db.ActivePenalty) error {
	return nil
}

func (f *fakeStore) DeleteActivePenalty(ctx context.Context, userID int64) error {
	f.revokedUsers = append(f.revokedUsers, userID)
	return nil
}

func (f *fakeStore) ResetAllUserData(ctx context.Context, userID int64) error {
	f.resetUsers = append(f.resetUsers, userID)
	return nil
}

func (f *fakeStore) GetArchivedMessage(ctx context.Context, id int64) (*db.DeletedMessage, error) {
	return f.archiveContents[id], nil
}

type fakeService struct {
	store db.Client
	cfg   *config.Config
}

func (f *fakeService) GetBot() *api.BotAPI       { return nil }
func (f *fakeService) GetDB() db.Client          { return f.store }
func (f *fakeService) GetConfig() *config.Config { return f.cfg }

func handlerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		BotToken:               "token",
		AllowedGroups:          []int64{-1001, -1002},
		AdminIDs:               []int64{900},
		AdminChatID:            "-100200_17",
		LongMessageThreshold:   500,
		ReplyCooldownSeconds:   10,
		Penalties:              map[string]string{"1": config.TierWarning, "3": config.TierReadOnly},
		MuteDurationSeconds:    3600,
		TempBanDurationSeconds: 86400,
		DataRetentionDays:      360,
		Language:               "en",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return cfg
}

type fixture struct {
	violations *Violations
	admin      *AdminActions
	gateway    *fakeGateway
	store      *fakeStore
	cfg        *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := handlerConfig(t)
	gateway := &fakeGateway{}
	store := &fakeStore{archiveContents: map[int64]*db.DeletedMessage{}}
	service := &fakeService{store: store, cfg: cfg}
	notifier := moderation.NewNotifier(gateway, cfg, event.NewBus())
	classifier := moderation.NewClassifier(moderation.NewHistoryCache(), cfg)
	escalator := moderation.NewEscalator(store, gateway, notifier, cfg)
	return &fixture{
		violations: NewViolations(service, classifier, escalator, notifier, gateway),
		admin:      NewAdminActions(service, gateway, notifier),
		gateway:    gateway,
		store:      store,
		cfg:        cfg,
	}
}

func groupUpdate(chatID int64, user *api.User, messageID int, unixDate int64, text string, reply *api.Message) *api.Update {
	msg := &api.Message{
		MessageID:      messageID,
		From:           user,
		Chat:           api.Chat{ID: chatID, Type: "supergroup"},
		Date:           int(unixDate),
		Text:           text,
		ReplyToMessage: reply,
	}
	return &api.Update{Message: msg}
}

func member() *api.User {
	return &api.User{ID: 42, UserName: "offender"}
}
