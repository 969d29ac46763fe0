package moderation

import (
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db"
	"github.com/iamwavecut/replywarden/internal/event"
)

func newTestNotifier(t *testing.T, mutate func(cfg *config.Config)) (*Notifier, *fakeGateway, *event.Bus) {
	t.Helper()
	cfg := escalationConfig(t)
	if mutate != nil {
		mutate(cfg)
		if err := cfg.Validate(); err != nil {
			t.Fatalf("validate config: %v", err)
		}
	}
	gateway := &fakeGateway{}
	bus := event.NewBus()
	return NewNotifier(gateway, cfg, bus), gateway, bus
}

func TestNoticePenaltyHonorsToggle(t *testing.T) {
	t.Parallel()

	notifier, gateway, _ := newTestNotifier(t, func(cfg *config.Config) {
		cfg.Notifications[config.NotifyMuteApplied] = false
	})

	err := notifier.NoticePenalty(-1001, "@tester", config.TierReadOnly, 3, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("notice penalty: %v", err)
	}
	if len(gateway.notices) != 0 {
		t.Fatalf("disabled notification was sent: %v", gateway.notices)
	}
}

func TestNoticePenaltyFormatsMoscowTime(t *testing.T) {
	t.Parallel()

	notifier, gateway, _ := newTestNotifier(t, nil)
	until := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := notifier.NoticePenalty(-1001, "@tester", config.TierReadOnly, 3, until); err != nil {
		t.Fatalf("notice penalty: %v", err)
	}
	if len(gateway.notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(gateway.notices))
	}
	// Moscow is UTC+3 year round.
	if !strings.Contains(gateway.notices[0], "2025-06-01 15:00:00 MSK") {
		t.Fatalf("notice lacks Moscow timestamp: %q", gateway.notices[0])
	}
}

func TestNoticeWarningNamesNextPenalty(t *testing.T) {
	t.Parallel()

	notifier, gateway, _ := newTestNotifier(t, nil)

	if err := notifier.NoticeWarning(-1001, "@tester", 1); err != nil {
		t.Fatalf("notice warning: %v", err)
	}
	if len(gateway.notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(gateway.notices))
	}
	notice := gateway.notices[0]
	if !strings.Contains(notice, "Temporary mute (60 min)") {
		t.Fatalf("warning lacks next penalty description: %q", notice)
	}
	// Two more incidents until the read-only rung at 3.
	if !strings.Contains(notice, "<b>2</b>") {
		t.Fatalf("warning lacks the distance to the next rung: %q", notice)
	}
}

func TestNoticeViolationSchedulesSelfDeletion(t *testing.T) {
	t.Parallel()

	notifier, gateway, bus := newTestNotifier(t, func(cfg *config.Config) {
		cfg.DeleteBotMessages = true
		cfg.BotMessageLifetimeSeconds = 30
	})

	if err := notifier.NoticeViolation(-1001, "@tester", config.ViolationNoReply); err != nil {
		t.Fatalf("notice violation: %v", err)
	}
	if len(gateway.notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(gateway.notices))
	}
	if bus.Len() != 1 {
		t.Fatalf("self-deletion not scheduled, queue length %d", bus.Len())
	}
	ev := bus.DQ()
	del, ok := ev.(*DeleteMessageEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", ev)
	}
	if del.ChatID != -1001 || del.Due() {
		t.Fatalf("deletion event malformed: %#v", del)
	}
}

func TestNoticeViolationNoDeletionWhenDisabled(t *testing.T) {
	t.Parallel()

	notifier, _, bus := newTestNotifier(t, nil)

	if err := notifier.NoticeViolation(-1001, "@tester", config.ViolationDoubleReply); err != nil {
		t.Fatalf("notice violation: %v", err)
	}
	if bus.Len() != 0 {
		t.Fatalf("deletion scheduled with the feature off")
	}
}

func TestAdminKeyboardPayloads(t *testing.T) {
	t.Parallel()

	notifier, _, _ := newTestNotifier(t, nil)

	markup := notifier.adminKeyboard(42, 7)
	if len(markup.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 keyboard rows, got %d", len(markup.InlineKeyboard))
	}
	payloads := []string{}
	for _, row := range markup.InlineKeyboard {
		for _, button := range row {
			payloads = append(payloads, *button.CallbackData)
		}
	}
	want := []string{"revoke_penalty:42", "reset_violations:42", "restore_message:7"}
	for i, payload := range want {
		if payloads[i] != payload {
			t.Fatalf("payload %d = %q, want %q", i, payloads[i], payload)
		}
	}

	markup = notifier.adminKeyboard(42, 0)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("restore button present without an archived message")
	}
}

func TestRestoredMessageTextUsesMoscowTime(t *testing.T) {
	t.Parallel()

	notifier, _, _ := newTestNotifier(t, nil)
	posted := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

	text := notifier.RestoredMessageText(&db.DeletedMessage{
		UserName:    "@someone",
		MessageText: "hello there",
		Timestamp:   posted.Unix(),
	})
	if !strings.Contains(text, "15/01/25 12:30") {
		t.Fatalf("restored text lacks Moscow timestamp: %q", text)
	}
	if !strings.Contains(text, "hello there") || !strings.Contains(text, "@someone") {
		t.Fatalf("restored text incomplete: %q", text)
	}
}
