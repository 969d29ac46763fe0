package handlers

import (
	"context"
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/replywarden/internal/db"
)

func adminUser() *api.User {
	return &api.User{ID: 900, UserName: "mod"}
}

func callbackUpdate(data string) *api.Update {
	markup := api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData("🚫 Lift all restrictions", "revoke_penalty:42")),
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData("🔄 Reset violation counters", "reset_violations:42")),
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData("📤 Restore message", "restore_message:7")),
	)
	return &api.Update{
		CallbackQuery: &api.CallbackQuery{
			ID:   "cb1",
			Data: data,
			Message: &api.Message{
				MessageID:   11,
				Chat:        api.Chat{ID: -100200},
				ReplyMarkup: &markup,
			},
		},
	}
}

func TestAdminActionsIgnoresUnrelatedCallbacks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := callbackUpdate("noop")

	proceed, err := f.admin.Handle(context.Background(), u, nil, adminUser())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed {
		t.Fatalf("unrelated callback must pass through")
	}
}

func TestAdminActionsRejectsNonAdmins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := callbackUpdate("revoke_penalty:42")

	proceed, err := f.admin.Handle(context.Background(), u, nil, member())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("non-admin callback must be consumed")
	}
	if len(f.store.revokedUsers) != 0 || len(f.store.resetUsers) != 0 {
		t.Fatalf("non-admin triggered remediation")
	}
}

func TestAdminActionsMalformedPayloadAnswered(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := callbackUpdate("revoke_penalty:oops")

	proceed, err := f.admin.Handle(context.Background(), u, nil, adminUser())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("malformed callback must be consumed")
	}
	if len(f.store.revokedUsers) != 0 {
		t.Fatalf("malformed payload triggered remediation")
	}
	if len(f.gateway.answers) != 1 || f.gateway.answers[0] != "Unknown action" {
		t.Fatalf("malformed payload not acknowledged: %v", f.gateway.answers)
	}
}

func TestAdminActionsRevokePenalty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := callbackUpdate("revoke_penalty:42")

	proceed, err := f.admin.Handle(context.Background(), u, nil, adminUser())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("handled callback must stop the chain")
	}
	if len(f.store.revokedUsers) != 1 || f.store.revokedUsers[0] != 42 {
		t.Fatalf("penalty not revoked: %v", f.store.revokedUsers)
	}
	if len(f.store.resetUsers) != 1 || f.store.resetUsers[0] != 42 {
		t.Fatalf("user data not reset: %v", f.store.resetUsers)
	}
	// Unbanned in every moderated group.
	if len(f.gateway.unbanned) != len(f.cfg.AllowedGroups) {
		t.Fatalf("expected %d unbans, got %d", len(f.cfg.AllowedGroups), len(f.gateway.unbanned))
	}
	if len(f.gateway.edited) != 1 {
		t.Fatalf("keyboard not updated")
	}
	if len(f.gateway.answers) != 1 || !strings.Contains(f.gateway.answers[0], "Restrictions lifted") {
		t.Fatalf("callback not answered: %v", f.gateway.answers)
	}
}

func TestAdminActionsResetViolations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := callbackUpdate("reset_violations:42")

	if _, err := f.admin.Handle(context.Background(), u, nil, adminUser()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.store.resetUsers) != 1 || f.store.resetUsers[0] != 42 {
		t.Fatalf("user data not reset: %v", f.store.resetUsers)
	}
	if len(f.store.revokedUsers) != 0 {
		t.Fatalf("reset must not touch penalties")
	}
	if len(f.gateway.unbanned) != 0 {
		t.Fatalf("reset must not unban")
	}
}

func TestAdminActionsRestoreMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.archiveContents[7] = &db.DeletedMessage{
		ID:          7,
		UserID:      42,
		UserName:    "@offender",
		GroupID:     -1001,
		MessageText: "the lost message",
		Timestamp:   1735689600,
	}
	u := callbackUpdate("restore_message:7")

	if _, err := f.admin.Handle(context.Background(), u, nil, adminUser()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.gateway.notices) != 1 || !strings.Contains(f.gateway.notices[0], "the lost message") {
		t.Fatalf("archived message not reposted: %v", f.gateway.notices)
	}
	if len(f.gateway.edited) != 1 {
		t.Fatalf("keyboard not updated after restore")
	}
}

func TestAdminActionsRestoreMissingMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := callbackUpdate("restore_message:404")

	if _, err := f.admin.Handle(context.Background(), u, nil, adminUser()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.gateway.notices) != 0 {
		t.Fatalf("missing archive produced a repost")
	}
	if len(f.gateway.answers) != 1 || f.gateway.answers[0] != "Archived message not found" {
		t.Fatalf("missing archive not acknowledged: %v", f.gateway.answers)
	}
	if len(f.gateway.edited) != 0 {
		t.Fatalf("keyboard updated for a failed restore")
	}
}
