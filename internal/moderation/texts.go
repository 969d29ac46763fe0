package moderation

import "github.com/iamwavecut/replywarden/internal/config"

// User-facing notice templates. The English text doubles as the i18n key,
// placeholders are positional and must keep their order across translations.
const (
	textNoReplyNotice = "⚠️ %s, you sent a second message in a row without a reply. " +
		"If you want to continue the conversation, please reply to someone else's message or edit your previous one."

	textDoubleReplyNotice = "⚠️ %s, you replied to the same message twice in a row. " +
		"If you want to continue the discussion, combine your thoughts and edit the first reply."

	textSelfReplyNotice = "⚠️ %s, you replied to your own previous message too quickly (less than %d min). " +
		"Edit the old message instead, or take a pause."

	textMuteApplied = "🔇 %s, for <b>%d</b> rule violations you have been muted (read-only) for <b>%d</b> min " +
		"and will be able to write again at %s. Please follow the rules."

	textKickApplied = "🚫 %s, due to a series of <b>%d</b> violations you have been removed from the group. " +
		"You may rejoin later, but please follow the rules."

	textKickBanApplied = "⛔️ %s, due to a series of <b>%d</b> violations you have been removed from the group for <b>%d</b> min (until %s). " +
		"Please keep this in mind and follow the rules after returning."

	textBanApplied = "🚷 %s, due to repeated violations (<b>%d</b>) you have been banned from the group permanently. " +
		"Unbanning is only possible after a discussion with the administrators."

	textOfficialWarning = "❗️ %s, this is an official warning for rule violations.\n\n" +
		"📊 Violations accumulated so far: <b>%d</b>\n" +
		"⚠️ Violations left until the next penalty (<b>%s</b>): <b>%d</b>\n\n" +
		"Please read the rules carefully and follow them to avoid harsher sanctions."

	textMessageRestored = "🔄 <i>Restored by an administrator</i>\n\n" +
		"👤 <b>User</b>: %s\n\n" +
		"💬 <b>Message text</b>: <blockquote>%s</blockquote>\n\n" +
		"🕒 <b>Posted at (MSK)</b>: %s"
)

// Admin-chat report templates.
const (
	textAdminNotification = "<b>Violation!</b>\n" +
		"<b>User</b>: %s\n" +
		"<b>ID</b>: %d\n" +
		"<b>Incident #</b>: %d\n" +
		"<b>Violation type</b>: %s (%s)\n" +
		"<b>Penalty applied</b>: %s (%s)\n" +
		"<b>Message text</b>:<blockquote>%s</blockquote>"

	textAdminViolationWarning = "⚠️ <b>Rule violation by an administrator!</b>\n\n" +
		"<b>Offender</b>: %s\n" +
		"<b>Violation type</b>: %s\n\n" +
		"❗️ Please note:\n" +
		"- As an administrator you are immune to automatic sanctions\n" +
		"- Your actions are still visible to the other administrators\n" +
		"- Please follow the chat rules and set an example for the members\n\n" +
		"<b>Offending message</b>:<blockquote>%s</blockquote>"
)

// Inline keyboard labels and callback acknowledgements.
const (
	textButtonRevokePenalty   = "🚫 Lift all restrictions"
	textButtonResetViolations = "🔄 Reset violation counters"
	textButtonRestoreMessage  = "📤 Restore message"
	textButtonDone            = "✅ Done"
	textButtonRestored        = "✅ Restored"

	textAnswerPenaltyRevoked   = "Restrictions lifted, counters cleared"
	textAnswerCountersReset    = "Violation counters reset"
	textAnswerMessageRestored  = "Message restored to the group"
	textAnswerNothingToRestore = "Archived message not found"
	textAnswerUnknownAction    = "Unknown action"
)

const (
	descNoReply     = "Message sent without a reply"
	descDoubleReply = "Double reply to the same message"
	descSelfReply   = "Reply to own message"

	descTierWarning  = "Warning"
	descTierReadOnly = "Temporary mute (%d min)"
	descTierKick     = "Removal from the group"
	descTierKickBan  = "Temporary ban (%d min)"
	descTierBan      = "Permanent ban"
)

var violationDescriptions = map[string]string{
	config.ViolationNoReply:     descNoReply,
	config.ViolationDoubleReply: descDoubleReply,
	config.ViolationSelfReply:   descSelfReply,
}
