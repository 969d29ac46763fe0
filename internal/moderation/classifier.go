package moderation

import (
	"time"

	"github.com/iamwavecut/replywarden/internal/config"
)

// ReplyTarget describes the message an inbound message replies to.
type ReplyTarget struct {
	MessageID   int
	AuthorID    int64
	AuthorIsBot bool
	SentAt      time.Time
}

// InboundMessage is the classifier's view of a group message.
type InboundMessage struct {
	UserID     int64
	MessageID  int
	Timestamp  time.Time
	TextLength int
	Reply      *ReplyTarget
}

// Classifier detects reply-pattern violations against a short window of
// the user's recent messages.
type Classifier struct {
	cache HistoryCache

	cooldown         time.Duration
	cooldownDisabled bool
	longThreshold    int
	ignoreBotThread  bool
}

func NewClassifier(cache HistoryCache, cfg *config.Config) *Classifier {
	return &Classifier{
		cache:            cache,
		cooldown:         cfg.ReplyCooldown(),
		cooldownDisabled: cfg.DisableReplyCooldown,
		longThreshold:    cfg.LongMessageThreshold,
		ignoreBotThread:  cfg.IgnoreBotThreadReplies,
	}
}

// withinCooldown reports whether elapsed falls inside the reply cooldown.
// A disabled cooldown makes every timing check pass, which turns the
// pattern rules into pure structure checks.
func (c *Classifier) withinCooldown(elapsed time.Duration) bool {
	if c.cooldownDisabled {
		return true
	}
	return elapsed < c.cooldown
}

// Classify returns the violation type for msg, or the empty string when
// the message is clean. The user's history is updated on every call
// except for exempt replies in bot threads, which leave no trace at all.
func (c *Classifier) Classify(msg InboundMessage) string {
	if c.ignoreBotThread && msg.Reply != nil && msg.Reply.AuthorIsBot {
		return ""
	}

	rec := Record{MessageID: msg.MessageID, Timestamp: msg.Timestamp}
	if msg.Reply != nil {
		rec.ReplyToMessageID = msg.Reply.MessageID
	}
	defer c.cache.Record(msg.UserID, rec)

	if c.longThreshold > 0 && msg.TextLength >= c.longThreshold {
		return ""
	}

	recent := c.cache.Recent(msg.UserID, msg.Timestamp)
	if len(recent) == 0 {
		return ""
	}
	prev := recent[len(recent)-1]

	// Self replies are timed against the replied-to message itself, not
	// against the previous tracked message. Replies to one's own message
	// never reach the double-reply rule, that one covers other people's
	// messages only.
	if msg.Reply != nil && msg.Reply.AuthorID == msg.UserID {
		if c.withinCooldown(msg.Timestamp.Sub(msg.Reply.SentAt)) {
			return config.ViolationSelfReply
		}
		return ""
	}

	if msg.Reply != nil && prev.ReplyToMessageID != 0 &&
		prev.ReplyToMessageID == msg.Reply.MessageID &&
		c.withinCooldown(msg.Timestamp.Sub(prev.Timestamp)) {
		return config.ViolationDoubleReply
	}

	if msg.Reply == nil && prev.ReplyToMessageID == 0 &&
		c.withinCooldown(msg.Timestamp.Sub(prev.Timestamp)) {
		return config.ViolationNoReply
	}

	return ""
}
