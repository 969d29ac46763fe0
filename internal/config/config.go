package config

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/configor"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

// Violation types recognized by the classifier and the rules table.
const (
	ViolationNoReply     = "no_reply"
	ViolationDoubleReply = "double_reply"
	ViolationSelfReply   = "self_reply"
)

// Penalty tiers, ordered by severity.
const (
	TierWarning  = "warning"
	TierReadOnly = "read-only"
	TierKick     = "kick"
	TierKickBan  = "kick+ban"
	TierBan      = "ban"
)

// Notification kinds togglable via the notifications map.
const (
	NotifyMuteApplied    = "mute_applied"
	NotifyKickApplied    = "kick_applied"
	NotifyKickBanApplied = "kick_ban_applied"
	NotifyBanApplied     = "ban_applied"
	NotifyAdminWarning   = "admin_warning"
)

type (
	// Env carries process-level settings resolved from the environment
	// with the RW_ prefix.
	Env struct {
		ConfigPath  string `env:"CONFIG,default=etc/config.yml"`
		LogLevel    int    `env:"LOG_LEVEL,default=4"`
		MetricsAddr string `env:"METRICS_ADDR,default=:2112"`
		DBName      string `env:"DB_NAME,default=replywarden.db"`
	}

	// ViolationRule configures one violation type.
	ViolationRule struct {
		Enabled                 bool `yaml:"enabled"`
		CountAsViolation        bool `yaml:"count_as_violation"`
		ViolationsBeforePenalty int  `yaml:"violations_before_penalty"`
	}

	// PenaltyStep is one rung of the escalation ladder: the tier applies
	// to any incident count at or above Threshold (floor semantics).
	PenaltyStep struct {
		Threshold int
		Tier      string
	}

	Config struct {
		BotToken      string  `yaml:"bot_token" required:"true"`
		AllowedGroups []int64 `yaml:"allowed_groups"`
		AdminIDs      []int64 `yaml:"admin_ids"`
		// AdminChatID optionally carries a topic thread in the composite
		// form "<chat_id>_<thread_id>".
		AdminChatID string `yaml:"admin_chat_id" required:"true"`

		LongMessageThreshold   int  `yaml:"long_message_threshold" default:"500"`
		ReplyCooldownSeconds   int  `yaml:"reply_rules_time_window" default:"10"`
		DisableReplyCooldown   bool `yaml:"disable_reply_cooldown"`
		IgnoreBotThreadReplies bool `yaml:"ignore_bot_replies_in_thread"`

		ViolationRules map[string]ViolationRule `yaml:"violation_rules"`

		// Penalties maps an incident-count threshold (as a string key,
		// e.g. "1", "3", "10") to a penalty tier.
		Penalties     map[string]string `yaml:"penalties"`
		Notifications map[string]bool   `yaml:"notifications"`

		MuteDurationSeconds    int `yaml:"read_only_duration" default:"3600"`
		TempBanDurationSeconds int `yaml:"kick_ban_duration" default:"86400"`

		DeleteBotMessages             bool `yaml:"bot_deletes_own_messages_in_group"`
		BotMessageLifetimeSeconds     int  `yaml:"delete_own_messages_after_secs"`
		PenaltyMessageLifetimeSeconds int  `yaml:"delete_penalty_messages_after_secs"`

		DataRetentionDays int    `yaml:"data_retention_days" default:"360"`
		Language          string `yaml:"language" default:"ru"`

		ladder        []PenaltyStep
		adminChatID   int64
		adminThreadID int
	}
)

func LoadEnv(ctx context.Context) (Env, error) {
	env := Env{}
	cfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("RW_", envconfig.OsLookuper()),
		Target:   &env,
	}
	if err := envconfig.ProcessWith(ctx, &cfg); err != nil {
		return env, fmt.Errorf("process env config: %w", err)
	}
	return env, nil
}

// LoadFile reads and validates the bot configuration. Errors here are
// fatal by contract: the process must not start on a partial config.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := configor.New(&configor.Config{ErrorOnUnmatchedKeys: true}).Load(cfg, path); err != nil {
		return nil, errors.WithMessage(err, "load config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "validate config")
	}
	log.WithField("path", path).Trace("loaded config")
	return cfg, nil
}

var knownTiers = map[string]struct{}{
	TierWarning:  {},
	TierReadOnly: {},
	TierKick:     {},
	TierKickBan:  {},
	TierBan:      {},
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("bot_token is required")
	}
	if len(c.AllowedGroups) == 0 {
		return errors.New("allowed_groups must not be empty")
	}
	if c.AdminChatID == "" {
		return errors.New("admin_chat_id is required")
	}

	chatID, threadID, err := parseAdminChat(c.AdminChatID)
	if err != nil {
		return errors.WithMessage(err, "admin_chat_id")
	}
	c.adminChatID, c.adminThreadID = chatID, threadID

	if c.ViolationRules == nil {
		c.ViolationRules = map[string]ViolationRule{}
	}
	for _, vt := range []string{ViolationNoReply, ViolationDoubleReply, ViolationSelfReply} {
		if _, ok := c.ViolationRules[vt]; !ok {
			c.ViolationRules[vt] = ViolationRule{Enabled: true, CountAsViolation: true, ViolationsBeforePenalty: 1}
		}
	}
	for vt, rule := range c.ViolationRules {
		if _, ok := map[string]struct{}{
			ViolationNoReply:     {},
			ViolationDoubleReply: {},
			ViolationSelfReply:   {},
		}[vt]; !ok {
			return errors.Errorf("unknown violation type %q", vt)
		}
		if rule.ViolationsBeforePenalty < 1 {
			return errors.Errorf("violation_rules.%s.violations_before_penalty must be >= 1", vt)
		}
	}

	ladder := make([]PenaltyStep, 0, len(c.Penalties))
	for key, tier := range c.Penalties {
		threshold, err := strconv.Atoi(key)
		if err != nil || threshold < 1 {
			return errors.Errorf("penalties key %q is not a positive integer", key)
		}
		if _, ok := knownTiers[tier]; !ok {
			return errors.Errorf("penalties[%s]: unknown tier %q", key, tier)
		}
		ladder = append(ladder, PenaltyStep{Threshold: threshold, Tier: tier})
	}
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Threshold < ladder[j].Threshold })
	c.ladder = ladder

	if c.Notifications == nil {
		c.Notifications = map[string]bool{}
	}
	if _, ok := c.Notifications[NotifyAdminWarning]; !ok {
		c.Notifications[NotifyAdminWarning] = true
	}

	if c.MuteDurationSeconds < 1 {
		return errors.New("read_only_duration must be positive")
	}
	if c.TempBanDurationSeconds < 1 {
		return errors.New("kick_ban_duration must be positive")
	}
	if c.DataRetentionDays < 1 {
		return errors.New("data_retention_days must be positive")
	}
	if c.ReplyCooldownSeconds < 1 && !c.DisableReplyCooldown {
		return errors.New("reply_rules_time_window must be positive while the cooldown is enabled")
	}
	return nil
}

func parseAdminChat(raw string) (int64, int, error) {
	idPart, threadPart, composite := strings.Cut(raw, "_")
	chatID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, 0, errors.Errorf("malformed chat id %q", raw)
	}
	if !composite {
		return chatID, 0, nil
	}
	threadID, err := strconv.Atoi(threadPart)
	if err != nil || threadID < 1 {
		return 0, 0, errors.Errorf("malformed thread id in %q", raw)
	}
	return chatID, threadID, nil
}

// AdminChat returns the admin notification destination, with the topic
// thread id or 0 when the destination is a plain chat.
func (c *Config) AdminChat() (int64, int) {
	return c.adminChatID, c.adminThreadID
}

// Ladder returns the penalty steps sorted by ascending threshold.
func (c *Config) Ladder() []PenaltyStep {
	return c.ladder
}

func (c *Config) IsAllowedGroup(chatID int64) bool {
	for _, id := range c.AllowedGroups {
		if id == chatID {
			return true
		}
	}
	return false
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) NotificationEnabled(kind string) bool {
	return c.Notifications[kind]
}

func (c *Config) ReplyCooldown() time.Duration {
	return time.Duration(c.ReplyCooldownSeconds) * time.Second
}

func (c *Config) MuteDuration() time.Duration {
	return time.Duration(c.MuteDurationSeconds) * time.Second
}

func (c *Config) TempBanDuration() time.Duration {
	return time.Duration(c.TempBanDurationSeconds) * time.Second
}

func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.DataRetentionDays) * 24 * time.Hour
}

func (c *Config) BotMessageLifetime() time.Duration {
	return time.Duration(c.BotMessageLifetimeSeconds) * time.Second
}

func (c *Config) PenaltyMessageLifetime() time.Duration {
	return time.Duration(c.PenaltyMessageLifetimeSeconds) * time.Second
}
