package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db"
	"github.com/iamwavecut/replywarden/internal/observability"
)

// ResolveTier maps an incident count onto the penalty ladder with floor
// semantics: the highest threshold not exceeding the count wins. Counts
// below the lowest rung resolve to the empty string.
func ResolveTier(ladder []config.PenaltyStep, incidents int) string {
	tier := ""
	for _, step := range ladder {
		if incidents < step.Threshold {
			break
		}
		tier = step.Tier
	}
	return tier
}

// NextStep returns the first ladder rung strictly above the incident
// count, or nil when the user is already at the top.
func NextStep(ladder []config.PenaltyStep, incidents int) *config.PenaltyStep {
	for _, step := range ladder {
		if step.Threshold > incidents {
			next := step
			return &next
		}
	}
	return nil
}

// Violation is the escalator's view of one detected and recorded offense.
type Violation struct {
	UserID      int64
	UserName    string
	ChatID      int64
	Type        string
	MessageText string
	ArchivedID  int64
	Outcome     *db.ViolationOutcome
}

// Escalator turns promoted incidents into penalties. Enforcement and
// notice failures are logged but never abort the pipeline: the incident
// is already recorded and must not be rolled back over a Telegram error.
type Escalator struct {
	store    db.Client
	gateway  Gateway
	notifier *Notifier
	cfg      *config.Config
}

func NewEscalator(store db.Client, gateway Gateway, notifier *Notifier, cfg *config.Config) *Escalator {
	return &Escalator{store: store, gateway: gateway, notifier: notifier, cfg: cfg}
}

// Escalate applies the ladder to a recorded violation. Only promotions
// trigger a penalty: a violation that merely advances the streak counter
// leaves the user's standing unchanged.
func (e *Escalator) Escalate(ctx context.Context, v Violation) error {
	if v.Outcome == nil || !v.Outcome.Promoted {
		return nil
	}

	ctx, span := otel.Tracer("moderation").Start(ctx, "escalate")
	defer span.End()

	tier := ResolveTier(e.cfg.Ladder(), v.Outcome.IncidentCount)
	if tier == "" {
		return nil
	}
	span.SetAttributes(
		attribute.String("tier", tier),
		attribute.Int("incidents", v.Outcome.IncidentCount),
	)

	if err := e.notifier.AdminReport(v.UserID, v.UserName, v.Type, tier, v.MessageText, v.Outcome.IncidentCount, v.ArchivedID); err != nil {
		log.WithError(err).Error("cant send admin report")
	}

	e.apply(ctx, v, tier)
	observability.RecordPenalty(tier)
	return nil
}

func (e *Escalator) apply(ctx context.Context, v Violation, tier string) {
	l := log.WithFields(log.Fields{
		"user_id": v.UserID,
		"tier":    tier,
	})
	now := time.Now()

	switch tier {
	case config.TierWarning:
		if err := e.notifier.NoticeWarning(v.ChatID, v.UserName, v.Outcome.IncidentCount); err != nil {
			l.WithError(err).Error("cant send warning notice")
		}

	case config.TierReadOnly:
		until := now.Add(e.cfg.MuteDuration())
		if err := e.gateway.Restrict(v.ChatID, v.UserID, until); err != nil {
			l.WithError(err).Error("cant restrict member")
		}
		e.recordPenalty(ctx, v, tier, &until)
		if err := e.notifier.NoticePenalty(v.ChatID, v.UserName, tier, v.Outcome.IncidentCount, until); err != nil {
			l.WithError(err).Error("cant send mute notice")
		}

	case config.TierKick:
		// Telegram has no plain kick, a short ban followed by an unban
		// removes the member while letting them rejoin.
		until := now.Add(time.Minute)
		if err := e.gateway.Ban(v.ChatID, v.UserID, &until, false); err != nil {
			l.WithError(err).Error("cant kick member")
		} else if err := e.gateway.Unban(v.ChatID, v.UserID); err != nil {
			l.WithError(err).Error("cant unban kicked member")
		}
		if err := e.notifier.NoticePenalty(v.ChatID, v.UserName, tier, v.Outcome.IncidentCount, time.Time{}); err != nil {
			l.WithError(err).Error("cant send kick notice")
		}

	case config.TierKickBan:
		until := now.Add(e.cfg.TempBanDuration())
		if err := e.gateway.Ban(v.ChatID, v.UserID, &until, false); err != nil {
			l.WithError(err).Error("cant temp-ban member")
		}
		e.recordPenalty(ctx, v, tier, &until)
		if err := e.notifier.NoticePenalty(v.ChatID, v.UserName, tier, v.Outcome.IncidentCount, until); err != nil {
			l.WithError(err).Error("cant send temp-ban notice")
		}

	case config.TierBan:
		if err := e.gateway.Ban(v.ChatID, v.UserID, nil, false); err != nil {
			l.WithError(err).Error("cant ban member")
		}
		e.recordPenalty(ctx, v, tier, nil)
		if err := e.notifier.NoticePenalty(v.ChatID, v.UserName, tier, v.Outcome.IncidentCount, time.Time{}); err != nil {
			l.WithError(err).Error("cant send ban notice")
		}

	default:
		l.Error(errors.Errorf("unknown penalty tier %q", tier))
	}
}

// recordPenalty persists the lasting restriction so it can be revoked
// later. Warnings and kicks leave nothing behind and are not recorded.
func (e *Escalator) recordPenalty(ctx context.Context, v Violation, tier string, until *time.Time) {
	penalty := &db.ActivePenalty{
		UserID:      v.UserID,
		UserName:    v.UserName,
		PenaltyType: tier,
	}
	if until != nil {
		ts := until.Unix()
		penalty.UntilDate = &ts
	}
	if err := e.store.SetActivePenalty(ctx, penalty); err != nil {
		log.WithError(err).WithField("user_id", v.UserID).Error("cant record active penalty")
	}
}
