package db

import (
	"context"
	"time"

	"github.com/iamwavecut/replywarden/internal/config"
)

// Client is the narrow persistence contract shared by the escalation
// pipeline and the admin remediation handlers.
type Client interface {
	Close() error

	AppendViolation(ctx context.Context, ev *ViolationEvent) error
	IncrementViolationCounter(ctx context.Context, userID int64, violationType string) (int, error)
	ResetViolationCounter(ctx context.Context, userID int64, violationType string) error
	GetViolationCounts(ctx context.Context, userID int64) (map[string]int, error)
	IncrementIncident(ctx context.Context, userID int64, at time.Time) (int, error)
	GetIncidentCount(ctx context.Context, userID int64) (int, error)

	// RecordViolation performs the full incident bookkeeping atomically:
	// append the event, bump the per-type streak counter and, when the
	// rule's threshold is reached, reset the streak and advance the
	// incident count, all in one transaction.
	RecordViolation(ctx context.Context, ev *ViolationEvent, rule config.ViolationRule) (*ViolationOutcome, error)

	SetActivePenalty(ctx context.Context, penalty *ActivePenalty) error
	GetActivePenalty(ctx context.Context, userID int64) (*ActivePenalty, error)
	DeleteActivePenalty(ctx context.Context, userID int64) error

	ArchiveDeletedMessage(ctx context.Context, msg *DeletedMessage) (int64, error)
	GetArchivedMessage(ctx context.Context, id int64) (*DeletedMessage, error)

	ResetAllUserData(ctx context.Context, userID int64) error
	PruneOlderThan(ctx context.Context, cutoff time.Time, now time.Time) (PruneStats, error)
}
