package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db"
	"github.com/iamwavecut/replywarden/internal/infra"
)

func (c *sqliteClient) AppendViolation(ctx context.Context, ev *db.ViolationEvent) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO users_violations (user_id, user_name, chat_id, violation_type, message_text, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := c.db.ExecContext(ctx, query,
		ev.UserID, ev.UserName, ev.ChatID, ev.ViolationType, ev.MessageText, ev.Timestamp)
	if err != nil {
		return err
	}
	ev.ID, _ = result.LastInsertId()
	return nil
}

func (c *sqliteClient) IncrementViolationCounter(ctx context.Context, userID int64, violationType string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO violation_counters (user_id, violation_type, count)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id, violation_type) DO UPDATE
		SET count = count + 1
		RETURNING count
	`, userID, violationType).Scan(&count)
	return count, err
}

func (c *sqliteClient) ResetViolationCounter(ctx context.Context, userID int64, violationType string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx,
		"UPDATE violation_counters SET count = 0 WHERE user_id = ? AND violation_type = ?",
		userID, violationType)
	return err
}

func (c *sqliteClient) GetViolationCounts(ctx context.Context, userID int64) (map[string]int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var counters []db.ViolationCounter
	err := c.db.SelectContext(ctx, &counters,
		"SELECT user_id, violation_type, count FROM violation_counters WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(counters))
	for _, counter := range counters {
		counts[counter.ViolationType] = counter.Count
	}
	return counts, nil
}

func (c *sqliteClient) IncrementIncident(ctx context.Context, userID int64, at time.Time) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO users_incidents (user_id, incident_count, last_incident_ts)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE
		SET incident_count = incident_count + 1,
		    last_incident_ts = excluded.last_incident_ts
		RETURNING incident_count
	`, userID, at.Unix()).Scan(&count)
	return count, err
}

func (c *sqliteClient) GetIncidentCount(ctx context.Context, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count,
		"SELECT incident_count FROM users_incidents WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// RecordViolation runs the increment-and-threshold protocol in a single
// transaction so concurrent violations for the same user cannot lose
// updates. Transient lock contention is retried a bounded number of times.
func (c *sqliteClient) RecordViolation(ctx context.Context, ev *db.ViolationEvent, rule config.ViolationRule) (*db.ViolationOutcome, error) {
	if !rule.Enabled {
		return &db.ViolationOutcome{}, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	outcome := &db.ViolationOutcome{}
	err := infra.Retry(ctx, busyRetryAttempts, busyRetryBackoff, isBusyErr, func() error {
		tx, err := c.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		result, err := tx.ExecContext(ctx, `
			INSERT INTO users_violations (user_id, user_name, chat_id, violation_type, message_text, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ev.UserID, ev.UserName, ev.ChatID, ev.ViolationType, ev.MessageText, ev.Timestamp)
		if err != nil {
			return err
		}
		ev.ID, _ = result.LastInsertId()

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO violation_counters (user_id, violation_type, count)
			VALUES (?, ?, 1)
			ON CONFLICT(user_id, violation_type) DO UPDATE
			SET count = count + 1
			RETURNING count
		`, ev.UserID, ev.ViolationType).Scan(&outcome.StreakCount); err != nil {
			return err
		}

		if rule.CountAsViolation && outcome.StreakCount >= rule.ViolationsBeforePenalty {
			if _, err := tx.ExecContext(ctx,
				"UPDATE violation_counters SET count = 0 WHERE user_id = ? AND violation_type = ?",
				ev.UserID, ev.ViolationType); err != nil {
				return err
			}
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO users_incidents (user_id, incident_count, last_incident_ts)
				VALUES (?, 1, ?)
				ON CONFLICT(user_id) DO UPDATE
				SET incident_count = incident_count + 1,
				    last_incident_ts = excluded.last_incident_ts
				RETURNING incident_count
			`, ev.UserID, ev.Timestamp).Scan(&outcome.IncidentCount); err != nil {
				return err
			}
			outcome.Promoted = true
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, errors.WithMessage(err, "record violation")
	}
	return outcome, nil
}

func (c *sqliteClient) SetActivePenalty(ctx context.Context, penalty *db.ActivePenalty) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO penalties_active (user_id, user_name, penalty_type, until_date)
		VALUES (:user_id, :user_name, :penalty_type, :until_date)
		ON CONFLICT(user_id) DO UPDATE
		SET user_name = excluded.user_name,
		    penalty_type = excluded.penalty_type,
		    until_date = excluded.until_date
	`
	_, err := c.db.NamedExecContext(ctx, query, penalty)
	return err
}

func (c *sqliteClient) GetActivePenalty(ctx context.Context, userID int64) (*db.ActivePenalty, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var penalty db.ActivePenalty
	err := c.db.GetContext(ctx, &penalty,
		"SELECT user_id, user_name, penalty_type, until_date FROM penalties_active WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &penalty, nil
}

func (c *sqliteClient) DeleteActivePenalty(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "DELETE FROM penalties_active WHERE user_id = ?", userID)
	return err
}

func (c *sqliteClient) ArchiveDeletedMessage(ctx context.Context, msg *db.DeletedMessage) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	result, err := c.db.ExecContext(ctx, `
		INSERT INTO messages_deleted (user_id, user_name, group_id, message_text, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, msg.UserID, msg.UserName, msg.GroupID, msg.MessageText, msg.Timestamp)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	msg.ID = id
	return id, nil
}

func (c *sqliteClient) GetArchivedMessage(ctx context.Context, id int64) (*db.DeletedMessage, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var msg db.DeletedMessage
	err := c.db.GetContext(ctx, &msg, `
		SELECT id, user_id, user_name, group_id, message_text, timestamp
		FROM messages_deleted
		WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *sqliteClient) ResetAllUserData(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, query := range []string{
		"DELETE FROM violation_counters WHERE user_id = ?",
		"DELETE FROM users_incidents WHERE user_id = ?",
		"DELETE FROM users_violations WHERE user_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, query, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PruneOlderThan removes log and archive rows older than cutoff and
// active penalties that expired before now.
func (c *sqliteClient) PruneOlderThan(ctx context.Context, cutoff time.Time, now time.Time) (db.PruneStats, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := db.PruneStats{}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "DELETE FROM users_violations WHERE timestamp < ?", cutoff.Unix())
	if err != nil {
		return stats, err
	}
	stats.Violations, _ = result.RowsAffected()

	result, err = tx.ExecContext(ctx, "DELETE FROM messages_deleted WHERE timestamp < ?", cutoff.Unix())
	if err != nil {
		return stats, err
	}
	stats.Messages, _ = result.RowsAffected()

	result, err = tx.ExecContext(ctx,
		"DELETE FROM penalties_active WHERE until_date IS NOT NULL AND until_date < ?", now.Unix())
	if err != nil {
		return stats, err
	}
	stats.Penalties, _ = result.RowsAffected()

	return stats, tx.Commit()
}
