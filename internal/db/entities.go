package db

type (
	// ViolationEvent is one row of the append-only violation log.
	ViolationEvent struct {
		ID            int64  `db:"id"`
		UserID        int64  `db:"user_id"`
		UserName      string `db:"user_name"`
		ChatID        int64  `db:"chat_id"`
		ViolationType string `db:"violation_type"`
		MessageText   string `db:"message_text"`
		Timestamp     int64  `db:"timestamp"`
	}

	// DeletedMessage archives a removed message so an admin can restore it.
	DeletedMessage struct {
		ID          int64  `db:"id"`
		UserID      int64  `db:"user_id"`
		UserName    string `db:"user_name"`
		GroupID     int64  `db:"group_id"`
		MessageText string `db:"message_text"`
		Timestamp   int64  `db:"timestamp"`
	}

	// ActivePenalty is the single currently-enforced penalty of a user.
	// UntilDate is nil for penalties without an expiry.
	ActivePenalty struct {
		UserID      int64  `db:"user_id"`
		UserName    string `db:"user_name"`
		PenaltyType string `db:"penalty_type"`
		UntilDate   *int64 `db:"until_date"`
	}

	// ViolationCounter tracks the current streak of one violation type.
	ViolationCounter struct {
		UserID        int64  `db:"user_id"`
		ViolationType string `db:"violation_type"`
		Count         int    `db:"count"`
	}

	// UserIncidents is the penalty-eligible cumulative count of a user.
	UserIncidents struct {
		UserID         int64 `db:"user_id"`
		IncidentCount  int   `db:"incident_count"`
		LastIncidentTS int64 `db:"last_incident_ts"`
	}

	// ViolationOutcome reports what the atomic record operation did.
	ViolationOutcome struct {
		// StreakCount is the per-type counter value after the increment,
		// before any reset.
		StreakCount int
		// Promoted is true when the streak crossed its threshold, the
		// counter was reset and the incident count advanced.
		Promoted bool
		// IncidentCount is the user's incident count after the operation.
		// Only meaningful when Promoted is true.
		IncidentCount int
	}

	// PruneStats counts rows removed by a retention sweep.
	PruneStats struct {
		Violations int64
		Messages   int64
		Penalties  int64
	}
)
