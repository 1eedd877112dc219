package app

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/trilakes/ghostradar/app/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore implements Store on a Postgres connection. All multi-step
// account mutations run inside a transaction with the user row locked.
type PostgresStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgresStore connects, pings and applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string, loc *time.Location) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}

	s := &PostgresStore{db: db, loc: loc}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, "migrations")
}

const userColumns = `id, device_id, plan, unlocked_until, free_scans_used_today, free_scans_day, last_seen, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var (
		u             models.User
		unlockedUntil sql.NullTime
		freeScansDay  sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.DeviceID,
		&u.Plan,
		&unlockedUntil,
		&u.FreeScansUsedToday,
		&freeScansDay,
		&u.LastSeen,
		&u.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if unlockedUntil.Valid {
		t := unlockedUntil.Time
		u.UnlockedUntil = &t
	}
	if freeScansDay.Valid {
		u.FreeScansDay = freeScansDay.Time
	}
	return u, nil
}

func (s *PostgresStore) GetOrCreateUser(ctx context.Context, deviceID string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (device_id)
		VALUES ($1)
		ON CONFLICT (device_id) DO UPDATE SET last_seen = now()
		RETURNING `+userColumns+`;
	`, deviceID)
	return scanUser(row)
}

func (s *PostgresStore) AuthorizeScan(ctx context.Context, deviceID string, now time.Time) (Authorization, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Authorization{}, err
	}
	defer tx.Rollback()

	// Ensure the row exists before taking the lock.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (device_id)
		VALUES ($1)
		ON CONFLICT (device_id) DO NOTHING;
	`, deviceID); err != nil {
		return Authorization{}, err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE device_id = $1
		FOR UPDATE;
	`, deviceID)
	user, err := scanUser(row)
	if err != nil {
		return Authorization{}, err
	}

	user, gate := GateScan(user, now, s.loc)

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET free_scans_used_today = $1, free_scans_day = $2, last_seen = now()
		WHERE id = $3;
	`, user.FreeScansUsedToday, user.FreeScansDay, user.ID); err != nil {
		return Authorization{}, err
	}

	if err := tx.Commit(); err != nil {
		return Authorization{}, err
	}
	return Authorization{User: user, ScanGate: gate}, nil
}

func (s *PostgresStore) RefundFreeScan(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET free_scans_used_today = GREATEST(free_scans_used_today - 1, 0)
		WHERE id = $1;
	`, userID)
	return err
}

func (s *PostgresStore) SaveScan(ctx context.Context, userID, messageText, direction string, result models.ScanResult) (models.Scan, error) {
	signalsJSON, err := json.Marshal(result.HiddenSignals)
	if err != nil {
		return models.Scan{}, err
	}
	repliesJSON, err := json.Marshal(result.Replies)
	if err != nil {
		return models.Scan{}, err
	}

	scan := models.Scan{
		UserID:      userID,
		MessageText: messageText,
		Direction:   direction,
		ScanResult:  result,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO scans (
			user_id, message_text, direction,
			interest_score, red_flag_risk, emotional_distance, ghost_probability,
			reply_window, confidence, hidden_signals_count, hidden_signals,
			archetype, summary, replies
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at;
	`,
		userID,
		messageText,
		direction,
		result.InterestScore,
		result.RedFlagRisk,
		result.EmotionalDistance,
		result.GhostProbability,
		result.ReplyWindow,
		result.Confidence,
		result.HiddenSignalsCount,
		signalsJSON,
		result.Archetype,
		result.Summary,
		repliesJSON,
	).Scan(&scan.ID, &scan.CreatedAt)
	if err != nil {
		return models.Scan{}, err
	}
	return scan, nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, userID string, limit int) ([]models.Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, user_id, message_text, direction,
			interest_score, red_flag_risk, emotional_distance, ghost_probability,
			reply_window, confidence, hidden_signals_count, hidden_signals,
			archetype, summary, replies, created_at
		FROM scans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Scan
	for rows.Next() {
		var (
			scan        models.Scan
			signalsJSON []byte
			repliesJSON []byte
		)
		if err := rows.Scan(
			&scan.ID,
			&scan.UserID,
			&scan.MessageText,
			&scan.Direction,
			&scan.InterestScore,
			&scan.RedFlagRisk,
			&scan.EmotionalDistance,
			&scan.GhostProbability,
			&scan.ReplyWindow,
			&scan.Confidence,
			&scan.HiddenSignalsCount,
			&signalsJSON,
			&scan.Archetype,
			&scan.Summary,
			&repliesJSON,
			&scan.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(signalsJSON, &scan.HiddenSignals); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(repliesJSON, &scan.Replies); err != nil {
			return nil, err
		}
		out = append(out, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SavePendingCheckout(ctx context.Context, userID, sessionID string, plan models.Plan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions (user_id, stripe_session_id, plan)
		VALUES ($1, $2, $3);
	`, userID, sessionID, plan)
	return err
}

func (s *PostgresStore) FinalizeCheckout(ctx context.Context, sessionID, via string, now time.Time) (CheckoutFinalization, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return CheckoutFinalization{}, err
	}
	defer tx.Rollback()

	var fin CheckoutFinalization
	err = tx.QueryRowContext(ctx, `
		UPDATE checkout_sessions
		SET status = 'completed'
		WHERE stripe_session_id = $1 AND status = 'pending'
		RETURNING user_id, plan;
	`, sessionID).Scan(&fin.UserID, &fin.Plan)
	if errors.Is(err, sql.ErrNoRows) {
		// Already completed or unknown session: idempotent no-op.
		return CheckoutFinalization{}, nil
	}
	if err != nil {
		return CheckoutFinalization{}, err
	}
	fin.Applied = true

	switch fin.Plan {
	case models.PlanLifetime:
		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET plan = 'lifetime', unlocked_until = NULL
			WHERE id = $1;
		`, fin.UserID)
	default:
		// Monthly renewal replaces the prior expiry, it does not extend it.
		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET plan = 'monthly', unlocked_until = $1
			WHERE id = $2;
		`, now.Add(30*24*time.Hour), fin.UserID)
	}
	if err != nil {
		return CheckoutFinalization{}, err
	}

	metaJSON, err := json.Marshal(map[string]any{"plan": fin.Plan, "via": via})
	if err != nil {
		return CheckoutFinalization{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (user_id, event_name, meta)
		VALUES ($1, $2, $3);
	`, fin.UserID, "purchase_completed", metaJSON); err != nil {
		return CheckoutFinalization{}, err
	}

	if err := tx.Commit(); err != nil {
		return CheckoutFinalization{}, err
	}
	return fin, nil
}

func (s *PostgresStore) LogEvent(ctx context.Context, userID, name string, meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (user_id, event_name, meta)
		VALUES ($1, $2, $3);
	`, nullIfEmpty(userID), name, metaJSON)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
