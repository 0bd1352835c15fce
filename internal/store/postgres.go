package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"autoshutdown/api/internal/rules"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadConfigSnapshot reads the five central policy values. A missing key
// falls back to false/zero; any other failure is fatal to the operation.
func (s *PostgresStore) LoadConfigSnapshot(ctx context.Context) (rules.Snapshot, error) {
	var snapshot rules.Snapshot
	var err error

	if snapshot.AutoShutdownEnabled, err = s.configBool(ctx, rules.KeyAutoShutdownEnabled); err != nil {
		return rules.Snapshot{}, err
	}
	if snapshot.GlobalMaxLifetimeSeconds, err = s.configInt(ctx, rules.KeyGlobalMaxLifetime); err != nil {
		return rules.Snapshot{}, err
	}
	if snapshot.GlobalDefaultLifetimeSeconds, err = s.configInt(ctx, rules.KeyGlobalDefaultLifetime); err != nil {
		return rules.Snapshot{}, err
	}
	if snapshot.NotificationsEnabled, err = s.configBool(ctx, rules.KeyNotificationsEnabled); err != nil {
		return rules.Snapshot{}, err
	}
	if snapshot.NotificationPeriodSeconds, err = s.configInt(ctx, rules.KeyNotificationPeriodSecs); err != nil {
		return rules.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *PostgresStore) configValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE namespace=$1 AND key=$2`,
		rules.ConfigNamespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read config %s: %v", ErrUnavailable, key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) configBool(ctx context.Context, key string) (bool, error) {
	raw, found, err := s.configValue(ctx, key)
	if err != nil || !found {
		return false, err
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("config %s: %w", key, err)
	}
	return parsed, nil
}

func (s *PostgresStore) configInt(ctx context.Context, key string) (int64, error) {
	raw, found, err := s.configValue(ctx, key)
	if err != nil || !found {
		return 0, err
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	return parsed, nil
}

// EnumerateUsers returns every known user exactly once, joined with their
// preference record when one exists. Ordered by login id so repeated runs
// produce stable output.
func (s *PostgresStore) EnumerateUsers(ctx context.Context) ([]UserPreference, error) {
	const query = `
		SELECT u.id, u.login_id,
			p.user_id IS NOT NULL,
			COALESCE(p.enable_auto_shutdown, FALSE),
			p.max_lifetime_seconds,
			p.enable_session_notifications,
			p.session_notification_period,
			p.notify_collaborator_additions
		FROM users u
		LEFT JOIN user_preferences p ON p.user_id = u.id
		ORDER BY u.login_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate users: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var result []UserPreference
	for rows.Next() {
		var (
			item     UserPreference
			hasPref  bool
			pref     rules.Preference
			lifetime sql.NullInt64
			notifyOn sql.NullBool
			period   sql.NullInt64
			collab   sql.NullBool
		)
		if err := rows.Scan(
			&item.User.ID, &item.User.LoginID,
			&hasPref, &pref.EnableAutoShutdown,
			&lifetime, &notifyOn, &period, &collab,
		); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		if hasPref {
			pref.UserID = item.User.ID
			if lifetime.Valid {
				pref.MaxLifetimeSeconds = &lifetime.Int64
			}
			if notifyOn.Valid {
				pref.EnableSessionNotifications = &notifyOn.Bool
			}
			if period.Valid {
				pref.SessionNotificationPeriod = &period.Int64
			}
			if collab.Valid {
				pref.NotifyCollaboratorAdditions = &collab.Bool
			}
			item.Preference = &pref
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: enumerate users: %v", ErrUnavailable, err)
	}
	return result, nil
}

// ApplyPreferencePatch merges the patch into the user's preference record,
// inserting it if absent. Columns not named by the patch keep their previous
// values.
func (s *PostgresStore) ApplyPreferencePatch(ctx context.Context, userID string, patch rules.PreferencePatch) error {
	columns, values := patchColumns(patch)
	if len(columns) == 0 {
		return nil
	}

	insertCols := append([]string{"user_id"}, columns...)
	placeholders := make([]string, len(insertCols))
	for i := range insertCols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	assignments := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		assignments = append(assignments, fmt.Sprintf("%s=EXCLUDED.%s", col, col))
	}
	assignments = append(assignments, "updated_at=NOW()")

	query := fmt.Sprintf(`
		INSERT INTO user_preferences (%s)
		VALUES (%s)
		ON CONFLICT (user_id) DO UPDATE SET %s`,
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(assignments, ", "),
	)

	args := append([]any{userID}, values...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply preference patch for %s: %w", userID, err)
	}
	return nil
}

// DeletePreference removes the user's preference record; deleting a record
// that does not exist is a no-op.
func (s *PostgresStore) DeletePreference(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete preference for %s: %w", userID, err)
	}
	return nil
}

// patchColumns flattens a patch into SQL column names and values. A cleared
// lifetime cap is written as an explicit NULL, which is how "no cap" is
// stored; it is distinct from leaving the column alone.
func patchColumns(patch rules.PreferencePatch) ([]string, []any) {
	var columns []string
	var values []any

	if patch.EnableAutoShutdown != nil {
		columns = append(columns, "enable_auto_shutdown")
		values = append(values, *patch.EnableAutoShutdown)
	}
	switch {
	case patch.ClearMaxLifetime:
		columns = append(columns, "max_lifetime_seconds")
		values = append(values, nil)
	case patch.MaxLifetimeSeconds != nil:
		columns = append(columns, "max_lifetime_seconds")
		values = append(values, *patch.MaxLifetimeSeconds)
	}
	if patch.EnableSessionNotifications != nil {
		columns = append(columns, "enable_session_notifications")
		values = append(values, *patch.EnableSessionNotifications)
	}
	if patch.SessionNotificationPeriod != nil {
		columns = append(columns, "session_notification_period")
		values = append(values, *patch.SessionNotificationPeriod)
	}
	if patch.NotifyCollaboratorAdditions != nil {
		columns = append(columns, "notify_collaborator_additions")
		values = append(values, *patch.NotifyCollaboratorAdditions)
	}
	return columns, values
}
