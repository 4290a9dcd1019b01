package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

// AddSubscription returns false when the user is already subscribed.
// A new row inherits the user's ban flag.
func (s *SQLiteDB) AddSubscription(ctx context.Context, userID int64, region models.Region) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, region, is_banned)
		VALUES (?, ?, (SELECT COALESCE(MAX(is_banned), 0) FROM subscriptions WHERE user_id = ?))
		ON CONFLICT(user_id, region) DO NOTHING`,
		userID, string(region), userID,
	)
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteDB) RemoveSubscription(ctx context.Context, userID int64, region models.Region) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND region = ? AND region != ?`,
		userID, string(region), banRow,
	)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteDB) SubscriptionsByUser(ctx context.Context, userID int64) ([]models.Region, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region FROM subscriptions WHERE user_id = ? AND region != ? ORDER BY id`,
		userID, banRow,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		regions = append(regions, models.Region(r))
	}
	return regions, rows.Err()
}

func (s *SQLiteDB) UsersByRegion(ctx context.Context, region models.Region) ([]int64, error) {
	return s.queryUserIDs(ctx, `SELECT user_id FROM subscriptions WHERE region = ? ORDER BY user_id`, string(region))
}

func (s *SQLiteDB) AllUsers(ctx context.Context) ([]int64, error) {
	return s.queryUserIDs(ctx, `SELECT DISTINCT user_id FROM subscriptions WHERE region != ? ORDER BY user_id`, banRow)
}

func (s *SQLiteDB) queryUserIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteDB) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return isBanned(ctx, s.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isBanned(ctx context.Context, q querier, userID int64) (bool, error) {
	var banned bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = ? AND is_banned = 1)`,
		userID,
	).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("query ban flag: %w", err)
	}
	return banned, nil
}

// SetBanned flips the ban flag on every row of the user and reports whether
// anything changed. A banned user always keeps a ban row so the flag
// survives unsubscribing from everything.
func (s *SQLiteDB) SetBanned(ctx context.Context, userID int64, banned bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin ban tx: %w", err)
	}
	defer tx.Rollback()

	current, err := isBanned(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	if current == banned {
		return false, nil
	}

	flag := 0
	if banned {
		flag = 1
	}
	if _, err := tx.ExecContext(ctx, `UPDATE subscriptions SET is_banned = ? WHERE user_id = ?`, flag, userID); err != nil {
		return false, fmt.Errorf("update ban flag: %w", err)
	}
	if banned {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO subscriptions (user_id, region, is_banned) VALUES (?, ?, 1) ON CONFLICT(user_id, region) DO UPDATE SET is_banned = 1`,
			userID, banRow)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = ? AND region = ?`, userID, banRow)
	}
	if err != nil {
		return false, fmt.Errorf("update ban row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit ban tx: %w", err)
	}
	return true, nil
}
