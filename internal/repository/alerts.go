package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

func (s *SQLiteDB) AppendState(ctx context.Context, st *models.AlertState) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_states (region, hazard_type, severity, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(st.Region), string(st.HazardType), string(st.Severity), st.Source, st.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert alert state: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read alert state id: %w", err)
	}
	st.ID = id
	return nil
}

func (s *SQLiteDB) LastSeverity(ctx context.Context, region models.Region, hazard models.HazardType) (models.Severity, bool, error) {
	var sev string
	err := s.db.QueryRowContext(ctx,
		`SELECT severity FROM alert_states WHERE region = ? AND hazard_type = ? ORDER BY id DESC LIMIT 1`,
		string(region), string(hazard),
	).Scan(&sev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query last severity: %w", err)
	}
	return models.Severity(sev), true, nil
}

// ListStates returns fact log rows newest first.
func (s *SQLiteDB) ListStates(ctx context.Context, opts Filter) ([]models.AlertState, error) {
	var (
		where []string
		args  []any
	)
	if opts.Region != nil {
		where = append(where, "region = ?")
		args = append(args, string(*opts.Region))
	}
	if opts.HazardType != nil {
		where = append(where, "hazard_type = ?")
		args = append(args, string(*opts.HazardType))
	}
	if opts.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}

	query := `SELECT id, region, hazard_type, severity, source, created_at FROM alert_states`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alert states: %w", err)
	}
	defer rows.Close()

	var states []models.AlertState
	for rows.Next() {
		var (
			st                       models.AlertState
			region, hazard, severity string
			createdAt                int64
		)
		if err := rows.Scan(&st.ID, &region, &hazard, &severity, &st.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert state: %w", err)
		}
		st.Region = models.Region(region)
		st.HazardType = models.HazardType(hazard)
		st.Severity = models.Severity(severity)
		st.CreatedAt = time.UnixMilli(createdAt)
		states = append(states, st)
	}
	return states, rows.Err()
}

const currentStatesQuery = `
	SELECT a.region, a.hazard_type, a.severity
	FROM alert_states a
	JOIN (
		SELECT MAX(id) AS id FROM alert_states %s GROUP BY region, hazard_type
	) latest ON latest.id = a.id`

func (s *SQLiteDB) Snapshot(ctx context.Context) (models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(currentStatesQuery, ""))
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := make(models.Snapshot)
	for rows.Next() {
		var region, hazard, severity string
		if err := rows.Scan(&region, &hazard, &severity); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r := models.Region(region)
		if snap[r] == nil {
			snap[r] = make(map[models.HazardType]models.Severity)
		}
		snap[r][models.HazardType(hazard)] = models.Severity(severity)
	}
	return snap, rows.Err()
}

func (s *SQLiteDB) RegionStatuses(ctx context.Context, region models.Region) (map[models.HazardType]models.Severity, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(currentStatesQuery, "WHERE region = ?"), string(region))
	if err != nil {
		return nil, fmt.Errorf("query region statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[models.HazardType]models.Severity)
	for rows.Next() {
		var r, hazard, severity string
		if err := rows.Scan(&r, &hazard, &severity); err != nil {
			return nil, fmt.Errorf("scan region status: %w", err)
		}
		statuses[models.HazardType(hazard)] = models.Severity(severity)
	}
	return statuses, rows.Err()
}
