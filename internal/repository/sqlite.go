package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sos_reports (
			id TEXT PRIMARY KEY,
			submitter_id TEXT NOT NULL,
			submitter_name TEXT NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			category TEXT NOT NULL,
			status TEXT NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sos_reports_created_at ON sos_reports(created_at);
		CREATE INDEX IF NOT EXISTS idx_sos_reports_status ON sos_reports(status);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Create(ctx context.Context, a *models.Alert) error {
	a.ID = uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sos_reports (id, submitter_id, submitter_name, lat, lng, category, status, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SubmitterID, a.SubmitterName, a.Location.Lat, a.Location.Lng,
		string(a.Category), string(a.Status), a.Description, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) List(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submitter_id, submitter_name, lat, lng, category, status, description, created_at
		FROM sos_reports
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, submitter_id, submitter_name, lat, lng, category, status, description, created_at
		FROM sos_reports
		WHERE id = ?`, id)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Resolve marks the record resolved. Resolving an already-resolved record
// succeeds and returns the record unchanged.
func (s *SQLiteDB) Resolve(ctx context.Context, id string) (*models.Alert, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sos_reports SET status = ? WHERE id = ?`,
		string(models.StatusResolved), id,
	)
	if err != nil {
		return nil, fmt.Errorf("error resolving alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return s.GetByID(ctx, id)
}

func (s *SQLiteDB) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sos_reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) ResolvedIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sos_reports WHERE status = ? ORDER BY created_at DESC`,
		string(models.StatusResolved),
	)
	if err != nil {
		return nil, fmt.Errorf("error listing resolved ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*models.Alert, error) {
	var (
		a        models.Alert
		category string
		status   string
		created  time.Time
	)
	err := row.Scan(&a.ID, &a.SubmitterID, &a.SubmitterName,
		&a.Location.Lat, &a.Location.Lng, &category, &status,
		&a.Description, &created)
	if err != nil {
		return nil, err
	}
	a.Category = models.AlertCategory(category)
	a.Status = models.AlertStatus(status)
	a.CreatedAt = created
	return &a, nil
}
