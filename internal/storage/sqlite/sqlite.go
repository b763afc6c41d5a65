// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection turns lock
	// contention into queueing instead of SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const splitColumns = `id, creator_id, creator_name, scheduled_at, people_needed, is_closed,
	vendor_id, vendor_name, description, location, created_at, version`

// CreateSplit persists a new split and its ordered member list.
func (s *SQLiteStore) CreateSplit(ctx context.Context, split *models.Split) error {
	if split.ID == "" {
		split.ID = uuid.New().String()
	}
	if split.CreatedAt.IsZero() {
		split.CreatedAt = time.Now().UTC()
	}
	split.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO splits (`+splitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		split.ID, split.CreatorID, split.CreatorName, nullableTime(split.ScheduledAt),
		split.PeopleNeeded, split.IsClosed, split.VendorID, split.VendorName,
		split.Description, split.Location, split.CreatedAt.UnixNano(), split.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}

	if err := insertMembers(ctx, tx, split.ID, split.PeopleJoined); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSplit retrieves a split by ID, including its members in join order.
func (s *SQLiteStore) GetSplit(ctx context.Context, splitID string) (*models.Split, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+splitColumns+` FROM splits WHERE id = ?`, splitID)
	split, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	members, err := s.loadMembers(ctx, []string{split.ID})
	if err != nil {
		return nil, err
	}
	split.PeopleJoined = members[split.ID]

	return split, nil
}

// ListSplits returns splits matching the filter, newest first.
func (s *SQLiteStore) ListSplits(ctx context.Context, filter storage.SplitFilter) ([]*models.Split, error) {
	query := `SELECT ` + splitColumns + ` FROM splits WHERE 1 = 1`
	var args []interface{}

	if filter.Closed != nil {
		query += ` AND is_closed = ?`
		args = append(args, *filter.Closed)
	}
	if filter.Member != "" {
		query += ` AND id IN (SELECT split_id FROM split_members WHERE user_id = ?)`
		args = append(args, filter.Member)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}

	var splits []*models.Split
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	if len(splits) == 0 {
		return splits, nil
	}

	ids := make([]string, len(splits))
	for i, split := range splits {
		ids[i] = split.ID
	}
	members, err := s.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, split := range splits {
		split.PeopleJoined = members[split.ID]
	}

	return splits, nil
}

// UpdateSplit applies a partial update and bumps the row version.
func (s *SQLiteStore) UpdateSplit(ctx context.Context, splitID string, update storage.SplitUpdate) (*models.Split, error) {
	sets := []string{"version = version + 1"}
	var args []interface{}

	if update.IsClosed != nil {
		sets = append(sets, "is_closed = ?")
		args = append(args, *update.IsClosed)
	}
	if update.CreatorID != nil {
		sets = append(sets, "creator_id = ?")
		args = append(args, *update.CreatorID)
	}
	if update.CreatorName != nil {
		sets = append(sets, "creator_name = ?")
		args = append(args, *update.CreatorName)
	}

	query := `UPDATE splits SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, splitID)
	if update.ExpectVersion > 0 {
		query += ` AND version = ?`
		args = append(args, update.ExpectVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update split: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM splits WHERE id = ?", splitID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check split existence: %w", err)
		}
		return nil, fmt.Errorf("split %s: %w", splitID, storage.ErrStaleWrite)
	}

	if update.PeopleJoined != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM split_members WHERE split_id = ?", splitID); err != nil {
			return nil, fmt.Errorf("failed to clear split members: %w", err)
		}
		if err := insertMembers(ctx, tx, splitID, update.PeopleJoined); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetSplit(ctx, splitID)
}

// DeleteSplit removes a split; members cascade.
func (s *SQLiteStore) DeleteSplit(ctx context.Context, splitID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM splits WHERE id = ?", splitID)
	if err != nil {
		return fmt.Errorf("failed to delete split: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, splitID string, members []string) error {
	for i, userID := range members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO split_members (split_id, user_id, position) VALUES (?, ?, ?)",
			splitID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split member: %w", err)
		}
	}
	return nil
}

// loadMembers returns the ordered member lists for the given split IDs.
func (s *SQLiteStore) loadMembers(ctx context.Context, splitIDs []string) (map[string][]string, error) {
	query := `SELECT split_id, user_id FROM split_members
		WHERE split_id IN (?` + repeatPlaceholder(len(splitIDs)-1) + `)
		ORDER BY split_id, position`

	args := make([]interface{}, len(splitIDs))
	for i, id := range splitIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get split members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string, len(splitIDs))
	for rows.Next() {
		var splitID, userID string
		if err := rows.Scan(&splitID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan split member: %w", err)
		}
		members[splitID] = append(members[splitID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split members: %w", err)
	}

	return members, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSplit(row scanner) (*models.Split, error) {
	split := &models.Split{}
	var scheduledAt sql.NullInt64
	var createdAt int64

	err := row.Scan(
		&split.ID, &split.CreatorID, &split.CreatorName, &scheduledAt, &split.PeopleNeeded,
		&split.IsClosed, &split.VendorID, &split.VendorName, &split.Description,
		&split.Location, &createdAt, &split.Version,
	)
	if err != nil {
		return nil, err
	}

	if scheduledAt.Valid {
		t := time.Unix(0, scheduledAt.Int64).UTC()
		split.ScheduledAt = &t
	}
	split.CreatedAt = time.Unix(0, createdAt).UTC()

	return split, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(", ?", n)
}
