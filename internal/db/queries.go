package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/errors"
)

// SyncRun is one recorded refresh attempt.
type SyncRun struct {
	ID         string `json:"id"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
	Status     string `json:"status"`
	Fetched    int    `json:"fetched"`
	Error      string `json:"error,omitempty"`
}

const breedColumns = `id, name, origin, temperament, description, life_span, image_url, is_favorite`

// UpsertBreeds inserts or replaces breeds in a single transaction.
// Every column, is_favorite included, takes the incoming value.
func UpsertBreeds(ctx context.Context, db *sql.DB, breeds []breed.Breed) error {
	if len(breeds) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO breeds (`+breedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			origin = excluded.origin,
			temperament = excluded.temperament,
			description = excluded.description,
			life_span = excluded.life_span,
			image_url = excluded.image_url,
			is_favorite = excluded.is_favorite
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, b := range breeds {
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.Name, b.Origin, b.Temperament, b.Description,
			b.LifeSpan, b.ImageURL, boolToInt(b.IsFavorite),
		); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetBreedByID retrieves a breed by id.
// Returns a NOT_FOUND error if no row matches.
func GetBreedByID(ctx context.Context, db *sql.DB, id string) (*breed.Breed, error) {
	row := db.QueryRowContext(ctx, `SELECT `+breedColumns+` FROM breeds WHERE id = ?`, id)
	b, err := scanBreed(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return b, nil
}

// ListBreeds returns every cached breed ordered by name.
func ListBreeds(ctx context.Context, db *sql.DB) ([]breed.Breed, error) {
	return queryBreeds(ctx, db, `SELECT `+breedColumns+` FROM breeds ORDER BY name ASC, id ASC`)
}

// SearchBreeds returns breeds whose name contains query, case-sensitively,
// ordered by name. An empty query matches all rows.
func SearchBreeds(ctx context.Context, db *sql.DB, query string) ([]breed.Breed, error) {
	if query == "" {
		return ListBreeds(ctx, db)
	}
	// instr is byte-wise, unlike LIKE which folds ASCII case.
	return queryBreeds(ctx, db,
		`SELECT `+breedColumns+` FROM breeds WHERE instr(name, ?) > 0 ORDER BY name ASC, id ASC`,
		query,
	)
}

// ListFavorites returns favorite breeds ordered by name.
func ListFavorites(ctx context.Context, db *sql.DB) ([]breed.Breed, error) {
	return queryBreeds(ctx, db,
		`SELECT `+breedColumns+` FROM breeds WHERE is_favorite = 1 ORDER BY name ASC, id ASC`,
	)
}

// SetFavorite updates the favorite flag of one breed.
// Returns a NOT_FOUND error if no row matches.
func SetFavorite(ctx context.Context, db *sql.DB, id string, favorite bool) error {
	result, err := db.ExecContext(ctx, `UPDATE breeds SET is_favorite = ? WHERE id = ?`, boolToInt(favorite), id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// CountBreeds returns the number of cached breeds.
func CountBreeds(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM breeds`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ClearBreeds deletes every cached breed and returns how many were removed.
func ClearBreeds(ctx context.Context, db *sql.DB) (int, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM breeds`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// InsertSyncRun records a refresh attempt.
func InsertSyncRun(ctx context.Context, db *sql.DB, run SyncRun) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, started_at, finished_at, status, fetched, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.FinishedAt, run.Status, run.Fetched, toNullString(run.Error))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListSyncRuns returns up to limit refresh attempts, newest first.
// limit <= 0 returns all.
func ListSyncRuns(ctx context.Context, db *sql.DB, limit int) ([]SyncRun, error) {
	query := `SELECT id, started_at, finished_at, status, fetched, error FROM sync_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []SyncRun{}
	for rows.Next() {
		var (
			r      SyncRun
			errMsg sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Fetched, &errMsg); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

func queryBreeds(ctx context.Context, db *sql.DB, query string, args ...any) ([]breed.Breed, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	breeds := []breed.Breed{}
	for rows.Next() {
		b, err := scanBreed(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		breeds = append(breeds, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return breeds, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanBreed scans a single row into a Breed.
func scanBreed(row scanner) (*breed.Breed, error) {
	var (
		b   breed.Breed
		fav int
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Origin, &b.Temperament, &b.Description,
		&b.LifeSpan, &b.ImageURL, &fav,
	)
	if err != nil {
		return nil, err
	}
	b.IsFavorite = fav != 0
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// toNullString maps an empty string to NULL.
func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
