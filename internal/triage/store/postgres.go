package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pontes/internal/triage/models"
	"pontes/pkg/platform/sentinel"
	"pontes/pkg/platform/tx"
)

const recordColumns = `id, user_id, branch, catalog_version, legal_status, work_status, housing_status,
	language_level, location, arrival_date, interests, urgencies, answers, completed, completed_at,
	created_at, updated_at`

// PostgresStore persists triage records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed triage store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID string) (*models.Record, error) {
	rec, err := findByUserID(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Upsert locks the user's row, merges rec into it, and writes it back in one
// transaction. A concurrent first insert for the same user is resolved by the
// unique user_id constraint: the loser re-reads and merges.
func (s *PostgresStore) Upsert(ctx context.Context, rec *models.Record) (*models.Record, error) {
	var result *models.Record
	err := tx.Run(ctx, s.db, func(ctx context.Context, t *sql.Tx) error {
		stored, err := findByUserID(ctx, t, rec.UserID, true)
		if errors.Is(err, sentinel.ErrNotFound) {
			created := copyRecord(*rec)
			if created.ID == uuid.Nil {
				created.ID = uuid.New()
			}
			inserted, insertErr := insert(ctx, t, created)
			if insertErr != nil {
				return insertErr
			}
			if inserted {
				result = created
				return nil
			}
			stored, err = findByUserID(ctx, t, rec.UserID, true)
		}
		if err != nil {
			return err
		}

		stored.Merge(copyRecord(*rec), rec.UpdatedAt)
		if err := update(ctx, t, stored); err != nil {
			return err
		}
		result = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func findByUserID(ctx context.Context, q queryer, userID string, forUpdate bool) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM triage_records WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		rec                            models.Record
		legal, work, housing, language sql.NullString
		location, arrivalDate          sql.NullString
		interests, urgencies           pq.StringArray
		answers                        []byte
		completedAt                    sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&rec.ID, &rec.UserID, &rec.Branch, &rec.CatalogVersion,
		&legal, &work, &housing, &language, &location, &arrivalDate,
		&interests, &urgencies, &answers, &rec.Completed, &completedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find triage record by user id: %w", err)
	}

	rec.LegalStatus = models.LegalStatus(legal.String)
	rec.WorkStatus = models.WorkStatus(work.String)
	rec.HousingStatus = models.HousingStatus(housing.String)
	rec.LanguageLevel = models.LanguageLevel(language.String)
	rec.Location = location.String
	rec.ArrivalDate = arrivalDate.String
	rec.Interests = nonNil(interests)
	rec.Urgencies = nonNil(urgencies)
	if completedAt.Valid {
		at := completedAt.Time
		rec.CompletedAt = &at
	}
	rec.Answers = models.Answers{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal triage answers: %w", err)
		}
	}
	return &rec, nil
}

// insert reports false when another writer created the row first.
func insert(ctx context.Context, t *sql.Tx, rec *models.Record) (bool, error) {
	args, err := recordArgs(rec)
	if err != nil {
		return false, err
	}
	res, err := t.ExecContext(ctx, `
		INSERT INTO triage_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (user_id) DO NOTHING
	`, args...)
	if err != nil {
		return false, fmt.Errorf("insert triage record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert triage record: %w", err)
	}
	return n == 1, nil
}

func update(ctx context.Context, t *sql.Tx, rec *models.Record) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	_, err = t.ExecContext(ctx, `
		UPDATE triage_records SET
			branch = $3,
			catalog_version = $4,
			legal_status = $5,
			work_status = $6,
			housing_status = $7,
			language_level = $8,
			location = $9,
			arrival_date = $10,
			interests = $11,
			urgencies = $12,
			answers = $13,
			completed = $14,
			completed_at = $15,
			updated_at = $17
		WHERE id = $1 AND user_id = $2
	`, args...)
	if err != nil {
		return fmt.Errorf("update triage record: %w", err)
	}
	return nil
}

func recordArgs(rec *models.Record) ([]any, error) {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return nil, fmt.Errorf("marshal triage answers: %w", err)
	}
	var completedAt sql.NullTime
	if rec.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *rec.CompletedAt, Valid: true}
	}
	return []any{
		rec.ID, rec.UserID, string(rec.Branch), rec.CatalogVersion,
		nullString(string(rec.LegalStatus)), nullString(string(rec.WorkStatus)),
		nullString(string(rec.HousingStatus)), nullString(string(rec.LanguageLevel)),
		nullString(rec.Location), nullString(rec.ArrivalDate),
		pq.Array(nonNil(rec.Interests)), pq.Array(nonNil(rec.Urgencies)),
		string(answers), rec.Completed, completedAt, rec.CreatedAt, rec.UpdatedAt,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
