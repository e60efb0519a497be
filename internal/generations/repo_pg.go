package generations

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const generationColumns = `id, user_id, file_name, format, status, resume_key, extracted_text_key,
    artifact_prefix, archive_key, archive_size, provider, model, prompt_hash, error_code,
    created_at, completed_at`

// Create inserts a generation.
func (r *PGRepo) Create(ctx context.Context, gen Generation) error {
	const query = `
INSERT INTO generations (` + generationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.DB.ExecContext(ctx, query,
		gen.ID,
		gen.UserID,
		gen.FileName,
		gen.Format,
		string(gen.Status),
		gen.ResumeKey,
		gen.ExtractedTextKey,
		gen.ArtifactPrefix,
		gen.ArchiveKey,
		gen.ArchiveSize,
		gen.Provider,
		gen.Model,
		gen.PromptHash,
		gen.ErrorCode,
		gen.CreatedAt,
		nullTime(gen),
	)
	return err
}

// Update persists the mutable fields of a generation.
func (r *PGRepo) Update(ctx context.Context, gen Generation) error {
	const query = `
UPDATE generations
SET status = $3,
    extracted_text_key = $4,
    archive_key = $5,
    archive_size = $6,
    provider = $7,
    model = $8,
    prompt_hash = $9,
    error_code = $10,
    completed_at = $11
WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query,
		gen.ID,
		gen.UserID,
		string(gen.Status),
		gen.ExtractedTextKey,
		gen.ArchiveKey,
		gen.ArchiveSize,
		gen.Provider,
		gen.Model,
		gen.PromptHash,
		gen.ErrorCode,
		nullTime(gen),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a generation by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, generationID string) (Generation, error) {
	const query = `
SELECT ` + generationColumns + `
FROM generations
WHERE id = $1
LIMIT 1`
	gen, err := scanGeneration(r.DB.QueryRowContext(ctx, query, generationID))
	if err != nil {
		return Generation{}, err
	}
	if gen.UserID != userID {
		return Generation{}, ErrForbidden
	}
	return gen, nil
}

// GetLatestByUser returns the newest generation of a user.
func (r *PGRepo) GetLatestByUser(ctx context.Context, userID string) (Generation, error) {
	const query = `
SELECT ` + generationColumns + `
FROM generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanGeneration(r.DB.QueryRowContext(ctx, query, userID))
}

// ListByUser lists generations ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Generation, error) {
	limit, offset = clampPage(limit, offset)
	const query = `
SELECT ` + generationColumns + `
FROM generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gens := []Generation{}
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (Generation, error) {
	var (
		gen         Generation
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.FileName,
		&gen.Format,
		&status,
		&gen.ResumeKey,
		&gen.ExtractedTextKey,
		&gen.ArtifactPrefix,
		&gen.ArchiveKey,
		&gen.ArchiveSize,
		&gen.Provider,
		&gen.Model,
		&gen.PromptHash,
		&gen.ErrorCode,
		&gen.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Generation{}, ErrNotFound
		}
		return Generation{}, err
	}
	gen.Status = Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		gen.CompletedAt = &t
	}
	return gen, nil
}

func nullTime(gen Generation) sql.NullTime {
	if gen.CompletedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *gen.CompletedAt, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
