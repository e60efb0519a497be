package generations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func generationRow(gen Generation) *sqlmock.Rows {
	var completedAt any
	if gen.CompletedAt != nil {
		completedAt = *gen.CompletedAt
	}
	return sqlmock.NewRows([]string{
		"id", "user_id", "file_name", "format", "status", "resume_key", "extracted_text_key",
		"artifact_prefix", "archive_key", "archive_size", "provider", "model", "prompt_hash", "error_code",
		"created_at", "completed_at",
	}).AddRow(
		gen.ID, gen.UserID, gen.FileName, gen.Format, string(gen.Status), gen.ResumeKey, gen.ExtractedTextKey,
		gen.ArtifactPrefix, gen.ArchiveKey, gen.ArchiveSize, gen.Provider, gen.Model, gen.PromptHash, gen.ErrorCode,
		gen.CreatedAt, completedAt,
	)
}

func TestPGRepoCreateWritesAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	gen := Generation{
		ID:             "gen-1",
		UserID:         "user-1",
		FileName:       "resume.pdf",
		Format:         "pdf",
		Status:         StatusProcessing,
		ResumeKey:      "uploads/abc/1_resume.pdf",
		ArtifactPrefix: "sites/abc/gen-1",
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO generations").
		WithArgs(
			gen.ID,
			gen.UserID,
			gen.FileName,
			gen.Format,
			"processing",
			gen.ResumeKey,
			"",
			gen.ArtifactPrefix,
			"",
			int64(0),
			"",
			"",
			"",
			"",
			sqlmock.AnyArg(), // created_at
			sqlmock.AnyArg(), // completed_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), gen); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateMissingRowIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE generations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), Generation{ID: "gen-1", UserID: "user-1", Status: StatusFailed})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDChecksOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	completed := time.Now().UTC()
	gen := Generation{
		ID:          "gen-1",
		UserID:      "user-1",
		Status:      StatusCompleted,
		ArchiveKey:  "sites/abc/gen-1/portfolio_website.zip",
		ArchiveSize: 2048,
		CreatedAt:   completed.Add(-time.Minute),
		CompletedAt: &completed,
	}

	mock.ExpectQuery("SELECT .* FROM generations").
		WithArgs("gen-1").
		WillReturnRows(generationRow(gen))
	got, err := repo.GetByID(context.Background(), "user-1", "gen-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusCompleted || got.ArchiveSize != 2048 || got.CompletedAt == nil {
		t.Fatalf("unexpected generation: %+v", got)
	}

	mock.ExpectQuery("SELECT .* FROM generations").
		WithArgs("gen-1").
		WillReturnRows(generationRow(gen))
	if _, err := repo.GetByID(context.Background(), "user-2", "gen-1"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	mock.ExpectQuery("SELECT .* FROM generations").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "user-1", "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUserClampsPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	gen := Generation{ID: "gen-1", UserID: "user-1", Status: StatusFailed, ErrorCode: CodeMalformedOutput, CreatedAt: time.Now().UTC()}
	mock.ExpectQuery("SELECT .* FROM generations").
		WithArgs("user-1", 100, 0).
		WillReturnRows(generationRow(gen))

	gens, err := repo.ListByUser(context.Background(), "user-1", 1000, -1)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(gens) != 1 || gens[0].ErrorCode != CodeMalformedOutput || gens[0].CompletedAt != nil {
		t.Fatalf("unexpected generations: %+v", gens)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
