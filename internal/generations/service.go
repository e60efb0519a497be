package generations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/events"
	"portfolio-backend/internal/extract"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
	"portfolio-backend/internal/site"
	"portfolio-backend/internal/sitegen"
)

const previewLimit = 4000

// SiteGenerator produces the raw delimited site text for a resume.
type SiteGenerator interface {
	Generate(ctx context.Context, resumeText string) (sitegen.Result, error)
}

// ExtractFunc reads a stored upload and returns its text and the key of the derived copy.
type ExtractFunc func(ctx context.Context, store object.ObjectStore, key string, format extract.Format) (string, string, error)

// Service runs the resume-to-site pipeline and serves its artifacts.
type Service struct {
	Store     object.ObjectStore
	Repo      Repo
	Generator SiteGenerator
	Events    events.Publisher
	Extract   ExtractFunc
	Now       func() time.Time
	NewID     func() string
}

// ArtifactPrefix is the storage prefix holding every output of one run.
func ArtifactPrefix(userID, generationID string) string {
	return util.ScopedKey("sites", userID, generationID)
}

// Run validates the upload, stores it, and runs extract, generate, parse and
// package in order. Artifacts are written only once parsing succeeded, so a
// run stores either all four outputs or none. On failure the returned
// Generation carries the recorded error code when a run record exists.
func (s *Service) Run(ctx context.Context, userID, fileName string, r io.Reader) (Generation, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" || r == nil {
		return Generation{}, ErrFileRequired
	}
	format, err := extract.FormatFromFileName(fileName)
	if err != nil {
		return Generation{}, err
	}

	start := s.now()
	metrics.IncGenerationStarted()
	id := s.newID()

	resumeKey, _, _, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		s.record(ctx, Generation{ID: id, UserID: userID}, CodeStorageFailed, start)
		return Generation{}, fmt.Errorf("%w: save upload: %w", ErrStorage, err)
	}

	gen := Generation{
		ID:             id,
		UserID:         userID,
		FileName:       fileName,
		Format:         string(format),
		Status:         StatusProcessing,
		ResumeKey:      resumeKey,
		ArtifactPrefix: ArtifactPrefix(userID, id),
		CreatedAt:      start,
	}
	if err := s.Repo.Create(ctx, gen); err != nil {
		s.record(ctx, gen, CodeStorageFailed, start)
		return Generation{}, fmt.Errorf("create generation: %w", err)
	}
	telemetry.Info("generation.started", map[string]any{
		"generation_id": gen.ID,
		"user_id":       userID,
		"format":        gen.Format,
	})

	text, extractedKey, err := s.extract(ctx, resumeKey, format)
	if err != nil {
		code := CodeExtractionFailed
		if !errors.Is(err, extract.ErrExtractionFailed) {
			code = CodeStorageFailed
			err = fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return s.fail(ctx, gen, code, start, err)
	}
	gen.ExtractedTextKey = extractedKey

	result, err := s.Generator.Generate(ctx, text)
	gen.PromptHash = result.PromptHash
	gen.Provider = result.Provider
	gen.Model = result.Model
	if err != nil {
		return s.fail(ctx, gen, CodeGenerationFailed, start, err)
	}

	parsed, err := site.Parse(result.Raw)
	if err != nil {
		return s.fail(ctx, gen, CodeMalformedOutput, start, err)
	}

	archive, err := site.Archive(parsed)
	if err != nil {
		return s.fail(ctx, gen, CodeStorageFailed, start, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	if err := s.writeArtifacts(ctx, gen, parsed, archive); err != nil {
		return s.fail(ctx, gen, CodeStorageFailed, start, fmt.Errorf("%w: %w", ErrStorage, err))
	}

	completedAt := s.now()
	gen.Status = StatusCompleted
	gen.ArchiveKey = gen.ArtifactKey(site.ArchiveFile)
	gen.ArchiveSize = int64(len(archive))
	gen.CompletedAt = &completedAt
	if err := s.Repo.Update(ctx, gen); err != nil {
		gen.ArchiveKey = ""
		gen.ArchiveSize = 0
		return s.fail(ctx, gen, CodeStorageFailed, start, fmt.Errorf("%w: update generation: %w", ErrStorage, err))
	}
	s.record(ctx, gen, "", start)
	return gen, nil
}

func (s *Service) writeArtifacts(ctx context.Context, gen Generation, parsed site.Site, archive []byte) error {
	for _, doc := range parsed.Documents() {
		if _, err := s.Store.SaveWithKey(ctx, gen.ArtifactKey(doc.Name), site.ContentType(doc.Name), strings.NewReader(doc.Content)); err != nil {
			return fmt.Errorf("save %s: %w", doc.Name, err)
		}
	}
	if _, err := s.Store.SaveWithKey(ctx, gen.ArtifactKey(site.ArchiveFile), site.ContentType(site.ArchiveFile), bytes.NewReader(archive)); err != nil {
		return fmt.Errorf("save %s: %w", site.ArchiveFile, err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, gen Generation, code string, start time.Time, cause error) (Generation, error) {
	completedAt := s.now()
	gen.Status = StatusFailed
	gen.ErrorCode = code
	gen.CompletedAt = &completedAt
	// The run already failed; a detached context still records it if the request was cancelled.
	if err := s.Repo.Update(context.WithoutCancel(ctx), gen); err != nil {
		telemetry.Error("generation.update_failed", map[string]any{
			"generation_id": gen.ID,
			"error":         err,
		})
	}
	telemetry.Error("generation.failed", map[string]any{
		"generation_id": gen.ID,
		"user_id":       gen.UserID,
		"error_code":    code,
		"error":         cause,
	})
	s.record(ctx, gen, code, start)
	return gen, cause
}

// record updates metrics and publishes the lifecycle event. An empty code means success.
func (s *Service) record(ctx context.Context, gen Generation, code string, start time.Time) {
	elapsed := float64(s.now().Sub(start).Milliseconds())
	metrics.ObserveGenerationDurationMs(elapsed)

	evt := events.Event{
		Type:         events.TypeGenerationCompleted,
		GenerationID: gen.ID,
		UserID:       gen.UserID,
		Status:       string(StatusCompleted),
		OccurredAt:   s.now(),
	}
	if code != "" {
		metrics.IncGenerationFailed(code)
		evt.Type = events.TypeGenerationFailed
		evt.Status = string(StatusFailed)
		evt.ErrorCode = code
	} else {
		metrics.IncGenerationCompleted()
		telemetry.Info("generation.completed", map[string]any{
			"generation_id": gen.ID,
			"user_id":       gen.UserID,
			"archive_size":  gen.ArchiveSize,
			"duration_ms":   elapsed,
		})
	}

	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(context.WithoutCancel(ctx), evt); err != nil {
		telemetry.Warn("generation.event_publish_failed", map[string]any{
			"generation_id": gen.ID,
			"event":         evt.Type,
			"error":         err,
		})
	}
}

// Get returns a generation owned by userID.
func (s *Service) Get(ctx context.Context, userID, generationID string) (Generation, error) {
	return s.Repo.GetByID(ctx, userID, generationID)
}

// Latest returns the user's most recent run, whatever its status.
func (s *Service) Latest(ctx context.Context, userID string) (Generation, error) {
	return s.Repo.GetLatestByUser(ctx, userID)
}

// List returns the user's runs newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Generation, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// OpenArtifact opens one named output of a completed run.
func (s *Service) OpenArtifact(ctx context.Context, gen Generation, name string) (io.ReadCloser, error) {
	if !gen.Ready() {
		return nil, ErrNotReady
	}
	if !isArtifactName(name) {
		return nil, ErrNotFound
	}
	rc, err := s.Store.Open(ctx, gen.ArtifactKey(name))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorage, name, err)
	}
	return rc, nil
}

// ResumePreview returns the start of the extracted resume text of a run.
func (s *Service) ResumePreview(ctx context.Context, gen Generation) (string, error) {
	if gen.ExtractedTextKey == "" {
		return "", nil
	}
	rc, err := s.Store.Open(ctx, gen.ExtractedTextKey)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, previewLimit))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func isArtifactName(name string) bool {
	switch name {
	case site.IndexFile, site.StyleFile, site.ScriptFile, site.ArchiveFile:
		return true
	default:
		return false
	}
}

func (s *Service) extract(ctx context.Context, key string, format extract.Format) (string, string, error) {
	if s.Extract != nil {
		return s.Extract(ctx, s.Store, key, format)
	}
	return extract.ExtractText(ctx, s.Store, key, format)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
