package generations

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/events"
	"portfolio-backend/internal/extract"
	"portfolio-backend/internal/extract/fixtures"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/storage/object/local"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/site"
	"portfolio-backend/internal/sitegen"
)

const validRaw = "--html--<h1>Jane</h1>--html----css--h1{color:red}--css----js--console.log(1)--js--"

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, resumeText string) (sitegen.Result, error) {
	args := m.Called(ctx, resumeText)
	return args.Get(0).(sitegen.Result), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

// completionFailingRepo rejects the update that marks a run completed.
type completionFailingRepo struct {
	*MemoryRepo
}

func (r completionFailingRepo) Update(ctx context.Context, gen Generation) error {
	if gen.Status == StatusCompleted {
		return errors.New("connection reset")
	}
	return r.MemoryRepo.Update(ctx, gen)
}

type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, store object.ObjectStore, key string, format extract.Format) (string, string, error) {
	s.calls++
	if s.err != nil {
		return "", "", s.err
	}
	return s.text, "", nil
}

type serviceFixture struct {
	svc       *Service
	store     *local.Store
	repo      *MemoryRepo
	generator *mockGenerator
	extractor *stubExtractor
	publisher *recordingPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	restore := telemetry.SetOutput(io.Discard)
	t.Cleanup(restore)

	f := &serviceFixture{
		store:     local.New(t.TempDir()),
		repo:      NewMemoryRepo(),
		generator: &mockGenerator{},
		extractor: &stubExtractor{text: "Jane Doe\nEngineer"},
		publisher: &recordingPublisher{},
	}
	ids := 0
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = &Service{
		Store:     f.store,
		Repo:      f.repo,
		Generator: f.generator,
		Events:    f.publisher,
		Extract:   f.extractor.Extract,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			ids++
			return fmt.Sprintf("gen-%d", ids)
		},
	}
	return f
}

func readArtifact(t *testing.T, svc *Service, gen Generation, name string) string {
	t.Helper()
	rc, err := svc.OpenArtifact(context.Background(), gen, name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestRunStoresSiteAndArchive(t *testing.T) {
	f := newServiceFixture(t)
	f.generator.On("Generate", mock.Anything, "Jane Doe\nEngineer").
		Return(sitegen.Result{Raw: validRaw, PromptHash: "abc", Provider: "gemini", Model: "gemini-2.5-flash-lite"}, nil).Once()

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "gen-1", gen.ID)
	assert.Equal(t, StatusCompleted, gen.Status)
	assert.Equal(t, "pdf", gen.Format)
	assert.Equal(t, "abc", gen.PromptHash)
	assert.Equal(t, ArtifactPrefix("user-1", "gen-1"), gen.ArtifactPrefix)
	assert.Equal(t, gen.ArtifactKey(site.ArchiveFile), gen.ArchiveKey)
	assert.NotNil(t, gen.CompletedAt)
	assert.True(t, gen.Ready())

	assert.Equal(t, "<h1>Jane</h1>", readArtifact(t, f.svc, gen, site.IndexFile))
	assert.Equal(t, "h1{color:red}", readArtifact(t, f.svc, gen, site.StyleFile))
	assert.Equal(t, "console.log(1)", readArtifact(t, f.svc, gen, site.ScriptFile))

	archive := readArtifact(t, f.svc, gen, site.ArchiveFile)
	assert.EqualValues(t, len(archive), gen.ArchiveSize)
	zr, err := zip.NewReader(bytes.NewReader([]byte(archive)), int64(len(archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	stored, err := f.repo.GetByID(context.Background(), "user-1", gen.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeGenerationCompleted, f.publisher.events[0].Type)
	assert.Equal(t, 1, f.extractor.calls)
	f.generator.AssertExpectations(t)
}

func TestRunRejectsUnsupportedFormatBeforeAnyWork(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Run(context.Background(), "user-1", "resume.txt", strings.NewReader("plain text"))
	require.ErrorIs(t, err, extract.ErrUnsupportedFormat)

	assert.Zero(t, f.extractor.calls)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	_, err = f.repo.GetLatestByUser(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.publisher.events)
}

func TestRunRequiresFile(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Run(context.Background(), "user-1", "  ", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileRequired)

	_, err = f.svc.Run(context.Background(), "user-1", "resume.pdf", nil)
	assert.ErrorIs(t, err, ErrFileRequired)
}

func TestRunExtractionFailureSkipsGenerator(t *testing.T) {
	f := newServiceFixture(t)
	f.extractor.err = fmt.Errorf("%w: pdf: bad xref", extract.ErrExtractionFailed)

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.pdf", strings.NewReader("broken"))
	require.ErrorIs(t, err, extract.ErrExtractionFailed)

	assert.Equal(t, StatusFailed, gen.Status)
	assert.Equal(t, CodeExtractionFailed, gen.ErrorCode)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	stored, err := f.repo.GetByID(context.Background(), "user-1", gen.ID)
	require.NoError(t, err)
	assert.Equal(t, CodeExtractionFailed, stored.ErrorCode)
}

func TestRunExtractStoreErrorIsStorageFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.extractor.err = errors.New("disk gone")

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.docx", strings.NewReader("PK"))
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, CodeStorageFailed, gen.ErrorCode)
}

func TestRunGenerationFailureIsRecorded(t *testing.T) {
	f := newServiceFixture(t)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(sitegen.Result{PromptHash: "abc", Provider: "openai", Model: "gpt-4o-mini"},
			fmt.Errorf("%w: %w", sitegen.ErrGenerationFailed, errors.New("timeout"))).Once()

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, sitegen.ErrGenerationFailed)

	assert.Equal(t, StatusFailed, gen.Status)
	assert.Equal(t, CodeGenerationFailed, gen.ErrorCode)
	assert.Equal(t, "abc", gen.PromptHash)
	assert.Equal(t, "openai", gen.Provider)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeGenerationFailed, f.publisher.events[0].Type)
	assert.Equal(t, CodeGenerationFailed, f.publisher.events[0].ErrorCode)
}

func TestRunCompletionUpdateFailureIsRecorded(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.Repo = completionFailingRepo{MemoryRepo: f.repo}
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(sitegen.Result{Raw: validRaw}, nil).Once()

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, StatusFailed, gen.Status)
	assert.Equal(t, CodeStorageFailed, gen.ErrorCode)
	assert.Empty(t, gen.ArchiveKey)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeGenerationFailed, f.publisher.events[0].Type)
	assert.Equal(t, CodeStorageFailed, f.publisher.events[0].ErrorCode)

	stored, err := f.repo.GetByID(context.Background(), "user-1", gen.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, CodeStorageFailed, stored.ErrorCode)
}

func TestRunMalformedOutputWritesNoArtifacts(t *testing.T) {
	f := newServiceFixture(t)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(sitegen.Result{Raw: "--html--<p>only html</p>--html--"}, nil).Once()

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, site.ErrMalformedOutput)

	var malformed *site.MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "--css--", malformed.Token)
	assert.Equal(t, CodeMalformedOutput, gen.ErrorCode)

	for _, name := range []string{site.IndexFile, site.StyleFile, site.ScriptFile, site.ArchiveFile} {
		_, err := f.store.Open(context.Background(), gen.ArtifactKey(name))
		assert.ErrorIs(t, err, object.ErrNotFound, name)
	}
	_, err = f.svc.OpenArtifact(context.Background(), gen, site.ArchiveFile)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRunsKeepSeparateArtifacts(t *testing.T) {
	f := newServiceFixture(t)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(sitegen.Result{Raw: "--html--first--html----css----css----js----js--"}, nil).Once()
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(sitegen.Result{Raw: "--html--second--html----css----css----js----js--"}, nil).Once()

	first, err := f.svc.Run(context.Background(), "user-1", "a.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	second, err := f.svc.Run(context.Background(), "user-1", "b.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ArtifactPrefix, second.ArtifactPrefix)
	assert.Equal(t, "first", readArtifact(t, f.svc, first, site.IndexFile))
	assert.Equal(t, "second", readArtifact(t, f.svc, second, site.IndexFile))

	latest, err := f.svc.Latest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestRunEventPublishFailureDoesNotFailRun(t *testing.T) {
	f := newServiceFixture(t)
	f.publisher.err = errors.New("broker down")
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(sitegen.Result{Raw: validRaw}, nil).Once()

	gen, err := f.svc.Run(context.Background(), "user-1", "resume.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, gen.Status)
}

func TestRunWithRealExtractionAndPreview(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.Extract = nil
	f.generator.On("Generate", mock.Anything, "Jane Doe\nEngineer").
		Return(sitegen.Result{Raw: validRaw}, nil).Once()

	doc := fixtures.DOCX([]fixtures.Paragraph{{"Jane Doe"}, {"Engineer"}}, "")
	gen, err := f.svc.Run(context.Background(), "user-1", "resume.docx", bytes.NewReader(doc))
	require.NoError(t, err)
	assert.NotEmpty(t, gen.ExtractedTextKey)

	preview, err := f.svc.ResumePreview(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer", preview)
	f.generator.AssertExpectations(t)
}

func TestOpenArtifactRejectsUnknownName(t *testing.T) {
	f := newServiceFixture(t)
	gen := Generation{Status: StatusCompleted, ArchiveKey: "sites/x/y/portfolio_website.zip", ArtifactPrefix: "sites/x/y"}

	_, err := f.svc.OpenArtifact(context.Background(), gen, "../secret.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.OpenArtifact(context.Background(), gen, site.IndexFile)
	assert.ErrorIs(t, err, ErrNotFound)
}
