package generations

import (
	"path"
	"time"
)

// Status is the lifecycle state of a generation run.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Error codes recorded on failed runs and returned by the API.
const (
	CodeExtractionFailed = "extraction_failed"
	CodeGenerationFailed = "generation_failed"
	CodeMalformedOutput  = "malformed_output"
	CodeStorageFailed    = "storage_failed"
)

// Generation is one resume-to-site run owned by a user.
type Generation struct {
	ID               string
	UserID           string
	FileName         string
	Format           string
	Status           Status
	ResumeKey        string
	ExtractedTextKey string
	ArtifactPrefix   string
	ArchiveKey       string
	ArchiveSize      int64
	Provider         string
	Model            string
	PromptHash       string
	ErrorCode        string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// ArtifactKey returns the storage key of a named output of this run.
func (g Generation) ArtifactKey(name string) string {
	return path.Join(g.ArtifactPrefix, name)
}

// Ready reports whether the run's artifacts can be served.
func (g Generation) Ready() bool {
	return g.Status == StatusCompleted && g.ArchiveKey != ""
}
