package generations

import (
	"time"

	"portfolio-backend/internal/site"
)

// GenerationResponse is the outward-facing representation of a run.
type GenerationResponse struct {
	GenerationID string     `json:"generationId"`
	FileName     string     `json:"fileName"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	Provider     string     `json:"provider,omitempty"`
	Model        string     `json:"model,omitempty"`
	PromptHash   string     `json:"promptHash,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ArchiveSize  int64      `json:"archiveSize,omitempty"`
	Files        []string   `json:"files,omitempty"`
	DownloadURL  string     `json:"downloadUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// CreateResponse is returned by a successful upload-and-generate call.
type CreateResponse struct {
	GenerationResponse
	ResumePreview string `json:"resumePreview"`
}

func toResponse(gen Generation) GenerationResponse {
	resp := GenerationResponse{
		GenerationID: gen.ID,
		FileName:     gen.FileName,
		Format:       gen.Format,
		Status:       string(gen.Status),
		Provider:     gen.Provider,
		Model:        gen.Model,
		PromptHash:   gen.PromptHash,
		ErrorCode:    gen.ErrorCode,
		ArchiveSize:  gen.ArchiveSize,
		CreatedAt:    gen.CreatedAt,
		CompletedAt:  gen.CompletedAt,
	}
	if gen.Ready() {
		resp.Files = []string{site.IndexFile, site.StyleFile, site.ScriptFile}
		resp.DownloadURL = "/api/v1/generations/" + gen.ID + "/download"
	}
	return resp
}
