package generations

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/extract"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/site"
	"portfolio-backend/internal/sitegen"
)

const (
	maxUploadSize  = 10 << 20 // 10MB
	presignExpires = 15 * time.Minute
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generations", h.create)
	rg.GET("/generations", h.list)
	rg.GET("/generations/latest", h.latest)
	rg.GET("/generations/latest/download", h.downloadLatest)
	rg.GET("/generations/:id", h.get)
	rg.GET("/generations/:id/download", h.download)
	rg.GET("/generations/:id/files/:name", h.file)
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "Resume file is larger than 10 MB.", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "file_required", "Please upload a resume file.", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "file_required", "Please upload a resume file.", nil)
		return
	}
	defer file.Close()

	gen, err := h.Svc.Run(c.Request.Context(), userID, fileHeader.Filename, file)
	if gen.ID != "" {
		c.Set("generationId", gen.ID)
		c.Set("statusTransition", string(StatusProcessing)+"->"+string(gen.Status))
	}
	if err != nil {
		writeRunError(c, gen, err)
		return
	}

	preview, err := h.Svc.ResumePreview(c.Request.Context(), gen)
	if err != nil {
		telemetry.Warn("generation.preview_failed", map[string]any{
			"generation_id": gen.ID,
			"error":         err,
		})
	}
	respond.JSON(c, http.StatusCreated, CreateResponse{
		GenerationResponse: toResponse(gen),
		ResumePreview:      preview,
	})
}

func writeRunError(c *gin.Context, gen Generation, err error) {
	var details any
	if gen.ID != "" {
		details = gin.H{"generationId": gen.ID}
	}
	switch {
	case errors.Is(err, ErrFileRequired):
		respond.Error(c, http.StatusBadRequest, "file_required", "Please upload a resume file.", nil)
	case errors.Is(err, extract.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "unsupported_format", "Unsupported file format.", nil)
	case errors.Is(err, extract.ErrExtractionFailed):
		respond.Error(c, http.StatusUnprocessableEntity, CodeExtractionFailed, "Could not read text from the resume file.", details)
	case errors.Is(err, sitegen.ErrGenerationFailed):
		respond.Error(c, http.StatusBadGateway, CodeGenerationFailed, "The site generator did not respond, try again later.", details)
	case errors.Is(err, site.ErrMalformedOutput):
		var malformed *site.MalformedOutputError
		if errors.As(err, &malformed) && gen.ID != "" {
			details = gin.H{"generationId": gen.ID, "token": malformed.Token}
		}
		respond.Error(c, http.StatusBadGateway, CodeMalformedOutput, "The generated site was not in the expected format.", details)
	case errors.Is(err, ErrStorage):
		respond.Error(c, http.StatusInternalServerError, CodeStorageFailed, "Failed to store the generated site.", details)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to generate the site.", details)
	}
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	gens, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list generations", nil)
		return
	}
	resp := make([]GenerationResponse, 0, len(gens))
	for _, gen := range gens {
		resp = append(resp, toResponse(gen))
	}
	respond.OK(c, resp)
}

func (h *Handler) latest(c *gin.Context) {
	gen, ok := h.lookup(c, "")
	if !ok {
		return
	}
	respond.OK(c, toResponse(gen))
}

func (h *Handler) get(c *gin.Context) {
	gen, ok := h.lookup(c, c.Param("id"))
	if !ok {
		return
	}
	respond.OK(c, toResponse(gen))
}

func (h *Handler) downloadLatest(c *gin.Context) {
	if gen, ok := h.lookup(c, ""); ok {
		h.serveArchive(c, gen)
	}
}

func (h *Handler) download(c *gin.Context) {
	if gen, ok := h.lookup(c, c.Param("id")); ok {
		h.serveArchive(c, gen)
	}
}

func (h *Handler) serveArchive(c *gin.Context, gen Generation) {
	if !gen.Ready() {
		respond.Error(c, http.StatusConflict, "not_ready", "The website files are not available for this generation.", gin.H{
			"status":    gen.Status,
			"errorCode": gen.ErrorCode,
		})
		return
	}
	if presigner, ok := h.Svc.Store.(object.Presigner); ok {
		url, err := presigner.PresignGet(c.Request.Context(), gen.ArchiveKey, site.ArchiveFile, presignExpires)
		if err == nil {
			c.Redirect(http.StatusFound, url)
			return
		}
		telemetry.Warn("generation.presign_failed", map[string]any{
			"generation_id": gen.ID,
			"error":         err,
		})
	}
	h.serveArtifact(c, gen, site.ArchiveFile, site.ArchiveFile)
}

func (h *Handler) file(c *gin.Context) {
	gen, ok := h.lookup(c, c.Param("id"))
	if !ok {
		return
	}
	name := c.Param("name")
	if name == site.ArchiveFile {
		h.serveArchive(c, gen)
		return
	}
	h.serveArtifact(c, gen, name, "")
}

func (h *Handler) serveArtifact(c *gin.Context, gen Generation, name, downloadName string) {
	rc, err := h.Svc.OpenArtifact(c.Request.Context(), gen, name)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "The website files are not available for this generation.", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, CodeStorageFailed, "failed to read website file", nil)
		}
		return
	}
	defer rc.Close()
	if err := respond.Attachment(c, site.ContentType(name), downloadName, rc); err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeStorageFailed, "failed to read website file", nil)
	}
}

// lookup resolves the run named by id, or the latest run when id is empty,
// writing the error response itself.
func (h *Handler) lookup(c *gin.Context, id string) (Generation, bool) {
	userID := middleware.UserIDFromContext(c)
	var (
		gen Generation
		err error
	)
	if id == "" {
		gen, err = h.Svc.Latest(c.Request.Context(), userID)
	} else {
		gen, err = h.Svc.Get(c.Request.Context(), userID, id)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "generation not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "access denied", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch generation", nil)
		}
		return Generation{}, false
	}
	c.Set("generationId", gen.ID)
	return gen, true
}
