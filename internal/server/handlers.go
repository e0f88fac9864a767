package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reelstack/reelstack-api/internal/job"
	"github.com/reelstack/reelstack-api/internal/storage"
)

// allowedExtensions is the upload extension allow-list.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *job.Service
	store          storage.Store
	validator      *validator.Validate
	logger         *slog.Logger
	outputDir      string
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes caps multipart request bodies.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance. outputDir is where composed
// reels are served from.
func NewHandlers(service *job.Service, store storage.Store, outputDir string, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		store:          store,
		validator:      validator.New(),
		logger:         logger,
		outputDir:      outputDir,
		maxUploadBytes: 100 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// SubmitJob handles POST /jobs requests: two uploaded clips plus a
// caption. The job ID is returned before any processing happens.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return
	}

	topPath, ok := h.saveClip(w, r, "meme_video", "top")
	if !ok {
		return
	}
	bottomPath, ok := h.saveClip(w, r, "gameplay_video", "bottom")
	if !ok {
		// The first clip is already on disk; drop it.
		_ = h.store.Cleanup(r.Context(), []string{topPath})
		return
	}
	caption := strings.TrimSpace(r.FormValue("caption"))

	created, err := h.service.Submit(r.Context(), job.SubmitInput{
		TopPath:    topPath,
		BottomPath: bottomPath,
		Caption:    caption,
	})
	if err != nil {
		h.logger.Error("failed to submit job",
			slog.String("error", err.Error()),
		)
		_ = h.store.Cleanup(r.Context(), []string{topPath, bottomPath})
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	h.logger.Info("job accepted",
		slog.String("job_id", created.ID),
	)

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// saveClip validates and stores one uploaded clip, writing the error
// response itself when validation fails.
func (h *Handlers) saveClip(w http.ResponseWriter, r *http.Request, field, hint string) (string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "both meme and gameplay videos are required", "MISSING_VIDEO")
		return "", false
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeError(w, http.StatusBadRequest, "invalid "+hint+" video format", "INVALID_FORMAT")
		return "", false
	}

	path, err := h.store.SaveUpload(r.Context(), hint+"_*"+ext, file)
	if err != nil {
		h.logger.Error("failed to save upload",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save upload", "UPLOAD_FAILED")
		return "", false
	}
	return path, true
}

// GetJob handles GET /jobs/{id} requests: the status projection of a job.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, jobToResponse(found))
}

// jobToResponse projects a job snapshot into the polling DTO.
func jobToResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:       j.ID,
		Status:   string(j.Status),
		Progress: j.Progress,
		Message:  j.Message,
	}
	if j.Status == job.StatusError {
		resp.Error = j.Error
	}
	if j.Status == job.StatusDone && j.OutputName != "" {
		resp.PreviewURL = "/videos/" + j.OutputName
		resp.DownloadURL = "/videos/" + j.OutputName
	}
	if j.Publish != nil {
		resp.Publish = &PublishView{
			Status:        string(j.Publish.Status),
			URL:           j.Publish.URL,
			Error:         j.Publish.LastError,
			ErrorCategory: j.Publish.ErrorCategory,
		}
	}
	return resp
}

// PublishJob handles POST /jobs/{id}/publish requests.
func (h *Handlers) PublishJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("publish request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	published, err := h.service.Publish(r.Context(), jobID, job.PublishInput{
		Caption:  req.Caption,
		Hashtags: req.Hashtags,
	})
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		case errors.Is(err, job.ErrNotDone):
			writeError(w, http.StatusConflict, "job is not done yet", "PRECONDITION_FAILED")
		case errors.Is(err, job.ErrPublishInFlight):
			writeError(w, http.StatusConflict, "a publish attempt is already in flight", "PUBLISH_IN_FLIGHT")
		case errors.Is(err, job.ErrPublishNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "publishing is not configured", "PUBLISH_NOT_CONFIGURED")
		default:
			h.logger.Error("failed to start publish",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to start publish", "PUBLISH_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, PublishResponse{
		ID:            published.ID,
		PublishStatus: string(published.Publish.Status),
	})
}

// ServeVideo handles GET /videos/{filename}: streams a composed reel so
// clients can preview it and the publish platform can fetch it.
func (h *Handlers) ServeVideo(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	// Reject traversal: only bare filenames are served.
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		writeError(w, http.StatusBadRequest, "invalid filename", "INVALID_FILENAME")
		return
	}

	path := filepath.Join(h.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
