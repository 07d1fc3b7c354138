package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/logger"
	"github.com/atinyakov/ProjectMarket/internal/middleware"
	"github.com/atinyakov/ProjectMarket/internal/models"
	"github.com/atinyakov/ProjectMarket/internal/service"
)

// MaxUploadSize is the default cap on the multipart body of POST /files/upload.
const MaxUploadSize = 32 << 20

// FileService defines the submission operations required by FileHandler.
type FileService interface {
	Upload(ctx context.Context, u service.Upload) (models.Submission, error)
	List(ctx context.Context) ([]models.Submission, error)
	Download(ctx context.Context, key string) (models.StoredFile, error)
}

// FileHandler serves the /files endpoints.
type FileHandler struct {
	FileService FileService
	Log         *zap.Logger
	// MaxUpload caps upload bodies in bytes.
	MaxUpload int64
}

// NewFileHandler creates a FileHandler over svc.
func NewFileHandler(svc FileService, log *zap.Logger) *FileHandler {
	return &FileHandler{FileService: svc, Log: logger.OrNop(log), MaxUpload: MaxUploadSize}
}

// uploadForm is the text part of an upload.
type uploadForm struct {
	Title       string `form:"title" validate:"notblank"`
	Description string `form:"description"`
	StudentName string `form:"student_name" validate:"notblank"`
	StudentID   string `form:"student_id" validate:"notblank"`
	Abstract    string `form:"abstract" validate:"notblank"`
}

// Upload stores a multipart submission: a "file" part plus title,
// description, student_name, student_id and abstract fields.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := uploadForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		StudentName: r.FormValue("student_name"),
		StudentID:   r.FormValue("student_id"),
		Abstract:    r.FormValue("abstract"),
	}
	if err := checkStruct(form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}
	user, _ := middleware.UserFromContext(r.Context())

	sub, err := h.FileService.Upload(r.Context(), service.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     content,
		Title:       form.Title,
		Description: form.Description,
		StudentName: form.StudentName,
		StudentID:   form.StudentID,
		Abstract:    form.Abstract,
		UploadedBy:  user.ID,
	})
	if err != nil {
		h.Log.Error("failed to store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "File upload failed")
		return
	}
	h.Log.Info("submission uploaded",
		zap.String("id", string(sub.ID)),
		zap.String("file_url", sub.FileURL),
		zap.Int("size", len(content)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "File uploaded successfully",
		"project": sub,
	})
}

// Submissions answers {"files": [...]}, newest first.
func (h *FileHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.FileService.List(r.Context())
	if err != nil {
		h.Log.Error("failed to list submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch submissions")
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": subs})
}

// Download streams the file named by the {key} URL parameter, a submission
// id or file_url, as an attachment.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	f, err := h.FileService.Download(r.Context(), key)
	if errors.Is(err, service.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, "File not found in database")
		return
	}
	if err != nil {
		h.Log.Error("failed to load file", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Download failed")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}
