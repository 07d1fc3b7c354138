package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/ProjectMarket/internal/models"
	"github.com/atinyakov/ProjectMarket/internal/repository"
)

// ErrFileNotFound is returned by Download when no submission matches the key.
var ErrFileNotFound = errors.New("file not found in database")

// SubmissionRepository defines the submission persistence needed by
// FileService and SearchService.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *models.Submission, contentType string, content []byte) error
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
	FileByKey(ctx context.Context, key string) (models.StoredFile, error)
}

// Upload is a project file with the metadata entered by the teacher.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte

	Title       string
	Description string
	StudentName string
	StudentID   string
	Abstract    string

	// UploadedBy is the id of the uploading user.
	UploadedBy string
}

// FileService stores and serves project submissions.
type FileService struct {
	repo SubmissionRepository
	now  func() time.Time
}

// NewFileService constructs a FileService backed by repo.
func NewFileService(repo SubmissionRepository) *FileService {
	return &FileService{repo: repo, now: time.Now}
}

// Upload stores u under a fresh unique key that keeps the original extension.
func (s *FileService) Upload(ctx context.Context, u Upload) (models.Submission, error) {
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sub := models.Submission{
		Title:       strings.TrimSpace(u.Title),
		Abstract:    strings.TrimSpace(u.Abstract),
		Description: strings.TrimSpace(u.Description),
		StudentName: strings.TrimSpace(u.StudentName),
		StudentID:   models.FlexString(strings.TrimSpace(u.StudentID)),
		FileURL:     uuid.NewString() + strings.ToLower(filepath.Ext(u.Filename)),
		Filename:    filepath.Base(u.Filename),
		UploadedBy:  models.FlexString(u.UploadedBy),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateSubmission(ctx, &sub, contentType, u.Content); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// List returns every submission, newest first.
func (s *FileService) List(ctx context.Context) ([]models.Submission, error) {
	return s.repo.ListSubmissions(ctx)
}

// Download returns the file stored under key, which is a submission id or
// its file_url.
func (s *FileService) Download(ctx context.Context, key string) (models.StoredFile, error) {
	f, err := s.repo.FileByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return models.StoredFile{}, ErrFileNotFound
	}
	return f, err
}
