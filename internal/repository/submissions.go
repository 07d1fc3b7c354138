package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// PostgresSubmissionRepository stores project submissions together with their
// file content in the submissions table.
type PostgresSubmissionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSubmissionRepository creates a PostgresSubmissionRepository over db.
func NewPostgresSubmissionRepository(db *sql.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{DB: db}
}

const submissionColumns = `id, project_title, abstract, description, student_name, student_id,
	file_url, filename, file_size, uploaded_by, created_at`

// CreateSubmission inserts sub with its file. ID and CreatedAt are filled in
// from the stored row.
func (r *PostgresSubmissionRepository) CreateSubmission(
	ctx context.Context,
	sub *models.Submission,
	contentType string,
	content []byte,
) error {
	var uploadedBy sql.NullString
	if sub.UploadedBy != "" {
		uploadedBy = sql.NullString{String: string(sub.UploadedBy), Valid: true}
	}

	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO submissions (project_title, abstract, description, student_name, student_id,
			file_url, filename, content_type, file_size, content, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, sub.Title, sub.Abstract, sub.Description, sub.StudentName, string(sub.StudentID),
		sub.FileURL, sub.Filename, contentType, int64(len(content)), content, uploadedBy, sub.CreatedAt,
	).Scan(&id)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("CreateSubmission: %w", err)
	}
	sub.ID = models.FlexString(strconv.FormatInt(id, 10))
	sub.FileSize = int64(len(content))
	return nil
}

// ListSubmissions returns every submission, newest first, without content.
func (r *PostgresSubmissionRepository) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListSubmissions: %w", err)
	}
	defer rows.Close()

	subs := []models.Submission{}
	for rows.Next() {
		var (
			sub        models.Submission
			id         int64
			studentID  string
			uploadedBy sql.NullString
			createdAt  time.Time
		)
		if err := rows.Scan(&id, &sub.Title, &sub.Abstract, &sub.Description, &sub.StudentName, &studentID,
			&sub.FileURL, &sub.Filename, &sub.FileSize, &uploadedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		sub.ID = models.FlexString(strconv.FormatInt(id, 10))
		sub.StudentID = models.FlexString(studentID)
		sub.UploadedBy = models.FlexString(uploadedBy.String)
		sub.CreatedAt = createdAt.UTC()
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSubmissions: %w", err)
	}
	return subs, nil
}

// FileByKey returns the stored file whose file_url or numeric id equals key.
func (r *PostgresSubmissionRepository) FileByKey(ctx context.Context, key string) (models.StoredFile, error) {
	var f models.StoredFile
	err := r.DB.QueryRowContext(ctx, `
		SELECT file_url, content_type, content FROM submissions
		WHERE file_url = $1 OR id::text = $1
		ORDER BY (file_url = $1) DESC
		LIMIT 1
	`, key).Scan(&f.Name, &f.ContentType, &f.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredFile{}, ErrNotFound
	}
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("FileByKey: %w", err)
	}
	return f, nil
}
