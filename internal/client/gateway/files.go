package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// UploadRequest is a teacher's project submission. Field order is the order
// in which missing fields are reported.
type UploadRequest struct {
	// FileName is the name the file is uploaded under.
	FileName string `validate:"notblank"`
	// File is the content. It is read once.
	File        io.Reader
	Title       string `validate:"notblank"`
	Description string
	StudentName string `validate:"notblank"`
	StudentID   string `validate:"notblank"`
	Abstract    string `validate:"notblank"`
}

var uploadMessages = map[string]string{
	"FileName":    "Please select a file",
	"Title":       "Please enter a project title",
	"StudentName": "Please enter student name",
	"StudentID":   "Please enter student ID",
	"Abstract":    "Please enter project abstract",
}

// Upload sends a submission as multipart/form-data. Nothing is sent when a
// required field is blank or the user is not logged in.
func (c *Client) Upload(ctx context.Context, r UploadRequest) (Document, error) {
	if r.File == nil {
		return nil, &ValidationError{Field: "File", Message: uploadMessages["FileName"]}
	}
	if err := checkForm(r, uploadMessages); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(r.FileName))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r.File); err != nil {
		return nil, &APIError{Message: msgUploadFailed, Kind: ErrRequestFailed, Cause: fmt.Errorf("read upload file: %w", err)}
	}
	for _, f := range []struct{ name, value string }{
		{"title", r.Title},
		{"description", r.Description},
		{"student_name", r.StudentName},
		{"student_id", r.StudentID},
		{"abstract", r.Abstract},
	} {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out Document
	err = c.doJSON(ctx, request{
		method:         http.MethodPost,
		path:           "/files/upload",
		rawBody:        &buf,
		contentType:    mw.FormDataContentType(),
		requireAuth:    true,
		fallback:       msgUploadFailed,
		statusMessages: map[int]string{http.StatusUnauthorized: msgSessionExpired},
	}, &out)
	return out, err
}

// Submissions lists every uploaded submission.
func (c *Client) Submissions(ctx context.Context) ([]models.Submission, error) {
	var out struct {
		Files []models.Submission `json:"files"`
	}
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/files/submissions"}, &out); err != nil {
		return nil, err
	}
	if out.Files == nil {
		out.Files = []models.Submission{}
	}
	return out.Files, nil
}

// File is a downloaded submission file.
type File struct {
	// Name comes from Content-Disposition, falling back to the key.
	Name        string
	ContentType string
	Data        []byte
}

// Download fetches a file by its identifier or stored file reference.
func (c *Client) Download(ctx context.Context, key string) (*File, error) {
	if key == "" {
		return nil, &ValidationError{Field: "key", Message: "Nothing to download"}
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodGet,
		path:        "/files/download/" + url.PathEscape(key),
		requireAuth: true,
		fallback:    msgDownloadFailed,
		statusMessages: map[int]string{
			http.StatusNotFound:     msgFileNotFound,
			http.StatusUnauthorized: msgReLogin,
		},
		limit: MaxDownloadSize,
	})
	if err != nil {
		return nil, err
	}

	f := &File{Name: key, ContentType: resp.header.Get("Content-Type"), Data: resp.body}
	if _, params, err := mime.ParseMediaType(resp.header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		f.Name = path.Base(params["filename"])
	}
	return f, nil
}

// DownloadWithFallback tries the identifier first and, if that fails, the
// stored file reference. It makes at most two attempts. Authentication
// failures are not retried since the second attempt would fail the same way.
func (c *Client) DownloadWithFallback(ctx context.Context, id, fileURL string) (*File, error) {
	if id == "" {
		return c.Download(ctx, fileURL)
	}

	f, errByID := c.Download(ctx, id)
	if errByID == nil {
		return f, nil
	}
	if fileURL == "" || fileURL == id || IsUnauthorized(errByID) {
		return nil, errByID
	}

	c.log.Info("download by id failed, retrying by file_url")
	f, errByURL := c.Download(ctx, fileURL)
	if errByURL == nil {
		return f, nil
	}
	var verr *ValidationError
	if errors.As(errByURL, &verr) {
		return nil, errByID
	}
	return nil, &DownloadError{ByID: errByID, ByFileURL: errByURL}
}
