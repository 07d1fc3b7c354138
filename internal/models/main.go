// Package models defines the data structures shared by the marketplace client
// and the reference backend: user profiles, roles and project submissions.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Role identifies what a user may do in the marketplace.
type Role string

const (
	// RoleStudent browses, searches and asks the assistant for ideas.
	RoleStudent Role = "student"
	// RoleTeacher uploads project submissions.
	RoleTeacher Role = "teacher"
	// RoleExaminer lists and downloads submissions.
	RoleExaminer Role = "examiner"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleStudent, RoleTeacher, RoleExaminer}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// UserProfile is the authenticated user's identity as returned by the backend.
// Empty fields are omitted so that whatever the backend sent round-trips as-is.
type UserProfile struct {
	// ID is the backend identifier of the user.
	ID string `json:"id,omitempty"`
	// Name is the display name.
	Name string `json:"name,omitempty"`
	// Email is the login e-mail.
	Email string `json:"email,omitempty"`
	// Role is one of student, teacher or examiner.
	Role Role `json:"role,omitempty"`
}

// IsZero reports whether the profile carries no data at all.
func (p UserProfile) IsZero() bool {
	return p == UserProfile{}
}

// UnmarshalJSON accepts either a profile object or a bare string, which some
// backend versions send in place of the object (the user's e-mail).
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var email string
		if err := json.Unmarshal(data, &email); err != nil {
			return err
		}
		*p = UserProfile{Email: email}
		return nil
	}

	var raw struct {
		ID       FlexString `json:"id"`
		Name     string     `json:"name"`
		Username string     `json:"username"`
		Email    string     `json:"email"`
		Role     Role       `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = UserProfile{ID: string(raw.ID), Name: raw.Name, Email: raw.Email, Role: raw.Role}
	if p.Name == "" {
		p.Name = raw.Username
	}
	return nil
}

// FlexString decodes a JSON string or number into a string. Backend row IDs
// have been observed as both.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("flex string: %w", err)
		}
		*f = FlexString(n.String())
	}
	return nil
}

// Submission is a student project file record with its metadata.
type Submission struct {
	// ID is the backend row identifier.
	ID FlexString `json:"id"`
	// Title is the project title.
	Title string `json:"project_title"`
	// Abstract is the project summary.
	Abstract string `json:"abstract"`
	// Description is free-form text attached at upload.
	Description string `json:"description,omitempty"`
	// StudentName is the author's name.
	StudentName string `json:"student_name"`
	// StudentID is the author's university identifier.
	StudentID FlexString `json:"student_id"`
	// FileURL is the storage key of the uploaded file.
	FileURL string `json:"file_url"`
	// Filename is the original file name, when known.
	Filename string `json:"filename,omitempty"`
	// FileSize is the stored size in bytes, when known.
	FileSize int64 `json:"file_size,omitempty"`
	// UploadedBy is the identifier of the uploading user.
	UploadedBy FlexString `json:"uploaded_by"`
	// CreatedAt is the upload time.
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON also accepts "title" for the project title, and tolerates
// created_at values that are not RFC 3339.
func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	var raw struct {
		plain
		AltTitle  string          `json:"title"`
		CreatedAt json.RawMessage `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Submission(raw.plain)
	if s.Title == "" {
		s.Title = raw.AltTitle
	}
	s.CreatedAt = parseTime(raw.CreatedAt)
	return nil
}

// Key returns the best key to download the submission's file by.
func (s Submission) Key() string {
	if s.ID != "" {
		return string(s.ID)
	}
	return s.FileURL
}

// parseTime decodes a timestamp in one of the layouts the backend emits,
// returning the zero time when none matches.
func parseTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		var unix int64
		if err := json.Unmarshal(raw, &unix); err == nil {
			return time.Unix(unix, 0).UTC()
		}
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC()
	}
	return time.Time{}
}

// SearchResult is a submission matched by a search query.
type SearchResult struct {
	Submission
	// Score is the similarity in [0, 100].
	Score float64 `json:"similarity_score"`
}

// UnmarshalJSON decodes the embedded submission and the score separately,
// since Submission has its own decoder.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &r.Submission); err != nil {
		return err
	}
	var score struct {
		Score float64 `json:"similarity_score"`
	}
	if err := json.Unmarshal(data, &score); err != nil {
		return err
	}
	r.Score = score.Score
	return nil
}

// Suggestion is a project idea proposed by the assistant.
type Suggestion struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Technologies  []string `json:"technologies,omitempty"`
	EstimatedTime string   `json:"estimated_time,omitempty"`
}

// Website is a site the assistant considers relevant to a query.
type Website struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	// SellsProject is nil when the assistant did not say.
	SellsProject *bool  `json:"sells_project,omitempty"`
	Note         string `json:"note,omitempty"`
}

// User is the backend's stored account.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Name is the display name.
	Name string
	// Email is the unique login.
	Email string
	// Role is the user's role.
	Role Role
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
}

// Profile returns the public part of the account.
func (u User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// StoredFile is an uploaded file as kept by the backend.
type StoredFile struct {
	// Name is the name the file is served under.
	Name string
	// ContentType is the MIME type recorded at upload.
	ContentType string
	// Content is the file body.
	Content []byte
}
