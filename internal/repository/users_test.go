package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

type fixture struct {
	mock     sqlmock.Sqlmock
	users    *PostgresUserRepository
	sessions *PostgresSessionRepository
	subs     *PostgresSubmissionRepository
}

// setupMock opens a sqlmock database and checks its expectations when the
// test ends.
func setupMock(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return &fixture{
		mock:     mock,
		users:    NewPostgresUserRepository(db),
		sessions: NewPostgresSessionRepository(db),
		subs:     NewPostgresSubmissionRepository(db),
	}
}

var userColumns = []string{"id", "name", "email", "role", "password_hash"}

func TestCreateUser(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	u := models.User{ID: "u1", Name: "Ann", Email: "ann@uni.edu", Role: models.RoleTeacher, PasswordHash: []byte("h")}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u1", "Ann", "ann@uni.edu", "teacher", []byte("h"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := f.users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	err := f.users.CreateUser(context.Background(), models.User{ID: "u1", Email: "ann@uni.edu"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateUser_Error(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("insert failed"))

	err := f.users.CreateUser(context.Background(), models.User{ID: "u1"})
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Errorf("expected wrapped insert error, got %v", err)
	}
}

func TestUserByEmail(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ann@uni.edu").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "Ann", "ann@uni.edu", "examiner", []byte("h")))

	u, err := f.users.UserByEmail(context.Background(), "ann@uni.edu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.Role != models.RoleExaminer || string(u.PasswordHash) != "h" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestUserByEmail_NotFound(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("nobody@uni.edu").
		WillReturnRows(sqlmock.NewRows(userColumns))

	if _, err := f.users.UserByEmail(context.Background(), "nobody@uni.edu"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserByID_Error(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("u1").
		WillReturnError(errors.New("query failed"))

	_, err := f.users.UserByID(context.Background(), "u1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected query error, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	exp := now.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions (token, user_id, expires_at)`)).
		WithArgs("tok", "u1", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.token = $1 AND s.expires_at > $2`)).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "Ann", "ann@uni.edu", "student", []byte("h")))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.token = $1 AND s.expires_at > $2`)).
		WithArgs("old", now).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE token = $1`)).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := f.sessions.CreateSession(ctx, "tok", "u1", exp); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	u, err := f.sessions.UserByToken(ctx, "tok", now)
	if err != nil {
		t.Fatalf("UserByToken: %v", err)
	}
	if u.Name != "Ann" {
		t.Errorf("expected Ann, got %q", u.Name)
	}
	if _, err := f.sessions.UserByToken(ctx, "old", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired token, got %v", err)
	}
	if err := f.sessions.DeleteSession(ctx, "tok"); err != nil {
		t.Errorf("DeleteSession: %v", err)
	}
}

func TestSessions_Errors(t *testing.T) {
	f := setupMock(t)
	mock := f.mock

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions`)).WillReturnError(errors.New("fail"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions`)).WillReturnError(errors.New("fail"))

	if err := f.sessions.CreateSession(context.Background(), "t", "u", time.Now()); err == nil {
		t.Error("expected CreateSession error")
	}
	if err := f.sessions.DeleteSession(context.Background(), "t"); err == nil {
		t.Error("expected DeleteSession error")
	}
}
