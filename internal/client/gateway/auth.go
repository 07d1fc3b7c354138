package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// Document is a loosely typed JSON object whose fields the backend does not
// fix.
type Document map[string]any

// loginForm is the body of POST /auth/login.
type loginForm struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

var loginMessages = map[string]string{
	"Email":    "Please enter your email",
	"Password": "Please enter your password",
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string      `json:"name" validate:"notblank"`
	Email    string      `json:"email" validate:"notblank,email"`
	Password string      `json:"password" validate:"notblank"`
	Role     models.Role `json:"role" validate:"oneof=student teacher examiner"`
}

var registerMessages = map[string]string{
	"Name":        "Please enter your name",
	"Email":       "Please enter your email",
	"Email.email": "Please enter a valid email",
	"Password":    "Please enter a password",
	"Role":        "Please choose a role: student, teacher or examiner",
}

// Login exchanges credentials for a token. The raw response is returned
// because its shape varies between backend versions; the session layer
// normalizes it.
func (c *Client) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	form := loginForm{Email: email, Password: password}
	if err := checkForm(form, loginMessages); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		jsonBody: form,
		public:   true,
		fallback: msgLoginFailed,
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.body) {
		return nil, &APIError{Status: resp.status, Message: msgLoginFailed, Kind: ErrRequestFailed}
	}
	return json.RawMessage(resp.body), nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (Document, error) {
	if err := checkForm(r, registerMessages); err != nil {
		return nil, err
	}

	var out Document
	err := c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/register",
		jsonBody: r,
		public:   true,
		fallback: msgRegisterFailed,
	}, &out)
	return out, err
}

// Logout tells the backend to revoke the current token. Without a token
// there is nothing to revoke and no request is sent.
func (c *Client) Logout(ctx context.Context) error {
	if c.creds == nil || c.creds.Token() == "" {
		return nil
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/logout",
		public: true,
	})
	return err
}
