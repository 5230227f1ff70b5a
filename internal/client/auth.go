package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

// Login exchanges username and password for a token and stores it as the
// current session, replacing any previous one.
func (c *Client) Login(ctx context.Context, username string, password string) (*models.Session, error) {

	if len(strings.TrimSpace(username)) == 0 || len(password) == 0 {
		return nil, &APIError{
			Kind:    KindRejected,
			Method:  http.MethodPost,
			Path:    LoginEndpoint,
			Message: "username and password are required",
		}
	}

	// The login call is the only one sent without credentials
	req := c.newRequest(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		})

	res, err := c.execute(req, http.MethodPost, LoginEndpoint)
	if err != nil {
		return nil, err
	}

	var loginResponse models.LoginResponse
	if err := decodeResponse(res, http.MethodPost, LoginEndpoint, &loginResponse); err != nil {
		return nil, err
	}

	if len(loginResponse.Token) == 0 {
		return nil, &APIError{
			Kind:    KindRejected,
			Status:  res.StatusCode(),
			Method:  http.MethodPost,
			Path:    LoginEndpoint,
			Message: "login response did not contain a token",
		}
	}

	session := models.Session{
		Token:    loginResponse.Token,
		IssuedAt: time.Now().UTC(),
		Expiry:   loginResponse.Expiry,
		Endpoint: c.baseURL,
	}

	if c.sessions != nil {
		if err := c.sessions.Save(session); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": c.baseURL,
		"username": username,
	}).Debugln("Logged in")

	return &session, nil
}

// Logout invalidates the token on the service and clears the local session.
// A token the service no longer accepts is cleared locally all the same.
func (c *Client) Logout(ctx context.Context) error {

	err := c.Get(ctx, LogoutEndpoint, nil)

	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !tokenRefused(apiErr) {
			return err
		}
		logrus.WithError(err).Debugln("Token already rejected by the service, clearing local session")
	}

	if c.sessions == nil {
		return nil
	}

	return c.sessions.Clear()
}

// tokenRefused reports whether the service answered with 401 or 403. A
// missing local session (status 0) is not a refusal.
func tokenRefused(err *APIError) bool {
	return err.Status == http.StatusUnauthorized || err.Status == http.StatusForbidden
}
