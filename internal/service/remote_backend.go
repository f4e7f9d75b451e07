package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/validation"
)

const (
	DefaultRemoteTimeout = 8 * time.Second

	registerPath = "/auth/register"
	checkPath    = "/auth/check"
	mePath       = "/auth/me"

	maxResponseBytes = 1 << 20
)

// RemoteOptions configure the HTTP relay to the identity store.
type RemoteOptions struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
	Logger  logrus.FieldLogger
}

type remoteBackend struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  logrus.FieldLogger
}

// NewRemoteBackend relays identity operations to an external identity store.
// It keeps no passwords or sessions of its own.
func NewRemoteBackend(opts RemoteOptions) IdentityBackend {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRemoteTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &remoteBackend{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		client:  opts.Client,
		logger:  opts.Logger,
	}
}

type remoteRegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	Age             *int   `json:"age,omitempty"`
	Status          string `json:"status,omitempty"`
}

type remoteCheckRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *remoteBackend) CreateAccount(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	body := remoteRegisterRequest{
		Username:        reg.Username,
		Password:        reg.Password,
		PasswordConfirm: reg.Password,
		Email:           reg.Email,
		FirstName:       reg.FirstName,
		LastName:        reg.LastName,
		PhoneNumber:     reg.PhoneNumber,
		Age:             reg.Age,
		Status:          reg.Status,
	}

	status, raw, err := s.do(ctx, http.MethodPost, registerPath, body, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, rejected(status, raw)
	}
	return s.identity(status, raw, registerPath)
}

func (s *remoteBackend) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	status, raw, err := s.do(ctx, http.MethodPost, checkPath, remoteCheckRequest{Username: username, Password: password}, "")
	if err != nil {
		return nil, err
	}
	if status >= 400 && status < 500 {
		return nil, ErrInvalidCredentials
	}
	if !isSuccess(status) {
		return nil, rejected(status, raw)
	}
	return s.identity(status, raw, checkPath)
}

// FetchProfile forwards the caller's access token and re-validates the answer
// against the fixed profile schema.
func (s *remoteBackend) FetchProfile(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	status, raw, err := s.do(ctx, http.MethodGet, mePath, nil, principal.AccessToken)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, rejected(status, raw)
	}
	return s.identity(status, raw, mePath)
}

func (s *remoteBackend) identity(status int, raw []byte, path string) (*domain.User, error) {
	user, err := validation.Profile(raw)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"path":   path,
			"status": status,
		}).Warnf("identity service returned invalid payload: %v", err)
		return nil, &BackendRejectedError{
			Status: status,
			Detail: map[string]any{"detail": "identity service returned an invalid payload"},
		}
	}
	return user, nil
}

// do performs one bounded call. Transport failures, including timeouts, are
// reported as ErrBackendUnavailable.
func (s *remoteBackend) do(ctx context.Context, method, path string, payload any, bearer string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.unavailable(path, start, err)
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		s.unavailable(path, start, err)
		return 0, nil, fmt.Errorf("%w: read %s response: %v", ErrBackendUnavailable, path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("identity service call")
	return resp.StatusCode, raw, nil
}

func (s *remoteBackend) unavailable(path string, start time.Time, err error) {
	entry := s.logger.WithFields(logrus.Fields{
		"path":     path,
		"duration": time.Since(start).String(),
	})
	if errors.Is(err, context.DeadlineExceeded) {
		entry.Warn("identity service call timed out")
		return
	}
	entry.Warnf("identity service call failed: %v", err)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// rejected keeps the upstream error payload verbatim when it is valid JSON.
// Empty or unparseable bodies get a generic detail.
func rejected(status int, raw []byte) *BackendRejectedError {
	var detail any
	if err := json.Unmarshal(raw, &detail); err != nil || isEmptyJSON(detail) {
		detail = map[string]any{"detail": "identity service rejected the request"}
	}
	return &BackendRejectedError{Status: status, Detail: detail}
}

func isEmptyJSON(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}
