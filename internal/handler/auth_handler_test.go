package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/service"
)

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByMatricula(_ context.Context, matricula string) (*models.User, error) {
	if s.user == nil || s.user.Matricula != matricula {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdatePassword(_ context.Context, _, _ string, _ time.Time) error { return nil }

func (s *stubUserRepo) UpdateProfile(_ context.Context, _, _, _ string) error { return nil }

func (s *stubUserRepo) CreateAuditLog(_ context.Context, _ *models.AuditLog) error { return nil }

type stubSessionRepo struct {
	active map[string]bool
}

func (s *stubSessionRepo) Save(_ context.Context, session *models.Session, _ time.Duration) error {
	if s.active == nil {
		s.active = map[string]bool{}
	}
	s.active[session.Matricula] = true
	return nil
}

func (s *stubSessionRepo) Get(_ context.Context, matricula string) (*models.Session, error) {
	now := time.Now().UTC()
	return &models.Session{Matricula: matricula, Timestamp: now, Expires: now.Add(time.Hour)}, nil
}

func (s *stubSessionRepo) Delete(_ context.Context, _ string) error { return nil }

func (s *stubSessionRepo) Touch(_ context.Context, _ string, _ time.Duration) error { return nil }

func (s *stubSessionRepo) IsActive(_ context.Context, _ string) (bool, error) { return true, nil }

func (s *stubSessionRepo) RecordFailedAttempt(_ context.Context, _ string, _ time.Duration) (int, error) {
	return 1, nil
}

func (s *stubSessionRepo) FailedAttempts(_ context.Context, _ string) (int, error) { return 0, nil }

func (s *stubSessionRepo) LockoutRemaining(_ context.Context, _ string) (time.Duration, error) {
	return 0, nil
}

func (s *stubSessionRepo) ClearFailedAttempts(_ context.Context, _ string) error { return nil }

func newTestAuthHandler(user *models.User) *AuthHandler {
	svc := service.NewAuthService(&stubUserRepo{user: user}, &stubSessionRepo{}, nil, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		SessionTTL:        time.Hour,
		InactivityTimeout: 30 * time.Minute,
	})
	return NewAuthHandler(svc)
}

func performJSON(t *testing.T, handlerFunc gin.HandlerFunc, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handlerFunc(c)
	return recorder
}

func TestAuthHandlerLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("est123"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := newTestAuthHandler(&models.User{
		Matricula:    "est001",
		PasswordHash: string(hash),
		TipoUsuario:  models.RoleEstudiante,
		Nombre:       "María Elena",
		Activo:       true,
	})

	recorder := performJSON(t, handler.Login, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Matricula:   "est001",
		Password:    "est123",
		TipoUsuario: models.RoleEstudiante,
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "est001", envelope.Data.User.Matricula)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("est123"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := newTestAuthHandler(&models.User{
		Matricula:    "est001",
		PasswordHash: string(hash),
		TipoUsuario:  models.RoleEstudiante,
		Activo:       true,
	})

	recorder := performJSON(t, handler.Login, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Matricula:   "est001",
		Password:    "wrong",
		TipoUsuario: models.RoleEstudiante,
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthHandlerLoginInvalidPayload(t *testing.T) {
	handler := newTestAuthHandler(nil)

	recorder := performJSON(t, handler.Login, http.MethodPost, "/api/auth/login", gin.H{
		"matricula": "est001",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler := newTestAuthHandler(nil)

	recorder := performJSON(t, handler.Me, http.MethodGet, "/api/auth/me", nil)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthHandlerPasswordStrength(t *testing.T) {
	handler := newTestAuthHandler(nil)

	recorder := performJSON(t, handler.PasswordStrength, http.MethodPost, "/api/auth/password-strength", models.PasswordStrengthRequest{
		Password: "Abcdef12!",
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	var envelope struct {
		Data models.PasswordStrength `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "strong", envelope.Data.Level)
}
