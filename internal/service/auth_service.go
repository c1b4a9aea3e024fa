package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/repository"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type authUserRepository interface {
	FindByMatricula(ctx context.Context, matricula string) (*models.User, error)
	UpdatePassword(ctx context.Context, matricula, passwordHash string, updatedAt time.Time) error
	UpdateProfile(ctx context.Context, matricula, nombre, email string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sessionRepository interface {
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, matricula string) (*models.Session, error)
	Delete(ctx context.Context, matricula string) error
	Touch(ctx context.Context, matricula string, window time.Duration) error
	IsActive(ctx context.Context, matricula string) (bool, error)
	RecordFailedAttempt(ctx context.Context, matricula string, window time.Duration) (int, error)
	FailedAttempts(ctx context.Context, matricula string) (int, error)
	LockoutRemaining(ctx context.Context, matricula string) (time.Duration, error)
	ClearFailedAttempts(ctx context.Context, matricula string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	SessionTTL        time.Duration
	InactivityTimeout time.Duration
	MaxLoginAttempts  int
	LockoutWindow     time.Duration
}

// AuthService provides authentication and session use cases.
type AuthService struct {
	repo      authUserRepository
	sessions  sessionRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions sessionRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxLoginAttempts <= 0 {
		config.MaxLoginAttempts = 5
	}
	if config.LockoutWindow <= 0 {
		config.LockoutWindow = 15 * time.Minute
	}
	return &AuthService{repo: repo, sessions: sessions, validator: validate, logger: logger, config: config}
}

// Login authenticates a user against matricula, password and declared role.
// The lockout check runs first so even valid credentials are rejected while
// the account is locked.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if err := s.checkLockout(ctx, req.Matricula); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByMatricula(ctx, req.Matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.failAttempt(ctx, req.Matricula)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Activo {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "la cuenta está desactivada")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil || user.TipoUsuario != req.TipoUsuario {
		return nil, s.failAttempt(ctx, req.Matricula)
	}

	if err := s.sessions.ClearFailedAttempts(ctx, user.Matricula); err != nil {
		s.logger.Warn("failed to clear login attempts", zap.Error(err))
	}

	now := time.Now().UTC()
	session := &models.Session{
		Matricula:   user.Matricula,
		TipoUsuario: user.TipoUsuario,
		Timestamp:   now,
		Expires:     now.Add(s.config.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session, s.config.SessionTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	if err := s.sessions.Touch(ctx, user.Matricula, s.config.InactivityTimeout); err != nil {
		s.logger.Warn("failed to start activity window", zap.Error(err))
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.Matricula,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.Matricula,
		Detail:     `{"status":"success"}`,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    now,
		User: models.UserInfo{
			Matricula:   user.Matricula,
			Nombre:      user.Nombre,
			Email:       user.Email,
			TipoUsuario: user.TipoUsuario,
		},
	}, nil
}

// Logout drops the persisted session unconditionally.
func (s *AuthService) Logout(ctx context.Context, matricula, ip, userAgent string) error {
	if err := s.sessions.Delete(ctx, matricula); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop session")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &matricula,
		Action:     models.AuditActionLogout,
		Resource:   "auth",
		ResourceID: &matricula,
		Detail:     `{"status":"logout"}`,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record logout audit log", zap.Error(err))
	}

	return nil
}

// ValidateSession checks the persisted session record and the sliding
// inactivity window, refreshing the window on success.
func (s *AuthService) ValidateSession(ctx context.Context, matricula string) error {
	session, err := s.sessions.Get(ctx, matricula)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return appErrors.Clone(appErrors.ErrSessionExpired, "la sesión ha expirado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if time.Now().UTC().After(session.Expires) {
		if err := s.sessions.Delete(ctx, matricula); err != nil {
			s.logger.Warn("failed to drop expired session", zap.Error(err))
		}
		return appErrors.Clone(appErrors.ErrSessionExpired, "la sesión ha expirado")
	}

	active, err := s.sessions.IsActive(ctx, matricula)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session activity")
	}
	if !active {
		if err := s.sessions.Delete(ctx, matricula); err != nil {
			s.logger.Warn("failed to drop idle session", zap.Error(err))
		}
		return appErrors.Clone(appErrors.ErrSessionExpired, "sesión cerrada por inactividad")
	}

	if err := s.sessions.Touch(ctx, matricula, s.config.InactivityTimeout); err != nil {
		s.logger.Warn("failed to refresh activity window", zap.Error(err))
	}
	return nil
}

// ChangePassword changes the password for the given matricula.
func (s *AuthService) ChangePassword(ctx context.Context, matricula string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByMatricula(ctx, matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "la contraseña actual es incorrecta")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, matricula, string(newHash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &matricula,
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &matricula,
		Detail:     `{"status":"changed"}`,
	}); err != nil {
		s.logger.Warn("failed to record password change audit log", zap.Error(err))
	}

	return nil
}

// UpdateProfile updates the self-service profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, matricula string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	if _, err := s.repo.FindByMatricula(ctx, matricula); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.UpdateProfile(ctx, matricula, req.Nombre, req.Email); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &matricula,
		Action:     models.AuditActionProfileUpdate,
		Resource:   "auth",
		ResourceID: &matricula,
		Detail:     `{"status":"updated"}`,
	}); err != nil {
		s.logger.Warn("failed to record profile update audit log", zap.Error(err))
	}

	updated, err := s.repo.FindByMatricula(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload user")
	}
	return updated, nil
}

// PasswordStrength scores a candidate password. The result is advisory and
// never enforced at login.
func (s *AuthService) PasswordStrength(password string) models.PasswordStrength {
	checks := []struct {
		ok   bool
		name string
	}{
		{len(password) >= 8, "al menos 8 caracteres"},
		{containsClass(password, 'a', 'z'), "una letra minúscula"},
		{containsClass(password, 'A', 'Z'), "una letra mayúscula"},
		{containsClass(password, '0', '9'), "un número"},
		{containsSpecial(password), "un carácter especial"},
	}

	score := 0
	var missing []string
	for _, check := range checks {
		if check.ok {
			score++
		} else {
			missing = append(missing, check.name)
		}
	}

	level := "weak"
	switch {
	case score >= 5:
		level = "strong"
	case score >= 3:
		level = "medium"
	}

	return models.PasswordStrength{Score: score, Level: level, Missing: missing}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) checkLockout(ctx context.Context, matricula string) error {
	attempts, err := s.sessions.FailedAttempts(ctx, matricula)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check login attempts")
	}
	if attempts < s.config.MaxLoginAttempts {
		return nil
	}

	remaining, err := s.sessions.LockoutRemaining(ctx, matricula)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lockout window")
	}
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return appErrors.Clone(appErrors.ErrAccountLocked, fmt.Sprintf("Cuenta bloqueada. Intenta de nuevo en %d minutos", minutes))
}

// failAttempt records the failure and returns the credentials error, or the
// lockout error when this failure crosses the threshold.
func (s *AuthService) failAttempt(ctx context.Context, matricula string) error {
	count, err := s.sessions.RecordFailedAttempt(ctx, matricula, s.config.LockoutWindow)
	if err != nil {
		s.logger.Warn("failed to record login attempt", zap.Error(err))
	}
	if err == nil && count >= s.config.MaxLoginAttempts {
		return s.checkLockout(ctx, matricula)
	}
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "matrícula o contraseña incorrecta")
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		Matricula:   user.Matricula,
		TipoUsuario: user.TipoUsuario,
		Nombre:      user.Nombre,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.Matricula,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func containsClass(s string, lo, hi rune) bool {
	for _, r := range s {
		if r >= lo && r <= hi {
			return true
		}
	}
	return false
}

func containsSpecial(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return true
		}
	}
	return false
}
