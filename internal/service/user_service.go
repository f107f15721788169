package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"valo-coach/internal/domain"
	"valo-coach/internal/email"
	"valo-coach/internal/repository"
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	redirectURL string
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrConfirmInvalid     = errors.New("confirmation token invalid")
	ErrConfirmExpired     = errors.New("confirmation token expired")
	ErrAlreadyConfirmed   = errors.New("email already confirmed")
)

const (
	minPasswordLen = 6
	confirmTTL     = 24 * time.Hour
)

func NewUserService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, redirectURL string) *UserService {
	return &UserService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		redirectURL: redirectURL,
	}
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

// SignUp crea la cuenta y envía el correo de confirmación best-effort.
func (s *UserService) SignUp(ctx context.Context, input SignUpInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	password := strings.TrimSpace(input.Password)
	if len(password) < minPasswordLen {
		return domain.User{}, ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	token, tokenHash, expiresAt, err := generateConfirmToken()
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:               uuid.NewString(),
		Email:            emailAddr,
		DisplayName:      strings.TrimSpace(input.DisplayName),
		PasswordHash:     string(hashBytes),
		ConfirmTokenHash: tokenHash,
		ConfirmExpiresAt: &expiresAt,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	// El correo de confirmación no bloquea el alta.
	if s.emailSender != nil {
		if err := s.emailSender.SendSignupConfirmation(ctx, emailAddr, s.confirmURL(emailAddr, token)); err != nil {
			s.logger.Warn("send signup confirmation failed", zap.Error(err), zap.String("email", emailAddr))
		}
	}

	return user, nil
}

// Authenticate valida credenciales; cualquier discrepancia responde igual.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// ConfirmEmail valida el token enviado por correo y marca el email confirmado.
func (s *UserService) ConfirmEmail(ctx context.Context, emailAddr, token string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	token = strings.TrimSpace(token)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if token == "" {
		return domain.User{}, ErrConfirmInvalid
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if user.ConfirmTokenHash == "" || user.ConfirmExpiresAt == nil {
		return domain.User{}, ErrConfirmInvalid
	}
	if time.Now().UTC().After(*user.ConfirmExpiresAt) {
		return domain.User{}, ErrConfirmExpired
	}
	if !verifyConfirmToken(token, user.ConfirmTokenHash) {
		return domain.User{}, ErrConfirmInvalid
	}

	confirmedAt := time.Now().UTC()
	if err := s.users.ConfirmEmail(ctx, user.ID, confirmedAt); err != nil {
		return domain.User{}, err
	}

	user.EmailConfirmedAt = &confirmedAt
	user.ConfirmTokenHash = ""
	user.ConfirmExpiresAt = nil
	return user, nil
}

// ResendConfirmation emite un token nuevo para una cuenta sin confirmar y
// reenvía el correo. El token anterior queda invalidado.
func (s *UserService) ResendConfirmation(ctx context.Context, emailAddr string) error {
	if s.users == nil {
		return errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.EmailConfirmedAt != nil {
		return ErrAlreadyConfirmed
	}

	token, tokenHash, expiresAt, err := generateConfirmToken()
	if err != nil {
		return err
	}
	if err := s.users.UpdateConfirmToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendSignupConfirmation(ctx, emailAddr, s.confirmURL(emailAddr, token)); err != nil {
			s.logger.Warn("resend confirmation failed", zap.Error(err), zap.String("email", emailAddr))
		}
	}
	return nil
}

// RedirectURL es el destino configurado post-confirmación; puede ser vacío.
func (s *UserService) RedirectURL() string {
	return s.redirectURL
}

func (s *UserService) confirmURL(emailAddr, token string) string {
	base := s.redirectURL
	if base == "" {
		base = "/"
	}
	q := url.Values{}
	q.Set("email", emailAddr)
	q.Set("token", token)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func generateConfirmToken() (string, string, time.Time, error) {
	token := uuid.NewString()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", time.Time{}, err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + token))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])

	expiresAt := time.Now().UTC().Add(confirmTTL)
	return token, saltStr + ":" + hash, expiresAt, nil
}

func verifyConfirmToken(token, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	saltStr := parts[0]
	expectedHash := parts[1]
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + token))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(expectedHash)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
