package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/auth"
	"reviewhub/internal/mailer"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUsernameTooShort = errors.New("username must be longer than 2 characters")
	ErrNameInUse        = errors.New("username already in use")
	ErrEmailInUse       = errors.New("email already in use")
	ErrInvalidCode      = errors.New("invalid confirmation code")
	ErrInvalidToken     = errors.New("invalid token")
)

// Usernames must be strictly longer than this.
const minUsernameLen = 2

// How long a detached mail send may take before giving up.
const mailSendTimeout = 30 * time.Second

// Claims carried in every access token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// Signup validates the pair, creates or reuses the user record and
	// dispatches a confirmation code out-of-band.
	Signup(ctx context.Context, username, email string) (*models.User, error)
	// ExchangeCode swaps a valid confirmation code for a bearer token and
	// retires the code's issuance epoch.
	ExchangeCode(ctx context.Context, username, code string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	userRepo  repository.UserRepository
	codes     *auth.Generator
	mail      mailer.Client
	jwtSecret string
	tokenTTL  time.Duration
	logger    *slog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	codes *auth.Generator,
	mail mailer.Client,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		codes:     codes,
		mail:      mail,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *authService) Signup(ctx context.Context, username, email string) (*models.User, error) {
	if len([]rune(username)) <= minUsernameLen {
		return nil, ErrUsernameTooShort
	}

	user, err := s.getOrCreate(ctx, username, email)
	if err != nil {
		return nil, err
	}

	code := s.codes.Issue(user)

	// Persist-then-notify: the user row is already committed, so delivery
	// failure is logged and never rolls the signup back.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := s.mail.SendConfirmationCode(sendCtx, user.Email, user.Username, code); err != nil {
			s.logger.Warn("confirmation code delivery failed",
				"username", user.Username,
				"error", err,
			)
		}
	}()

	return user, nil
}

// getOrCreate is idempotent for an exact (username, email) match; a collision
// on only one of the two fields is a validation failure.
func (s *authService) getOrCreate(ctx context.Context, username, email string) (*models.User, error) {
	user, err := s.userRepo.FindByUsernameAndEmail(ctx, username, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrNameInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user = &models.User{Username: username, Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race against a concurrent signup. If the winner wrote
			// the exact same pair this is still idempotent.
			if existing, findErr := s.userRepo.FindByUsernameAndEmail(ctx, username, email); findErr == nil {
				return existing, nil
			}
			return nil, ErrNameInUse
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) ExchangeCode(ctx context.Context, username, code string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		// Unknown user stays distinguishable from a bad code.
		return "", err
	}

	if !s.codes.Verify(user, code) {
		return "", ErrInvalidCode
	}

	// Retire the issuance epoch so the code cannot be replayed.
	if err := s.userRepo.BumpCodeEpoch(ctx, user.ID); err != nil {
		return "", err
	}

	return s.mintToken(user)
}

func (s *authService) mintToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
