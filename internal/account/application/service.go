package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/wanderlust/api/internal/account/domain"
	listingdomain "github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// AccountRepository はアカウントの永続化ポート。FindByUsername は見つからない場合 listingdomain.ErrNotFound を返す。
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// TokenConfig defines the signing secret and claims checked on verification.
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Session is the result of a successful signup or login.
type Session struct {
	Account   domain.Account
	Token     string
	ExpiresAt time.Time
}

// AccountService describes authentication use-cases.
type AccountService interface {
	Signup(ctx context.Context, cmd SignupCommand) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Verify(token string) (domain.Principal, error)
}

// SignupCommand carries registration input.
type SignupCommand struct {
	Username string
	Email    string
	Password string
}

type accountService struct {
	repo   AccountRepository
	tokens TokenConfig
	now    func() time.Time
}

// NewAccountService creates the authentication service.
func NewAccountService(repo AccountRepository, tokens TokenConfig) AccountService {
	if tokens.TTL <= 0 {
		tokens.TTL = 7 * 24 * time.Hour
	}
	return &accountService{repo: repo, tokens: tokens, now: time.Now}
}

func (s *accountService) Signup(ctx context.Context, cmd SignupCommand) (*Session, error) {
	username := strings.TrimSpace(cmd.Username)
	email := strings.TrimSpace(cmd.Email)

	verr := listingdomain.NewValidationError()
	if username == "" {
		verr.Add("username", "is required")
	} else if utf8.RuneCountInString(username) > 64 {
		verr.Add("username", "must be at most 64 characters")
	}
	if email == "" {
		verr.Add("email", "is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "is not a valid address")
	}
	if len(cmd.Password) < 6 {
		verr.Add("password", "must be at least 6 characters")
	} else if len(cmd.Password) > 72 {
		verr.Add("password", "must be at most 72 bytes")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return s.issue(*account)
}

func (s *accountService) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, listingdomain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(*account)
}

type authClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
}

func (s *accountService) issue(account domain.Account) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.tokens.TTL)
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.tokens.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		PreferredUsername: account.Username,
	}
	if s.tokens.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.tokens.Audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokens.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

// Verify は署名方式・Issuer・Audience・有効期限を検証し、認証主体を返す。
func (s *accountService) Verify(tokenString string) (domain.Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(30 * time.Second),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.tokens.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.tokens.Issuer))
	}
	if s.tokens.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.tokens.Audience))
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.tokens.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return domain.Principal{ID: claims.Subject, Username: claims.PreferredUsername}, nil
}
