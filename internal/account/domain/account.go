package domain

import (
	"errors"
	"time"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid access token")
)

// Account holds credentials and identity for a user.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Principal は検証済みトークンから取り出した認証主体。
type Principal struct {
	ID       string
	Username string
}
