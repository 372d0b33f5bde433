package common

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	flashCookieName = "wanderlust_flash"
	flashTTL        = 5 * time.Minute
)

// Flash holds one-shot messages shown after a redirect.
type Flash struct {
	Success []string `json:"success,omitempty"`
	Error   []string `json:"error,omitempty"`
}

// IsEmpty reports whether there is nothing to show.
func (f Flash) IsEmpty() bool {
	return len(f.Success) == 0 && len(f.Error) == 0
}

type flashClaims struct {
	jwt.RegisteredClaims
	Flash
}

// FlashStore keeps flash messages in a signed, short-lived cookie.
// 署名はセッション用と同じ HS256 シークレットを使い、改ざんされた Cookie は無視する。
type FlashStore struct {
	secret []byte
	secure bool
}

func NewFlashStore(secret []byte, secure bool) *FlashStore {
	return &FlashStore{secret: secret, secure: secure}
}

// Success queues a success message for the next request.
func (s *FlashStore) Success(w http.ResponseWriter, r *http.Request, message string) {
	flash := s.read(r)
	flash.Success = append(flash.Success, message)
	s.write(w, flash)
}

// Error queues an error message for the next request.
func (s *FlashStore) Error(w http.ResponseWriter, r *http.Request, message string) {
	flash := s.read(r)
	flash.Error = append(flash.Error, message)
	s.write(w, flash)
}

// Pop returns pending messages and clears the cookie.
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) Flash {
	flash := s.read(r)
	if !flash.IsEmpty() {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flash
}

func (s *FlashStore) read(r *http.Request) Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return Flash{}
	}
	claims := &flashClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Flash{}
	}
	return claims.Flash
}

func (s *FlashStore) write(w http.ResponseWriter, flash Flash) {
	expiresAt := time.Now().Add(flashTTL)
	claims := flashClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)},
		Flash:            flash,
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
