package account

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	accountapp "github.com/sngm3741/wanderlust/api/internal/account/application"
	accountdomain "github.com/sngm3741/wanderlust/api/internal/account/domain"
	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
)

const (
	flashWelcome      = "Welcome to Wanderlust!"
	flashWelcomeBack  = "Welcome back to Wanderlust!"
	flashLoggedOut    = "You are logged out!"
	flashBadLogin     = "Password or username is incorrect"
	flashUsernameUsed = "A user with the given username is already registered"
)

// Handler wires signup/login/logout endpoints to the account service.
type Handler struct {
	logger       *log.Logger
	accounts     accountapp.AccountService
	flash        *common.FlashStore
	errors       common.ErrorResponder
	cookieSecure bool
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger       *log.Logger
	Accounts     accountapp.AccountService
	Flash        *common.FlashStore
	Errors       common.ErrorResponder
	CookieSecure bool
}

// NewHandler constructs an account HTTP handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:       cfg.Logger,
		accounts:     cfg.Accounts,
		flash:        cfg.Flash,
		errors:       cfg.Errors,
		cookieSecure: cfg.CookieSecure,
	}
}

// Register mounts account routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/signup", h.formHandler())
	r.Post("/signup", h.signupHandler())
	r.Get("/login", h.formHandler())
	r.Post("/login", h.loginHandler())
	r.Get("/logout", h.logoutHandler())
	r.Post("/logout", h.logoutHandler())
}

type credentialsInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ReturnTo string `json:"returnTo"`
}

type sessionResponse struct {
	User      common.AuthenticatedUser `json:"user"`
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expiresAt"`
}

type formResponse struct {
	Flash       common.Flash              `json:"flash"`
	CurrentUser *common.AuthenticatedUser `json:"currentUser,omitempty"`
}

// formHandler はフォーム表示用にフラッシュと現在のユーザーだけを返す。
func (h *Handler) formHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := formResponse{Flash: h.flash.Pop(w, r)}
		if user, ok := common.UserFromContext(r.Context()); ok {
			resp.CurrentUser = &user
		}
		common.WriteJSON(h.logger, w, http.StatusOK, resp)
	}
}

func (h *Handler) signupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		input, err := readCredentials(w, r)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		session, err := h.accounts.Signup(ctx, accountapp.SignupCommand{
			Username: input.Username,
			Email:    input.Email,
			Password: input.Password,
		})
		if err != nil {
			if errors.Is(err, accountdomain.ErrUsernameTaken) && !common.WantsJSON(r) {
				h.flash.Error(w, r, flashUsernameUsed)
				common.Redirect(w, r, "/signup")
				return
			}
			h.errors.Respond(w, r, err)
			return
		}

		h.setSessionCookie(w, session)
		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusCreated, buildSessionResponse(session))
			return
		}
		h.flash.Success(w, r, flashWelcome)
		common.Redirect(w, r, "/listings")
	}
}

func (h *Handler) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		input, err := readCredentials(w, r)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		session, err := h.accounts.Login(ctx, input.Username, input.Password)
		if err != nil {
			if errors.Is(err, accountdomain.ErrInvalidCredentials) && !common.WantsJSON(r) {
				h.flash.Error(w, r, flashBadLogin)
				common.Redirect(w, r, "/login")
				return
			}
			h.errors.Respond(w, r, err)
			return
		}

		h.setSessionCookie(w, session)
		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusOK, buildSessionResponse(session))
			return
		}
		h.flash.Success(w, r, flashWelcomeBack)
		common.Redirect(w, r, safeReturnTo(input.ReturnTo))
	}
}

func (h *Handler) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     common.SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		h.flash.Success(w, r, flashLoggedOut)
		common.Redirect(w, r, "/listings")
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *accountapp.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// readCredentials accepts a JSON body or urlencoded form fields.
func readCredentials(w http.ResponseWriter, r *http.Request) (credentialsInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, common.MaxJSONRequestBody)
	var input credentialsInput
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return credentialsInput{}, common.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
		}
		return input, nil
	}
	if err := r.ParseForm(); err != nil {
		return credentialsInput{}, common.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	return credentialsInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
		ReturnTo: r.FormValue("returnTo"),
	}, nil
}

// safeReturnTo はオープンリダイレクトを避けるため、サイト内の相対パスだけを許可する。
func safeReturnTo(target string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/listings"
	}
	return target
}

func buildSessionResponse(session *accountapp.Session) sessionResponse {
	return sessionResponse{
		User:      common.AuthenticatedUser{ID: session.Account.ID, Username: session.Account.Username},
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}
}
