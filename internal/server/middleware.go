package server

import (
	"net/http"
	"net/url"
	"strings"

	commonhttp "github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
)

const flashLoginRequired = "You must be logged in!"

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-HTTP-Method-Override")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// methodOverride lets HTML forms tunnel PUT/PATCH/DELETE through POST.
// _method はクエリ、ヘッダ、urlencoded ボディの順に参照する。multipart はここで読まない。
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			override := r.URL.Query().Get("_method")
			if override == "" {
				override = r.Header.Get("X-HTTP-Method-Override")
			}
			if override == "" && strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/x-www-form-urlencoded") {
				r.Body = http.MaxBytesReader(w, r.Body, commonhttp.MaxJSONRequestBody)
				if err := r.ParseForm(); err == nil {
					override = r.PostForm.Get("_method")
				}
			}
			switch method := strings.ToUpper(strings.TrimSpace(override)); method {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}

// connectionState records the store's reachability on the request context.
func (s *Server) connectionState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := s.health.Check(r.Context())
		ctx := commonhttp.ContextWithConnectionState(r.Context(), commonhttp.ConnectionState{
			Connected: state.Connected,
			CheckedAt: state.CheckedAt,
			Err:       state.Err,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth はセッション Cookie または Bearer トークンを検証し、成功時のみユーザーをコンテキストへ詰める。
// 無効な Cookie は削除して匿名として処理を続ける。
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := s.accounts.Verify(token)
		if err != nil {
			if fromCookie {
				http.SetCookie(w, &http.Cookie{
					Name:     commonhttp.SessionCookieName,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := commonhttp.ContextWithUser(r.Context(), commonhttp.AuthenticatedUser{
			ID:       principal.ID,
			Username: principal.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects anonymous requests: 401 for API clients, a login redirect for browsers.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := commonhttp.UserFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		if commonhttp.WantsJSON(r) {
			s.errors.Respond(w, r, commonhttp.NewHTTPError(http.StatusUnauthorized, flashLoginRequired))
			return
		}

		location := "/login"
		if r.Method == http.MethodGet {
			location += "?" + url.Values{"returnTo": {r.URL.RequestURI()}}.Encode()
		}
		s.flash.Error(w, r, flashLoginRequired)
		commonhttp.Redirect(w, r, location)
	})
}

// sessionToken prefers the Authorization header over the session cookie.
func sessionToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	if header := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)), false
	}
	if cookie, err := r.Cookie(commonhttp.SessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value), true
	}
	return "", false
}
