package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/inkpress/authgate"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by [Guard] or
// [Bootstrap], if the request was authenticated.
func IdentityFromContext(ctx context.Context) (authgate.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(authgate.Identity)
	return id, ok
}

type sessionContextKey struct{}

// SessionIDFromContext returns the authenticated request's sessionId.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionContextKey{}).(string)
	return sid, ok
}

// errorEnvelope is the JSON body of every 401 response.
type errorEnvelope struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Guard returns middleware enforcing authentication on the wrapped handler.
// Requests that fail verification receive a 401 with a machine-readable
// reason code and never reach the handler.
func Guard(engine *authgate.Engine) func(http.Handler) http.Handler {
	return guard(engine, true)
}

// Bootstrap returns middleware with the same verification and rotation
// behavior as [Guard], but unauthenticated requests continue to the handler
// without an identity in context. Routes that must work for both anonymous
// and logged-in clients sit behind it.
func Bootstrap(engine *authgate.Engine) func(http.Handler) http.Handler {
	return guard(engine, false)
}

func guard(engine *authgate.Engine, require bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, authgate.ReasonStoreUnavailable)
				return
			}

			ctx := authgate.WithClientIP(r.Context(), clientIP(r))
			ctx = authgate.WithUserAgent(ctx, r.UserAgent())

			access, _ := bearerToken(r.Header.Get("Authorization"))
			refresh := refreshCookie(r, engine.Config().Cookie.Name)

			decision := engine.Authenticate(ctx, access, refresh)

			if decision.Rotated {
				w.Header().Set("x-access-token", decision.AccessToken)
				setRefreshCookie(w, engine.Config(), decision.RefreshToken)
			}

			if !decision.Authenticated {
				if !require {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				reject(w, decision.Reason)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, decision.Identity)
			ctx = context.WithValue(ctx, sessionContextKey{}, decision.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, reason authgate.RejectReason) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:  "unauthorized",
		Reason: string(reason),
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func refreshCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetRefreshCookie writes the refresh token cookie after a login. Handlers
// that call Engine.IssueSession use it to hand the refresh token to the
// browser; the middleware uses the same attributes on rotation.
func SetRefreshCookie(w http.ResponseWriter, cfg authgate.Config, refreshToken string) {
	setRefreshCookie(w, cfg, refreshToken)
}

// ClearRefreshCookie expires the refresh cookie on logout.
func ClearRefreshCookie(w http.ResponseWriter, cfg authgate.Config) {
	cookie := refreshCookieTemplate(cfg)
	cookie.Value = ""
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

func setRefreshCookie(w http.ResponseWriter, cfg authgate.Config, refreshToken string) {
	cookie := refreshCookieTemplate(cfg)
	cookie.Value = refreshToken
	cookie.MaxAge = int(cfg.JWT.RefreshTTL.Seconds())
	http.SetCookie(w, cookie)
}

// refreshCookieTemplate builds the cookie shell shared by set and clear.
// Production uses Secure + SameSite=None so the cookie survives cross-site
// API calls; development stays on Lax so plain http works.
func refreshCookieTemplate(cfg authgate.Config) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if cfg.Security.ProductionMode {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     cfg.Cookie.Name,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		HttpOnly: true,
		Secure:   cfg.Security.ProductionMode,
		SameSite: sameSite,
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
