package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
)

const (
	sessionCookie = "session"
	stateCookie   = "oauth_state"
	stateTTL      = 10 * time.Minute
	sessionIssuer = "unified-bot-dashboard"
)

var (
	errInvalidState    = errors.New("invalid oauth state")
	errMissingIdentity = errors.New("identity response has no user id")
)

// Identity is the verified dashboard user.
type Identity struct {
	UserID   string
	Username string
}

// Claims are carried in the session cookie.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type identityKey struct{}

// IdentityFrom returns the identity attached by Auth.Require.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Auth handles the Discord OAuth2 login flow and signed session cookies.
type Auth struct {
	oauth   *oauth2.Config
	apiBase string
	secret  []byte
	ttl     time.Duration
	secure  bool
	allowed func(userID string) bool
	now     func() time.Time
}

// NewAuth builds the OAuth client from configuration.
func NewAuth(cfg *config.Config) (*Auth, error) {
	d := cfg.Dashboard
	if d.SessionSecret == "" {
		return nil, fmt.Errorf("dashboard.session_secret is required")
	}
	if d.OAuth.ClientID == "" || d.OAuth.ClientSecret == "" {
		return nil, fmt.Errorf("dashboard oauth client id and secret are required")
	}

	return &Auth{
		oauth: &oauth2.Config{
			ClientID:     d.OAuth.ClientID,
			ClientSecret: d.OAuth.ClientSecret,
			RedirectURL:  d.OAuth.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   d.OAuth.AuthURL,
				TokenURL:  d.OAuth.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: strings.TrimRight(d.OAuth.APIBaseURL, "/"),
		secret:  []byte(d.SessionSecret),
		ttl:     d.SessionTTL,
		secure:  d.SecureCookies,
		allowed: cfg.IsDashboardAllowed,
		now:     time.Now,
	}, nil
}

// Login redirects to the provider with a fresh state value.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback exchanges the authorization code, checks the allow-list and
// starts a session.
func (a *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clearCookie(w, stateCookie, a.secure)

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		log.Warn().Err(errInvalidState).Msg("OAuth callback rejected")
		renderError(w, http.StatusUnauthorized, "Login failed, please try again.")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		renderError(w, http.StatusUnauthorized, "Login was cancelled.")
		return
	}

	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth code exchange failed")
		renderError(w, http.StatusUnauthorized, "Login failed, please try again.")
		return
	}

	identity, err := a.fetchIdentity(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch identity")
		renderError(w, http.StatusUnauthorized, "Login failed, please try again.")
		return
	}

	if !a.allowed(identity.UserID) {
		log.Warn().Str("user_id", identity.UserID).Msg("Dashboard access denied")
		renderError(w, http.StatusForbidden, "You are not allowed to view this dashboard.")
		return
	}

	session, err := a.issue(identity)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign session")
		renderError(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().
		Str("user_id", identity.UserID).
		Str("username", identity.Username).
		Msg("Dashboard login")

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout drops the session cookie.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, sessionCookie, a.secure)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Require rejects requests without a valid session from an allowed user.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.Session(r)
		if err != nil {
			renderError(w, http.StatusUnauthorized, "Please log in first.")
			return
		}
		// The allow-list is checked again so removals apply to live sessions.
		if !a.allowed(identity.UserID) {
			renderError(w, http.StatusForbidden, "You are not allowed to view this dashboard.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, identity)))
	})
}

// Session returns the identity carried by the request's session cookie.
func (a *Auth) Session(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return Identity{}, err
	}
	return a.parse(cookie.Value)
}

func (a *Auth) fetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBase+"/users/@me", nil)
	if err != nil {
		return Identity{}, err
	}

	resp, err := a.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read identity: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("identity request returned %d", resp.StatusCode)
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return Identity{}, errMissingIdentity
	}
	return Identity{UserID: id, Username: gjson.GetBytes(body, "username").String()}, nil
}

func (a *Auth) issue(identity Identity) (string, error) {
	now := a.now()
	claims := &Claims{
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, errMissingIdentity
	}
	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
