package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pinterest-ai-studio/internal/domain/model"
)

const (
	sessionCookie = "studio_session"
	refreshCookie = "studio_refresh"
)

type AuthConfig struct {
	HMACSecret   []byte
	SecureCookie bool
	TokenTTL     time.Duration
	RefreshTTL   time.Duration
}

// AuthManager mints and parses the JWT session pair. The short-lived session
// token carries identity; the refresh token only proves the right to a new
// session.
type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret string, secure bool, tokenTTL, refreshTTL time.Duration) *AuthManager {
	return &AuthManager{cfg: AuthConfig{
		HMACSecret:   []byte(secret),
		SecureCookie: secure,
		TokenTTL:     tokenTTL,
		RefreshTTL:   refreshTTL,
	}}
}

type SessionClaims struct {
	Email   string `json:"email"`
	Refresh bool   `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// Mint signs a session and a refresh token for the user and sets both as
// HttpOnly cookies. The session token is also returned for Bearer clients.
func (a *AuthManager) Mint(w http.ResponseWriter, user *model.User) (string, error) {
	session, err := a.sign(user, false, a.cfg.TokenTTL)
	if err != nil {
		return "", err
	}
	refresh, err := a.sign(user, true, a.cfg.RefreshTTL)
	if err != nil {
		return "", err
	}
	a.setCookie(w, sessionCookie, session, a.cfg.TokenTTL)
	a.setCookie(w, refreshCookie, refresh, a.cfg.RefreshTTL)
	return session, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	a.setCookie(w, sessionCookie, "", -time.Second)
	a.setCookie(w, refreshCookie, "", -time.Second)
}

// ParseFromRequest accepts Authorization: Bearer or the session cookie.
func (a *AuthManager) ParseFromRequest(r *http.Request) (*SessionClaims, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]), false)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return a.parse(c.Value, false)
	}
	return nil, errors.New("missing token")
}

// ParseRefresh reads the refresh cookie only; session tokens are rejected.
func (a *AuthManager) ParseRefresh(r *http.Request) (*SessionClaims, error) {
	c, err := r.Cookie(refreshCookie)
	if err != nil {
		return nil, errors.New("missing refresh token")
	}
	return a.parse(c.Value, true)
}

func (a *AuthManager) sign(user *model.User, refresh bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:   user.Email,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.cfg.HMACSecret)
}

func (a *AuthManager) parse(tok string, refresh bool) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Refresh != refresh {
		return nil, errors.New("wrong token kind")
	}
	return claims, nil
}

func (a *AuthManager) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
