// Package session issues and verifies the signed cookie that identifies a logged-in user.
// The cookie carries an HS256 JWT whose claims hold the user's id and username.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/config"
)

// CookieName is the name of the session cookie.
const CookieName = "tvitter_session"

const issuer = "tvitter"

// Claims embeds jwt.RegisteredClaims and adds the user identity.
type Claims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens and writes the cookie.
// It is immutable after construction and safe for concurrent use.
type Manager struct {
	secret   []byte
	duration time.Duration
	secure   bool
	now      func() time.Time
}

func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		duration: cfg.SessionDuration,
		secure:   cfg.SecureCookies,
		now:      time.Now,
	}
}

// Token creates a signed token for the user.
func (m *Manager) Token(userID, userName string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.duration)
	claims := &Claims{
		UserID:   userID,
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token string and returns its claims.
// Every rejection is an AuthError wrapping the cause.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, apperror.NewAuthError("invalid session", err)
	}
	if !token.Valid {
		return nil, apperror.NewAuthError("invalid session", errors.New("session token is invalid"))
	}
	if claims.UserID == "" || claims.UserName == "" {
		return nil, apperror.NewAuthError("invalid session", errors.New("session token is missing the user identity"))
	}
	return claims, nil
}

// Start issues a token for the user and sets it as an HttpOnly cookie.
func (m *Manager) Start(w http.ResponseWriter, userID, userName string) error {
	token, expiresAt, err := m.Token(userID, userName)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.duration.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End expires the session cookie.
func (m *Manager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
