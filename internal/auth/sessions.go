package auth

import (
	"fmt"
	"net/http"
	"time"

	"gradverify/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const SessionCookieName = "gv_session"

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// TokenCodec mints and verifies the stateless signed session credential.
// The server keeps no session table; everything a request handler needs is
// inside the token itself.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret []byte, ttl time.Duration) TokenCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return TokenCodec{secret: secretCopy, ttl: ttl, now: time.Now}
}

// WithNow returns a copy of the codec using the given clock. Test hook.
func (c TokenCodec) WithNow(now func() time.Time) TokenCodec {
	c.now = now
	return c
}

func (c TokenCodec) Mint(u domain.User) (string, error) {
	now := c.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Resolve decodes a session cookie value. An empty value is an anonymous
// visitor. A present value that fails signature or expiry checks reports
// invalid=true so the caller can clear the cookie instead of silently
// treating the visitor as anonymous. Resolve never returns an error.
func (c TokenCodec) Resolve(cookieValue string) (domain.Session, bool) {
	if cookieValue == "" {
		return domain.Session{}, false
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookieValue, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Session{}, true
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return domain.Session{}, true
	}

	return domain.Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   role,
	}, false
}

func SetSessionCookie(w http.ResponseWriter, cookieValue string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
