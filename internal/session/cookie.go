package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// CookieName is the cookie holding the signed session token.
	CookieName = "travel_session"

	issuer        = "travel-tracker"
	tokenLifetime = 30 * 24 * time.Hour
)

// Cookie keeps the current user per browser in an HS256-signed JWT cookie.
//
// A request without a cookie, or with a token that fails validation, gets the
// default user, the same as a fresh process does with Global.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"iss":"travel-tracker","uid":3,"exp":...,"jti":"..."}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// A payload without "uid" means no current user.
type Cookie struct {
	secret    []byte
	defaultID int64
	secure    bool
	now       func() time.Time
}

var _ Store = (*Cookie)(nil)

// claims is the JWT payload. UserID is nil when no user is selected.
type claims struct {
	UserID *int64 `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// NewCookie creates a Cookie store signing with secret. Set secure when the
// app is served over HTTPS so the browser only sends the cookie there.
func NewCookie(secret string, defaultID int64, secure bool) (*Cookie, error) {
	if len(secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 characters")
	}
	return &Cookie{
		secret:    []byte(secret),
		defaultID: defaultID,
		secure:    secure,
		now:       time.Now,
	}, nil
}

// Load reads the state from the request cookie.
func (c *Cookie) Load(r *http.Request) State {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return For(c.defaultID)
	}

	s, err := c.parse(cookie.Value)
	if err != nil {
		return For(c.defaultID)
	}
	return s
}

// Save writes the state into a fresh signed cookie.
func (c *Cookie) Save(w http.ResponseWriter, _ *http.Request, s State) error {
	token, err := c.sign(s)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenLifetime.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *Cookie) sign(s State) (string, error) {
	now := c.now()

	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	if s.Valid {
		id := s.UserID
		cl.UserID = &id
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("session: signing token: %w", err)
	}
	return signed, nil
}

// parse verifies the signature, issuer, algorithm and expiry of tokenStr.
func (c *Cookie) parse(tokenStr string) (State, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return State{}, fmt.Errorf("session: invalid token: %w", err)
	}

	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return State{}, errors.New("session: invalid token claims")
	}

	if cl.UserID == nil {
		return None(), nil
	}
	return For(*cl.UserID), nil
}
