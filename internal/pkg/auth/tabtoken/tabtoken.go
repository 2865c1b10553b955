/*
Package tabtoken issues and verifies the per-tab session marker.

After a browser tab completes a join, it carries a short-lived signed token
proving "this tab already auto-joined". The login page uses the marker to
skip a redundant join when stored credentials are already valid; it is
deliberately decoupled from the durable credential store.
*/
package tabtoken

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// CookieName is the cookie the tab marker travels in. It is a session
	// cookie (no Max-Age), so closing the tab or browser discards it.
	CookieName = "famhub_tab"

	// Expiration bounds the marker's validity independent of cookie lifetime.
	Expiration = 12 * time.Hour

	// tokenIssuer identifies this application as the token issuer.
	tokenIssuer = "famhub"
)

// Claims are the signed contents of a tab marker.
type Claims struct {
	jwt.StandardClaims

	// RoomID is the room the tab joined.
	RoomID string `json:"roomId"`

	// UserName is the display name the tab joined under.
	UserName string `json:"userName"`
}

// Issue creates a signed tab marker for the given room and member.
func Issue(roomID, userName, secret string) (string, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(Expiration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    tokenIssuer,
		},
		RoomID:   roomID,
		UserName: userName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates a tab marker and returns its claims.
func Parse(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired tab token")
	}

	return claims, nil
}

// FromRequest extracts and validates the tab marker from the request cookie.
// A missing or invalid cookie returns nil; the tab is then treated as fresh.
func FromRequest(r *http.Request, secret string) *Claims {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	claims, err := Parse(cookie.Value, secret)
	if err != nil {
		return nil
	}

	return claims
}

// SetCookie attaches a freshly issued tab marker to the response.
func SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the tab marker, e.g. after leaving a room.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
