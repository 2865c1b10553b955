package tabtoken

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSecret = "test-secret"

func TestIssueAndParse(t *testing.T) {
	token, err := Issue("ABC123", "Alice", testSecret)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := Parse(token, testSecret)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if claims.RoomID != "ABC123" {
		t.Errorf("RoomID = %q, want %q", claims.RoomID, "ABC123")
	}
	if claims.UserName != "Alice" {
		t.Errorf("UserName = %q, want %q", claims.UserName, "Alice")
	}
	if claims.Issuer != tokenIssuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, tokenIssuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Issue("ABC123", "Alice", testSecret)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := Parse(token, "other-secret"); err == nil {
		t.Error("Parse accepted a token signed with a different secret")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-token", testSecret); err == nil {
		t.Error("Parse accepted a malformed token")
	}
}

func TestFromRequest(t *testing.T) {
	token, err := Issue("ABC123", "Alice", testSecret)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	claims := FromRequest(r, testSecret)
	if claims == nil || claims.RoomID != "ABC123" {
		t.Errorf("FromRequest = %+v, want claims for ABC123", claims)
	}
}

func TestFromRequestWithoutCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	if claims := FromRequest(r, testSecret); claims != nil {
		t.Errorf("FromRequest without cookie = %+v, want nil", claims)
	}
}
