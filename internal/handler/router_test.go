package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"famhub/internal/app/creds"
	"famhub/internal/app/session"
	"famhub/internal/app/store"
	"famhub/internal/configs"
	"famhub/internal/pkg/auth/tabtoken"
	"famhub/internal/pkg/errs"
	"famhub/internal/pkg/resp"
)

type testServer struct {
	handler http.Handler
	deps    *AppDeps
	creds   *creds.Store
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	roomStore, err := store.NewRedisStore(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	t.Cleanup(func() { roomStore.Close() })

	credStore, err := creds.Open(filepath.Join(t.TempDir(), "credentials.db"))
	if err != nil {
		t.Fatalf("Failed to open credential store: %v", err)
	}
	t.Cleanup(func() { credStore.Close() })

	sess := session.NewSession(roomStore, credStore)
	t.Cleanup(sess.Release)

	deps := &AppDeps{
		Session:    sess,
		Controller: session.NewController(sess, credStore, LoginPath),
		Store:      roomStore,
		Config: &configs.AppConfig{
			Environment:    "development",
			Port:           8080,
			AllowedOrigins: []string{},
			TabTokenSecret: "test-secret",
		},
	}

	return &testServer{
		handler: Router(deps),
		deps:    deps,
		creds:   credStore,
	}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) resp.JSONResponse {
	t.Helper()

	var envelope resp.JSONResponse
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode response envelope %q: %v", w.Body.String(), err)
	}
	return envelope
}

func tabCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == tabtoken.CookieName {
			return c
		}
	}
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if envelope := decodeEnvelope(t, w); envelope.Code != 0 {
		t.Errorf("Envelope code = %d, want 0", envelope.Code)
	}
}

func TestProtectedPageRedirectsWithoutCredentials(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/budget", "")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("Status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?next=%2Fbudget" {
		t.Errorf("Location = %q, want %q", loc, "/login?next=%2Fbudget")
	}
}

func TestCreateRoomFlow(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/create", `{"password":"pw","userName":"Alice"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, body = %s", w.Code, w.Body.String())
	}

	envelope := decodeEnvelope(t, w)
	if envelope.Code != 0 {
		t.Fatalf("Envelope code = %d, want 0", envelope.Code)
	}

	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("Envelope data has unexpected shape: %v", envelope.Data)
	}
	code, _ := data["roomId"].(string)
	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(code) {
		t.Errorf("roomId %q does not match ^[A-Z0-9]{6}$", code)
	}

	cookie := tabCookie(w)
	if cookie == nil || cookie.Value == "" {
		t.Error("Create must set the per-tab join marker cookie")
	}

	// The session is now bound, so protected pages render.
	if w := ts.do(t, http.MethodGet, "/budget", ""); w.Code != http.StatusOK {
		t.Errorf("GET /budget after create returned %d, want 200", w.Code)
	}

	// And the snapshot contains the creator.
	w = ts.do(t, http.MethodGet, "/api/room/data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/room/data returned %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"Alice"`) {
		t.Errorf("Room data %s does not contain the creator", w.Body.String())
	}
}

func TestCreateRoomRequiresPassword(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/create", `{"userName":"Alice"}`)

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrPasswordRequired {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrPasswordRequired)
	}
}

func TestJoinRejectsMalformedRoomCode(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/join", `{"roomId":"abc!12","password":"pw","userName":"Bob"}`)

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrRoomCodeInvalid {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrRoomCodeInvalid)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/join", `{"roomId":"ZZZZZZ","password":"pw","userName":"Bob"}`)

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrRoomNotFound {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrRoomNotFound)
	}
}

func TestJoinRejectsUnknownJSONFields(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/join", `{"roomId":"ZZZZZZ","password":"pw","userName":"Bob","admin":true}`)

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrInvalidJSONFormat {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrInvalidJSONFormat)
	}
}

func TestGetDataWithoutSession(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/room/data", "")

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrNoActiveSession {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrNoActiveSession)
	}
}

func TestSyncWithoutSession(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/sync", `{"data":{"users":[],"shopping":{"items":[],"templates":[]},"events":[],"participants":[],"settings":{}}}`)

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrNoActiveSession {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrNoActiveSession)
	}
}

func TestBackupDisabled(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/room/backup", "")

	if envelope := decodeEnvelope(t, w); envelope.Code != errs.ErrBackupDisabled {
		t.Errorf("Envelope code = %d, want %d", envelope.Code, errs.ErrBackupDisabled)
	}
}

func TestLeaveClearsTabMarker(t *testing.T) {
	ts := setupTestServer(t)

	if w := ts.do(t, http.MethodPost, "/api/room/create", `{"password":"pw","userName":"Alice"}`); w.Code != http.StatusOK {
		t.Fatalf("Create returned %d", w.Code)
	}

	w := ts.do(t, http.MethodPost, "/api/room/leave", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Leave returned %d, body = %s", w.Code, w.Body.String())
	}

	cookie := tabCookie(w)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Error("Leave must expire the per-tab join marker cookie")
	}

	// Protected pages bounce back to login afterwards.
	if w := ts.do(t, http.MethodGet, "/shopping", ""); w.Code != http.StatusSeeOther {
		t.Errorf("GET /shopping after leave returned %d, want 303", w.Code)
	}
}

func TestLoginPageRendersWithoutCredentials(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/login", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `data-page="login"`) {
		t.Errorf("Body %q is not the login page shell", w.Body.String())
	}
}

func TestLoginPageAutoForwardsToNext(t *testing.T) {
	ts := setupTestServer(t)

	if w := ts.do(t, http.MethodPost, "/api/room/create", `{"password":"pw","userName":"Alice"}`); w.Code != http.StatusOK {
		t.Fatalf("Create returned %d", w.Code)
	}

	// A fresh tab (no marker cookie) hits the login page with stored
	// credentials: it is forwarded to the next target, marker set.
	w := ts.do(t, http.MethodGet, "/login?next=%2Fbudget", "")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("Status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/budget" {
		t.Errorf("Location = %q, want %q", loc, "/budget")
	}
	if cookie := tabCookie(w); cookie == nil || cookie.Value == "" {
		t.Error("Auto-forward must set the per-tab join marker cookie")
	}
}

func TestLoginPageRendersWhenTabAlreadyJoined(t *testing.T) {
	ts := setupTestServer(t)

	if w := ts.do(t, http.MethodPost, "/api/room/create", `{"password":"pw","userName":"Alice"}`); w.Code != http.StatusOK {
		t.Fatalf("Create returned %d", w.Code)
	}

	token, err := tabtoken.Issue(ts.deps.Session.RoomID(), "Alice", ts.deps.Config.TabTokenSecret)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: tabtoken.CookieName, Value: token})
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want the login page to render for a joined tab", w.Code)
	}
}
