package session

import (
	"context"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"famhub/internal/app/creds"
	"famhub/internal/app/room"
	"famhub/internal/app/store"
	"famhub/internal/pkg/errs"
)

// testEnv is one simulated device: a session with its own credential store,
// sharing the remote store with every other device in the test.
type testEnv struct {
	session *Session
	creds   *creds.Store
	store   store.RoomStore
}

func setupRemote(t *testing.T) store.RoomStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s, err := store.NewRedisStore(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func newDevice(t *testing.T, remote store.RoomStore) *testEnv {
	t.Helper()

	credStore, err := creds.Open(filepath.Join(t.TempDir(), "credentials.db"))
	if err != nil {
		t.Fatalf("Failed to open credential store: %v", err)
	}
	t.Cleanup(func() { credStore.Close() })

	sess := NewSession(remote, credStore)
	t.Cleanup(sess.Release)

	return &testEnv{session: sess, creds: credStore, store: remote}
}

func TestCreateRoomMintsCodeAndRegistersCreator(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)
	ctx := context.Background()

	code, customErr := dev.session.CreateRoom(ctx, "hunter2", "Alice")
	if customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(code) {
		t.Errorf("Room code %q does not match ^[A-Z0-9]{6}$", code)
	}

	rec, err := remote.Fetch(ctx, code)
	if err != nil {
		t.Fatalf("Fetch after create failed: %v", err)
	}
	if len(rec.Data.Users) != 1 || rec.Data.Users[0].Name != "Alice" {
		t.Errorf("Remote room has users %+v, want exactly one Alice", rec.Data.Users)
	}
	if rec.Password != "hunter2" {
		t.Errorf("Remote room password %q, want %q", rec.Password, "hunter2")
	}

	cred, err := dev.creds.Load(ctx)
	if err != nil {
		t.Fatalf("Load credentials failed: %v", err)
	}
	want := creds.Credential{RoomID: code, Password: "hunter2", UserName: "Alice"}
	if cred != want {
		t.Errorf("Cached credential %+v, want %+v", cred, want)
	}

	if dev.session.RoomID() != code {
		t.Errorf("Session bound to %q, want %q", dev.session.RoomID(), code)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)
	ctx := context.Background()

	if _, customErr := dev.session.CreateRoom(ctx, "", "Alice"); customErr == nil || customErr.Code != errs.ErrPasswordRequired {
		t.Errorf("CreateRoom without password returned %v, want ErrPasswordRequired", customErr)
	}
	if _, customErr := dev.session.CreateRoom(ctx, "pw", ""); customErr == nil || customErr.Code != errs.ErrUserNameRequired {
		t.Errorf("CreateRoom without userName returned %v, want ErrUserNameRequired", customErr)
	}

	cred, err := dev.creds.Load(ctx)
	if err != nil {
		t.Fatalf("Load credentials failed: %v", err)
	}
	if cred.IsComplete() {
		t.Errorf("Failed create must not cache credentials, got %+v", cred)
	}
}

func TestJoinNonexistentRoomLeavesCredentialsAlone(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)
	ctx := context.Background()

	sentinel := creds.Credential{RoomID: "AAAAAA", Password: "old", UserName: "Alice"}
	if err := dev.creds.Save(ctx, sentinel); err != nil {
		t.Fatalf("Seeding credentials failed: %v", err)
	}

	customErr := dev.session.Join(ctx, "ZZZZZZ", "pw", "Alice", InteractiveJoin)
	if customErr == nil || customErr.Code != errs.ErrRoomNotFound {
		t.Fatalf("Join on nonexistent room returned %v, want ErrRoomNotFound", customErr)
	}

	cred, err := dev.creds.Load(ctx)
	if err != nil {
		t.Fatalf("Load credentials failed: %v", err)
	}
	if cred != sentinel {
		t.Errorf("Failed join mutated credentials: got %+v, want %+v", cred, sentinel)
	}

	if dev.session.RoomID() != "" {
		t.Errorf("Failed join left session bound to %q", dev.session.RoomID())
	}
}

func TestJoinRegistersNewMember(t *testing.T) {
	remote := setupRemote(t)
	devA := newDevice(t, remote)
	devB := newDevice(t, remote)
	ctx := context.Background()

	code, customErr := devA.session.CreateRoom(ctx, "pw", "Alice")
	if customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	if customErr := devB.session.Join(ctx, code, "pw", "Bob", InteractiveJoin); customErr != nil {
		t.Fatalf("Join failed: %v", customErr)
	}

	rec, err := remote.Fetch(ctx, code)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Data.FindUser("Alice") == nil || rec.Data.FindUser("Bob") == nil {
		t.Errorf("Remote room users %+v, want Alice and Bob", rec.Data.Users)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)
	ctx := context.Background()

	if _, customErr := dev.session.CreateRoom(ctx, "pw", "Alice"); customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	if customErr := dev.session.EnsureUser(ctx, "Alice"); customErr != nil {
		t.Fatalf("EnsureUser failed: %v", customErr)
	}
	if customErr := dev.session.EnsureUser(ctx, "Alice"); customErr != nil {
		t.Fatalf("Second EnsureUser failed: %v", customErr)
	}

	data, bound := dev.session.Data()
	if !bound {
		t.Fatal("Session should be bound")
	}

	count := 0
	for _, u := range data.Users {
		if u.Name == "Alice" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Found %d members named Alice, want exactly 1", count)
	}
}

func TestEnsureUserIsCaseSensitive(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)
	ctx := context.Background()

	if _, customErr := dev.session.CreateRoom(ctx, "pw", "Alice"); customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	if customErr := dev.session.EnsureUser(ctx, "alice"); customErr != nil {
		t.Fatalf("EnsureUser failed: %v", customErr)
	}

	data, _ := dev.session.Data()
	if len(data.Users) != 2 {
		t.Errorf("Name matching is case-sensitive by design; got %d members, want 2", len(data.Users))
	}
}

func TestLeaveResetsEverything(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)
	ctx := context.Background()

	if _, customErr := dev.session.CreateRoom(ctx, "pw", "Alice"); customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	if customErr := dev.session.Leave(ctx); customErr != nil {
		t.Fatalf("Leave failed: %v", customErr)
	}

	if dev.session.RoomID() != "" {
		t.Errorf("Session still bound to %q after Leave", dev.session.RoomID())
	}

	data, bound := dev.session.Data()
	if bound {
		t.Error("Session should be unbound after Leave")
	}
	if !reflect.DeepEqual(data, room.EmptyData()) {
		t.Errorf("Session data after Leave = %+v, want the empty-room default", data)
	}

	cred, err := dev.creds.Load(ctx)
	if err != nil {
		t.Fatalf("Load credentials failed: %v", err)
	}
	if cred != (creds.Credential{}) {
		t.Errorf("Credential store not empty after Leave: %+v", cred)
	}
}

func TestLeaveFromUnboundSession(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)

	if customErr := dev.session.Leave(context.Background()); customErr != nil {
		t.Errorf("Leave on unbound session returned %v, want success", customErr)
	}
}

// TestStaleSnapshotPushLosesConcurrentWrite documents the system's
// last-write-wins model: a device pushing a stale full snapshot silently
// erases what another device wrote in between.
func TestStaleSnapshotPushLosesConcurrentWrite(t *testing.T) {
	remote := setupRemote(t)
	devA := newDevice(t, remote)
	devB := newDevice(t, remote)
	ctx := context.Background()

	code, customErr := devA.session.CreateRoom(ctx, "pw", "Alice")
	if customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	// B reads the room and registers Bob; A's in-memory snapshot is now stale.
	if customErr := devB.session.Join(ctx, code, "pw", "Bob", InteractiveJoin); customErr != nil {
		t.Fatalf("Join failed: %v", customErr)
	}

	// A pushes its stale snapshot, landing after B's write.
	if _, customErr := devA.session.Push(ctx); customErr != nil {
		t.Fatalf("Push failed: %v", customErr)
	}

	rec, err := remote.Fetch(ctx, code)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if rec.Data.FindUser("Bob") != nil {
		t.Error("Expected Bob's registration to be lost to A's later stale push")
	}
	if rec.Data.FindUser("Alice") == nil {
		t.Error("Expected Alice to survive, hers was the winning snapshot")
	}
}

func TestPushJoinRoundTrip(t *testing.T) {
	remote := setupRemote(t)
	devA := newDevice(t, remote)
	devB := newDevice(t, remote)
	ctx := context.Background()

	code, customErr := devA.session.CreateRoom(ctx, "pw", "Alice")
	if customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	pushed, _ := devA.session.Data()
	pushed.Shopping.Items = append(pushed.Shopping.Items,
		room.ShoppingItem{ID: "i1", Name: "Milk", Amount: 2, AddedBy: "Alice"},
		room.ShoppingItem{ID: "i2", Name: "Bread", Checked: true},
	)
	pushed.Events = append(pushed.Events,
		room.Event{ID: "e1", Title: "Dentist", Date: "2026-09-12", Participants: []string{"Alice"}},
	)
	pushed.Settings["theme"] = "dark"

	if _, customErr := devA.session.Sync(ctx, pushed); customErr != nil {
		t.Fatalf("Sync failed: %v", customErr)
	}

	// A second device joins under the same name, so the join mutates nothing.
	if customErr := devB.session.Join(ctx, code, "pw", "Alice", InteractiveJoin); customErr != nil {
		t.Fatalf("Join failed: %v", customErr)
	}

	got, bound := devB.session.Data()
	if !bound {
		t.Fatal("Session should be bound after join")
	}

	if !reflect.DeepEqual(got, pushed) {
		t.Errorf("Round-tripped data differs.\n got: %+v\nwant: %+v", got, pushed)
	}
}

func TestProbeDoesNotBindOrSave(t *testing.T) {
	remote := setupRemote(t)
	devA := newDevice(t, remote)
	devB := newDevice(t, remote)
	ctx := context.Background()

	code, customErr := devA.session.CreateRoom(ctx, "pw", "Alice")
	if customErr != nil {
		t.Fatalf("CreateRoom failed: %v", customErr)
	}

	if customErr := devB.session.Join(ctx, code, "pw", "Bob", Probe); customErr != nil {
		t.Fatalf("Probe join failed: %v", customErr)
	}

	if devB.session.RoomID() != "" {
		t.Errorf("Probe bound the session to %q", devB.session.RoomID())
	}

	cred, err := devB.creds.Load(ctx)
	if err != nil {
		t.Fatalf("Load credentials failed: %v", err)
	}
	if cred.IsComplete() {
		t.Errorf("Probe cached credentials: %+v", cred)
	}

	rec, err := remote.Fetch(ctx, code)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Data.FindUser("Bob") != nil {
		t.Error("Probe must not register a member")
	}
}

func TestSyncWithoutSession(t *testing.T) {
	remote := setupRemote(t)
	dev := newDevice(t, remote)

	if _, customErr := dev.session.Sync(context.Background(), room.EmptyData()); customErr == nil || customErr.Code != errs.ErrNoActiveSession {
		t.Errorf("Sync on unbound session returned %v, want ErrNoActiveSession", customErr)
	}
}
