package authclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgerdocs/authclient/snapshot"
)

const testUserJSON = `{"id":"u1","email":"test@example.com","name":"Test User"}`

// testAPI is a scriptable stub of the remote authentication API. Status
// fields default to 200; gates, when set, block the handler until closed.
type testAPI struct {
	mu sync.Mutex

	loginCount    int
	googleCount   int
	registerCount int
	adminCount    int
	logoutCount   int
	refreshCount  int
	sessionCount  int

	loginStatus   int
	googleStatus  int
	refreshStatus int
	logoutStatus  int
	sessionStatus int

	loginGate   chan struct{}
	sessionGate chan struct{}

	authenticated bool
	sessionUser   string // JSON user object, "" to omit
	userBody      string // user object returned by auth endpoints
	failMessage   string // structured "message" on error statuses
}

func newTestAPI() *testAPI {
	return &testAPI{
		userBody:    testUserJSON,
		failMessage: "invalid credentials",
	}
}

func (a *testAPI) set(f func()) {
	a.mu.Lock()
	f()
	a.mu.Unlock()
}

func (a *testAPI) count(c *int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *c
}

func (a *testAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", a.authEndpoint(&a.loginCount, &a.loginStatus, &a.loginGate))
	mux.HandleFunc("POST /api/auth/google", a.authEndpoint(&a.googleCount, &a.googleStatus, nil))
	mux.HandleFunc("POST /api/auth/register", a.authEndpoint(&a.registerCount, nil, nil))
	mux.HandleFunc("POST /api/auth/admin/login", a.authEndpoint(&a.adminCount, nil, nil))
	mux.HandleFunc("POST /api/auth/refresh", a.authEndpoint(&a.refreshCount, &a.refreshStatus, nil))
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/session", a.handleSession)
	return mux
}

func (a *testAPI) authEndpoint(count, status *int, gate *chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		*count++
		st := 0
		if status != nil {
			st = *status
		}
		var g chan struct{}
		if gate != nil {
			g = *gate
		}
		body := a.userBody
		msg := a.failMessage
		a.mu.Unlock()

		if g != nil {
			<-g
		}
		w.Header().Set("Content-Type", "application/json")
		if st >= 400 {
			w.WriteHeader(st)
			fmt.Fprintf(w, `{"message":%q}`, msg)
			return
		}
		fmt.Fprintf(w, `{"user":%s}`, body)
	}
}

func (a *testAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.logoutCount++
	st := a.logoutStatus
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if st >= 400 {
		w.WriteHeader(st)
		fmt.Fprint(w, `{"message":"logout failed"}`)
		return
	}
	fmt.Fprint(w, `{}`)
}

func (a *testAPI) handleSession(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.sessionCount++
	st := a.sessionStatus
	g := a.sessionGate
	auth := a.authenticated
	user := a.sessionUser
	msg := a.failMessage
	a.mu.Unlock()

	if g != nil {
		<-g
	}
	w.Header().Set("Content-Type", "application/json")
	if st >= 400 {
		w.WriteHeader(st)
		fmt.Fprintf(w, `{"message":%q}`, msg)
		return
	}
	if !auth {
		fmt.Fprint(w, `{"authenticated":false}`)
		return
	}
	if user == "" {
		fmt.Fprint(w, `{"authenticated":true}`)
		return
	}
	fmt.Fprintf(w, `{"authenticated":true,"user":%s}`, user)
}

func testConfig(baseURL string) Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.RequestTimeout = 2 * time.Second
	// Keep pollers quiet unless a test dials them down.
	cfg.Poll.VerifyInterval = time.Hour
	cfg.Poll.RefreshInterval = time.Hour
	cfg.Poll.MinRefreshInterval = 10 * time.Millisecond
	return cfg
}

func newTestServerAndStore(t *testing.T, api *testAPI) (string, *snapshot.FileStore) {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store, err := snapshot.NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return srv.URL, store
}

func newTestManager(t *testing.T, api *testAPI, mutate func(*Config)) (*Manager, *snapshot.FileStore) {
	t.Helper()

	baseURL, store := newTestServerAndStore(t, api)

	cfg := testConfig(baseURL)
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := New().WithConfig(cfg).WithSnapshotStore(store).Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(m.Close)

	return m, store
}

func signedTestToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
