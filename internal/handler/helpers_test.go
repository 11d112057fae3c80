package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendvault/internal/attendance"
	"attendvault/internal/config"
	"attendvault/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.App {
	return config.App{
		Env:             "test",
		SessionSecret:   "test-session-secret",
		SessionMaxAge:   time.Hour,
		JWTIssuer:       "attendvault-test",
		JWTSigningKey:   "test-signing-key",
		AccessTTL:       time.Minute,
		RateLimitPerMin: 1000,
		MaxUploadMB:     5,
	}
}

func openTestDB(t *testing.T, name string, schema store.Schema) *store.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx, schema))
	return db
}

type attendanceApp struct {
	srv  *httptest.Server
	repo *attendance.Repository
}

func newAttendanceApp(t *testing.T) *attendanceApp {
	t.Helper()
	db := openTestDB(t, "attendance.db", attendance.Schema)
	repo := attendance.NewRepository(db)
	r := NewAttendanceRouter(attendance.NewService(repo), Deps{
		Config: testConfig(),
		Logger: zap.NewNop(),
		Health: map[string]Pinger{"db": db},
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &attendanceApp{srv: srv, repo: repo}
}

// browser is a cookie-keeping client that follows redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (a *attendanceApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: a.srv.URL, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

type response struct {
	status int
	header http.Header
	path   string
	body   string
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{status: resp.StatusCode, header: resp.Header, path: resp.Request.URL.Path, body: string(body)}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body, token string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return b.do(req)
}

func registrationForm(username, email string) url.Values {
	return url.Values{
		"username":                       {username},
		"email":                          {email},
		"phone_number":                   {"5550001111"},
		"department":                     {"CSE"},
		"semester":                       {"3"},
		"university_registration_number": {"REG-" + username},
		"gender":                         {"female"},
		"password":                       {"password1"},
		"confirmation":                   {"password1"},
	}
}

// signUp registers a user in a fresh browser and returns it logged in.
func (a *attendanceApp) signUp(t *testing.T, username string) *browser {
	t.Helper()
	b := a.browser(t)
	p := b.post("/register", registrationForm(username, username+"@example.com"))
	require.Equal(t, http.StatusOK, p.status, p.body)
	require.Contains(t, p.body, "Registered successfully!")
	return b
}

func (a *attendanceApp) makeAdmin(t *testing.T, username string) {
	t.Helper()
	ctx := context.Background()
	u, err := a.repo.UserByUsername(ctx, username)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NoError(t, a.repo.GrantAdmin(ctx, u.ID))
}
