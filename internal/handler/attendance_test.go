package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "2024-05-01,3,A,Databases,lecture"

func sessionForm() url.Values {
	return url.Values{
		"date":            {"2024-05-01"},
		"semester":        {"3"},
		"slot":            {"A"},
		"subject":         {"Databases"},
		"attendance_type": {"lecture"},
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newAttendanceApp(t)
	b := app.signUp(t, "ada")

	p := b.get("/")
	assert.Contains(t, p.body, "Welcome, ada")
	assert.Equal(t, "no-cache, no-store, must-revalidate", p.header.Get("Cache-Control"))

	p = b.get("/logout")
	assert.Equal(t, "/", p.path)
	assert.NotContains(t, p.body, "Welcome, ada")

	p = b.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"password1"}})
	assert.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "Welcome, ada")
}

func TestLoginFailuresLookAlike(t *testing.T) {
	app := newAttendanceApp(t)
	app.signUp(t, "ada")
	b := app.browser(t)

	wrong := b.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"password2"}})
	unknown := b.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"password1"}})
	assert.Equal(t, http.StatusBadRequest, wrong.status)
	assert.Equal(t, http.StatusBadRequest, unknown.status)
	assert.Contains(t, wrong.body, "Invalid email and/or password")
	assert.Contains(t, unknown.body, "Invalid email and/or password")

	missing := b.post("/login", url.Values{"email": {"ada@example.com"}})
	assert.Equal(t, http.StatusBadRequest, missing.status)
	assert.Contains(t, missing.body, "Must provide email and password")
}

func TestRegisterRejections(t *testing.T) {
	app := newAttendanceApp(t)
	app.signUp(t, "ada")
	b := app.browser(t)

	short := registrationForm("grace", "grace@example.com")
	short.Set("password", "passwor")
	short.Set("confirmation", "passwor")
	p := b.post("/register", short)
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "Password must be at least 8 characters long.")
	assert.Contains(t, p.body, `value="grace"`)

	mismatch := registrationForm("grace", "grace@example.com")
	mismatch.Set("confirmation", "password2")
	p = b.post("/register", mismatch)
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "Passwords do not match.")

	p = b.post("/register", registrationForm("ada", "grace@example.com"))
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "Username already taken.")

	p = b.post("/register", registrationForm("grace", "ada@example.com"))
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "Email already taken.")
}

func TestProfileUpdate(t *testing.T) {
	app := newAttendanceApp(t)
	app.signUp(t, "grace")
	b := app.signUp(t, "ada")

	p := b.post("/profile", url.Values{"username": {"countess"}, "email": {"ada@example.com"}, "department": {"Math"}})
	assert.Equal(t, "/profile", p.path)
	assert.Contains(t, p.body, "Profile updated successfully!")
	assert.Contains(t, p.body, `value="countess"`)

	p = b.post("/profile", url.Values{"username": {"countess"}, "email": {"grace@example.com"}})
	assert.Contains(t, p.body, "Email already taken.")

	p = b.post("/profile", url.Values{"username": {""}, "email": {"ada@example.com"}})
	assert.Contains(t, p.body, "Username and email are required!")
}

func TestLoginRequired(t *testing.T) {
	app := newAttendanceApp(t)
	b := app.browser(t)

	assert.Equal(t, "/login", b.get("/profile").path)

	p := b.post("/scan_qr", url.Values{"qr_data": {payload}})
	assert.Equal(t, "/login", p.path)
	assert.Contains(t, p.body, "You need to be logged in to mark attendance.")
}

func TestAdminRequired(t *testing.T) {
	app := newAttendanceApp(t)
	b := app.signUp(t, "student")

	p := b.get("/generate_qr")
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "Admin privileges required.")

	p = b.post("/download_filtered_attendance_csv", sessionForm())
	assert.Equal(t, "/", p.path)
	assert.Empty(t, p.header.Get("Content-Disposition"))
}

func TestIssueAndCheckIn(t *testing.T) {
	app := newAttendanceApp(t)
	admin := app.signUp(t, "admin")
	app.makeAdmin(t, "admin")
	student := app.signUp(t, "student")

	p := admin.post("/generate_qr", sessionForm())
	require.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, "image/png", p.header.Get("Content-Type"))
	assert.Contains(t, p.header.Get("Content-Disposition"), `filename=attendance_qr.png`)
	assert.True(t, strings.HasPrefix(p.body, "\x89PNG"))

	comma := sessionForm()
	comma.Set("subject", "Data, Bases")
	p = admin.post("/generate_qr", comma)
	assert.Equal(t, "/generate_qr", p.path)
	assert.Contains(t, p.body, "Fields must not contain commas.")

	missing := sessionForm()
	missing.Del("slot")
	p = admin.post("/generate_qr", missing)
	assert.Contains(t, p.body, "All fields are required!")

	cases := []struct {
		qr   string
		want string
	}{
		{"", "No QR code data found."},
		{"2024-05-01,3,A", "Invalid QR code data."},
		{"2024-05-02,3,A,Databases,lecture", "Invalid session data."},
		{payload, "Attendance marked successfully!"},
		{" " + payload + "\n", "Attendance already marked for this session."},
	}
	for _, tc := range cases {
		p := student.post("/scan_qr", url.Values{"qr_data": {tc.qr}})
		assert.Equal(t, "/", p.path, tc.qr)
		assert.Contains(t, p.body, tc.want, tc.qr)
	}

	p = admin.get("/admins")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Databases")
	assert.Contains(t, p.body, "student")

	p = student.post("/manage_attendance", url.Values{"subject": {"Databases"}})
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "<td>student</td>")

	p = student.post("/manage_attendance", url.Values{})
	assert.Contains(t, p.body, "Please select a subject.")
}

func TestExportCSV(t *testing.T) {
	app := newAttendanceApp(t)
	admin := app.signUp(t, "admin")
	app.makeAdmin(t, "admin")

	admin.post("/generate_qr", sessionForm())
	for _, name := range []string{"s1", "s2"} {
		p := app.signUp(t, name).post("/scan_qr", url.Values{"qr_data": {payload}})
		require.Contains(t, p.body, "Attendance marked successfully!")
	}

	filter := sessionForm()
	filter.Set("date", time.Now().UTC().Format("2006-01-02"))

	p := admin.get("/show_attendance_csv_settings")
	assert.Equal(t, http.StatusOK, p.status)

	p = admin.post("/show_attendance_csv_settings", filter)
	require.Equal(t, http.StatusOK, p.status, p.body)
	assert.Equal(t, "/download_filtered_attendance_csv", p.path)
	assert.Contains(t, p.header.Get("Content-Disposition"), "-A-3-class-Databases.csv")
	lines := strings.Split(strings.TrimRight(p.body, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "User ID,User Name,Session ID,Marked On,Semester,Slot,Subject,Attendance Type", lines[0])
	assert.Contains(t, lines[1], ",s1,")

	none := sessionForm()
	none.Set("date", "1999-01-01")
	p = admin.post("/download_filtered_attendance_csv", none)
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "No matching records found.")
	assert.Empty(t, p.header.Get("Content-Disposition"))

	incomplete := sessionForm()
	incomplete.Del("subject")
	p = admin.post("/download_filtered_attendance_csv", incomplete)
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "All fields are required.")
}

func TestCheckInAPI(t *testing.T) {
	app := newAttendanceApp(t)
	admin := app.signUp(t, "admin")
	app.makeAdmin(t, "admin")
	admin.post("/generate_qr", sessionForm())
	app.signUp(t, "student")

	client := app.browser(t)
	p := client.postJSON("/api/token", `{"email":"student@example.com","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, p.status)

	p = client.postJSON("/api/token", `{"email":"student@example.com","password":"password1"}`, "")
	require.Equal(t, http.StatusOK, p.status, p.body)
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(p.body), &tok))
	require.NotEmpty(t, tok.AccessToken)

	p = client.postJSON("/api/checkins", fmt.Sprintf(`{"qr_data":%q}`, payload), "")
	assert.Equal(t, http.StatusUnauthorized, p.status)

	statuses := []struct {
		qr   string
		want int
	}{
		{payload, http.StatusCreated},
		{payload, http.StatusOK},
		{"2024-05-01,3", http.StatusBadRequest},
		{"2024-05-09,3,A,Databases,lecture", http.StatusNotFound},
	}
	for _, s := range statuses {
		p = client.postJSON("/api/checkins", fmt.Sprintf(`{"qr_data":%q}`, s.qr), tok.AccessToken)
		assert.Equal(t, s.want, p.status, s.qr)
	}

	var res struct {
		Duplicate bool `json:"duplicate"`
		Session   struct {
			Subject string `json:"subject"`
		} `json:"session"`
	}
	p = client.postJSON("/api/checkins", fmt.Sprintf(`{"qr_data":%q}`, payload), tok.AccessToken)
	require.NoError(t, json.Unmarshal([]byte(p.body), &res))
	assert.True(t, res.Duplicate)
	assert.Equal(t, "Databases", res.Session.Subject)
}

func TestHealthz(t *testing.T) {
	app := newAttendanceApp(t)
	p := app.browser(t).get("/healthz")
	assert.Equal(t, http.StatusOK, p.status)
	assert.JSONEq(t, `{"status":"ok","db":true}`, p.body)
	assert.NotEmpty(t, p.header.Get("X-Request-ID"))
}
