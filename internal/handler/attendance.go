package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendvault/internal/attendance"
	"attendvault/internal/auth"
	"attendvault/internal/config"
	"attendvault/internal/logger"
	"attendvault/internal/metrics"
)

type attendanceHandler struct {
	svc *attendance.Service
	cfg config.App
}

var registerMessages = map[error]string{
	attendance.ErrMissingFields:    "All fields are required.",
	attendance.ErrPasswordMismatch: "Passwords do not match.",
	attendance.ErrPasswordTooShort: "Password must be at least 8 characters long.",
	attendance.ErrInvalidSemester:  "Semester must be a positive number.",
	attendance.ErrUsernameTaken:    "Username already taken.",
	attendance.ErrEmailTaken:       "Email already taken.",
}

// message returns the user-facing text for a known error.
func message(messages map[error]string, err error) (string, bool) {
	for target, msg := range messages {
		if errors.Is(err, target) {
			return msg, true
		}
	}
	return "", false
}

func (h *attendanceHandler) index(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if ok {
		u, err := h.svc.User(c.Request.Context(), id.UserID)
		switch {
		case errors.Is(err, attendance.ErrUserNotFound):
			_ = auth.Logout(c)
			c.Redirect(http.StatusFound, "/login")
			return
		case err != nil:
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if err := auth.Refresh(c, auth.Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}); err != nil {
			logger.FromContext(c.Request.Context()).Warn("refresh session", zap.Error(err))
		}
	}
	page(c, http.StatusOK, "index.html", nil)
}

func (h *attendanceHandler) loginForm(c *gin.Context) {
	flashes := auth.Flashes(c)
	_ = auth.Logout(c)
	c.HTML(http.StatusOK, "login.html", gin.H{"flashes": flashes, "email": ""})
}

func (h *attendanceHandler) login(c *gin.Context) {
	_ = auth.Logout(c)
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	u, err := h.svc.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		msg := "Invalid email and/or password"
		switch {
		case errors.Is(err, attendance.ErrMissingFields):
			msg = "Must provide email and password"
		case errors.Is(err, attendance.ErrInvalidCredentials):
		default:
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"error": msg, "email": email})
		return
	}

	if err := auth.Login(c, auth.Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *attendanceHandler) registerForm(c *gin.Context) {
	page(c, http.StatusOK, "register.html", gin.H{"form": attendance.Registration{}})
}

func (h *attendanceHandler) register(c *gin.Context) {
	r := attendance.Registration{
		Username:           strings.TrimSpace(c.PostForm("username")),
		Email:              strings.TrimSpace(c.PostForm("email")),
		Phone:              strings.TrimSpace(c.PostForm("phone_number")),
		Department:         strings.TrimSpace(c.PostForm("department")),
		Semester:           strings.TrimSpace(c.PostForm("semester")),
		RegistrationNumber: strings.TrimSpace(c.PostForm("university_registration_number")),
		Gender:             strings.TrimSpace(c.PostForm("gender")),
		Password:           c.PostForm("password"),
		Confirmation:       c.PostForm("confirmation"),
	}

	u, err := h.svc.Register(c.Request.Context(), r)
	if err != nil {
		msg, ok := message(registerMessages, err)
		if !ok {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		r.Password, r.Confirmation = "", ""
		page(c, http.StatusBadRequest, "register.html", gin.H{"error": msg, "form": r})
		return
	}

	if err := auth.Login(c, auth.Identity{UserID: u.ID, Username: u.Username}); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	redirectWithFlash(c, "/", "Registered successfully!")
}

func (h *attendanceHandler) logout(c *gin.Context) {
	_ = auth.Logout(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *attendanceHandler) profile(c *gin.Context) {
	id, _ := auth.CurrentIdentity(c)
	u, err := h.svc.User(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, attendance.ErrUserNotFound) {
			redirectWithFlash(c, "/", "User not found")
			return
		}
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	page(c, http.StatusOK, "profile.html", gin.H{"user": u})
}

var profileMessages = map[error]string{
	attendance.ErrMissingFields: "Username and email are required!",
	attendance.ErrUsernameTaken: "Username already taken.",
	attendance.ErrEmailTaken:    "Email already taken.",
	attendance.ErrUserNotFound:  "User not found",
}

func (h *attendanceHandler) updateProfile(c *gin.Context) {
	id, _ := auth.CurrentIdentity(c)
	u, err := h.svc.UpdateProfile(c.Request.Context(), id.UserID, attendance.ProfileUpdate{
		Username:   strings.TrimSpace(c.PostForm("username")),
		Email:      strings.TrimSpace(c.PostForm("email")),
		Phone:      strings.TrimSpace(c.PostForm("phone_number")),
		Department: strings.TrimSpace(c.PostForm("department")),
		Gender:     strings.TrimSpace(c.PostForm("gender")),
	})
	if err != nil {
		msg, ok := message(profileMessages, err)
		if !ok {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		redirectWithFlash(c, "/profile", msg)
		return
	}
	id.Username = u.Username
	_ = auth.Refresh(c, id)
	redirectWithFlash(c, "/profile", "Profile updated successfully!")
}

func (h *attendanceHandler) admins(c *gin.Context) {
	id, _ := auth.CurrentIdentity(c)
	ov, err := h.svc.AdminOverview(c.Request.Context(), id.UserID)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	page(c, http.StatusOK, "admins.html", gin.H{"sessions": ov.Sessions, "attendance": ov.Entries})
}

func (h *attendanceHandler) manageAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	subjects, err := h.svc.Subjects(ctx)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	data := gin.H{"subjects": subjects, "selected_subject": ""}

	if c.Request.Method == http.MethodPost {
		subject := strings.TrimSpace(c.PostForm("subject"))
		if subject == "" {
			redirectWithFlash(c, "/manage_attendance", "Please select a subject.")
			return
		}
		rows, err := h.svc.SubjectAttendance(ctx, subject)
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		data["selected_subject"] = subject
		data["attendance_data"] = rows
	}
	page(c, http.StatusOK, "manage_attendance.html", data)
}

func (h *attendanceHandler) generateQRForm(c *gin.Context) {
	page(c, http.StatusOK, "generate_qr.html", nil)
}

func (h *attendanceHandler) generateQR(c *gin.Context) {
	id, _ := auth.CurrentIdentity(c)
	sess, err := h.svc.IssueSession(c.Request.Context(), id.UserID, attendance.Payload{
		Date:           c.PostForm("date"),
		Semester:       c.PostForm("semester"),
		Slot:           c.PostForm("slot"),
		Subject:        c.PostForm("subject"),
		AttendanceType: c.PostForm("attendance_type"),
	})
	switch {
	case errors.Is(err, attendance.ErrMissingFields):
		redirectWithFlash(c, "/generate_qr", "All fields are required!")
		return
	case errors.Is(err, attendance.ErrCommaInField):
		redirectWithFlash(c, "/generate_qr", "Fields must not contain commas.")
		return
	case err != nil:
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	png, err := h.svc.SessionQR(sess)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	metrics.SessionsIssued.Inc()
	attachment(c, "attendance_qr.png", "image/png")
	c.Data(http.StatusOK, "image/png", png)
}

var checkInMessages = map[error]string{
	attendance.ErrInvalidPayload:  "Invalid QR code data.",
	attendance.ErrSessionNotFound: "Invalid session data.",
}

func (h *attendanceHandler) scanQR(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		redirectWithFlash(c, "/login", "You need to be logged in to mark attendance.")
		return
	}
	raw := strings.TrimSpace(c.PostForm("qr_data"))
	if raw == "" {
		redirectWithFlash(c, "/", "No QR code data found.")
		return
	}

	res, err := h.svc.CheckIn(c.Request.Context(), id.UserID, raw)
	if err != nil {
		msg, ok := message(checkInMessages, err)
		if !ok {
			logger.FromContext(c.Request.Context()).Error("check-in failed", zap.Error(err))
			msg = "Could not record attendance."
		}
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		redirectWithFlash(c, "/", msg)
		return
	}
	if res.Duplicate {
		metrics.CheckIns.WithLabelValues("duplicate").Inc()
		redirectWithFlash(c, "/", "Attendance already marked for this session.")
		return
	}
	metrics.CheckIns.WithLabelValues("recorded").Inc()
	redirectWithFlash(c, "/", "Attendance marked successfully!")
}

func (h *attendanceHandler) exportSettings(c *gin.Context) {
	page(c, http.StatusOK, "show_attendance_csv_settings.html", gin.H{"filter": attendance.Filter{}})
}

// forwardExport hands the posted filters to the download route; 307 keeps
// the method and form body.
func (h *attendanceHandler) forwardExport(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "/download_filtered_attendance_csv")
}

func (h *attendanceHandler) downloadCSV(c *gin.Context) {
	f := attendance.Filter{
		Date:           strings.TrimSpace(c.PostForm("date")),
		Semester:       strings.TrimSpace(c.PostForm("semester")),
		Slot:           strings.TrimSpace(c.PostForm("slot")),
		Subject:        strings.TrimSpace(c.PostForm("subject")),
		AttendanceType: strings.TrimSpace(c.PostForm("attendance_type")),
	}
	exp, err := h.svc.Export(c.Request.Context(), f)
	switch {
	case errors.Is(err, attendance.ErrMissingFields):
		page(c, http.StatusBadRequest, "show_attendance_csv_settings.html", gin.H{"error": "All fields are required.", "filter": f})
		return
	case errors.Is(err, attendance.ErrNoRecords):
		metrics.Exports.WithLabelValues("empty").Inc()
		page(c, http.StatusOK, "show_attendance_csv_settings.html", gin.H{"error": "No matching records found.", "filter": f})
		return
	case err != nil:
		logger.FromContext(c.Request.Context()).Error("export attendance", zap.Error(err))
		page(c, http.StatusInternalServerError, "show_attendance_csv_settings.html", gin.H{"error": "Error fetching attendance data.", "filter": f})
		return
	}

	metrics.Exports.WithLabelValues("file").Inc()
	attachment(c, exp.Filename, "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := exp.WriteCSV(c.Writer); err != nil {
		logger.FromContext(c.Request.Context()).Error("write csv", zap.Error(err))
	}
}

func (h *attendanceHandler) apiToken(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	u, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, attendance.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email and/or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	role := auth.RoleStudent
	if u.IsAdmin {
		role = auth.RoleAdmin
	}
	tok, err := auth.Issue(u.ID, role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok.AccessToken, "expires_at": tok.ExpiresAt.Unix()})
}

func (h *attendanceHandler) apiCheckIn(c *gin.Context) {
	var req struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qr_data required"})
		return
	}
	id, _ := auth.CurrentIdentity(c)

	res, err := h.svc.CheckIn(c.Request.Context(), id.UserID, req.QRData)
	switch {
	case errors.Is(err, attendance.ErrInvalidPayload):
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid qr code data"})
		return
	case errors.Is(err, attendance.ErrSessionNotFound):
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid session data"})
		return
	case err != nil:
		logger.FromContext(c.Request.Context()).Error("api check-in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check-in failed"})
		return
	}

	if res.Duplicate {
		metrics.CheckIns.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, res)
		return
	}
	metrics.CheckIns.WithLabelValues("recorded").Inc()
	c.JSON(http.StatusCreated, res)
}
