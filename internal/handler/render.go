package handler

import (
	"embed"
	"html/template"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendvault/internal/auth"
)

//go:embed templates
var templatesFS embed.FS

var funcs = template.FuncMap{
	"markedOn": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

func loadTemplates(patterns ...string) *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, patterns...))
}

// page renders name with the current identity and pending flashes.
func page(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if id, ok := auth.CurrentIdentity(c); ok {
		data["identity"] = id
	}
	if _, ok := data["flashes"]; !ok {
		data["flashes"] = auth.Flashes(c)
	}
	c.HTML(status, name, data)
}

// redirectWithFlash queues msg and sends the browser to location.
func redirectWithFlash(c *gin.Context, location, msg string) {
	auth.Flash(c, msg)
	c.Redirect(http.StatusFound, location)
}

// attachment sends data as a file download named filename.
func attachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("Content-Type", contentType)
}
