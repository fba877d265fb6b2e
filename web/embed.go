// Package web holds the console's HTML templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"strconv"
	"time"

	"github.com/noah-isme/academy-admin/pkg/format"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page template with the shared helper functions.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}

// Static returns the static asset tree rooted at static/.
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

// FuncMap exposes the formatting helpers to templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":     format.Date,
		"formatDateTime": format.DateTime,
		"truncate":       format.Truncate,
		"initials":       format.Initials,
		"fileSize":       format.FileSize,
		"youtubeThumb":   format.YouTubeThumbnail,
		"count": func(n *int) string {
			if n == nil {
				return "-"
			}
			return strconv.Itoa(*n)
		},
		"timePtr": func(t *time.Time) string {
			if t == nil {
				return "N/A"
			}
			return format.DateTime(*t)
		},
	}
}
