package api

import (
	"embed"
	"html/template"
)

//go:embed static/dashboard.html
var apiStaticFS embed.FS

// dashboardTemplate renders GET /dashboard.
var dashboardTemplate = template.Must(template.ParseFS(apiStaticFS, "static/dashboard.html"))
