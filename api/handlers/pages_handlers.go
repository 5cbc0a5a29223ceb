package handlers

import (
	"net/http"

	"fusionguard/core/guard"
	"fusionguard/core/rbac"
)

// PageView describes a view for the client to render. Layout and styling are
// left to the client.
type PageView struct {
	View   string    `json:"view"`
	Title  string    `json:"title"`
	Path   string    `json:"path"`
	Area   string    `json:"area"`
	Role   rbac.Role `json:"role"`
	Next   string    `json:"next,omitempty"`
	Stream string    `json:"stream,omitempty"`
	Data   []string  `json:"data,omitempty"`
}

type page struct {
	view, title, area, stream string
	data                      []string
}

const telemetryStreamPath = "/api/telemetry/stream"

var pages = map[string]page{
	"/":                     {view: "public.landing", title: "FusionGuard", area: "public"},
	"/architecture":         {view: "public.architecture", title: "System Architecture", area: "public"},
	"/machine-learning":     {view: "public.machine_learning", title: "Machine Learning", area: "public"},
	"/experimental-results": {view: "public.experimental_results", title: "Experimental Results", area: "public"},
	"/research-paper":       {view: "public.research_paper", title: "Research Paper", area: "public"},
	guard.LoginPath:         {view: "public.login", title: "Operator Login", area: "public"},

	guard.UserHomePath: {view: "user.dashboard", title: "Operator Dashboard", area: "user", stream: telemetryStreamPath,
		data: []string{"/api/telemetry/snapshot", "/api/telemetry/events"}},
	"/user/logs":       {view: "user.logs", title: "Detection Logs", area: "user", data: []string{"/api/telemetry/events"}},
	"/user/recordings": {view: "user.recordings", title: "Recordings", area: "user"},
	"/user/alerts":     {view: "user.alerts", title: "Alerts", area: "user", data: []string{"/api/telemetry/events"}},

	guard.AdminHomePath: {view: "admin.dashboard", title: "Admin Dashboard", area: "admin", stream: telemetryStreamPath,
		data: []string{"/api/telemetry/snapshot", "/api/admin/identities", "/api/admin/system/mode"}},
	"/admin/users":    {view: "admin.users", title: "User Management", area: "admin", data: []string{"/api/admin/identities"}},
	"/admin/controls": {view: "admin.controls", title: "System Controls", area: "admin", data: []string{"/api/admin/system/mode"}},
	"/admin/settings": {view: "admin.settings", title: "Settings", area: "admin", data: []string{"/api/admin/settings"}},
}

// PagePaths lists every path served by PagesHandler.Render.
func PagePaths() []string {
	out := make([]string, 0, len(pages))
	for p := range pages {
		out = append(out, p)
	}
	return out
}

type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Render answers with the descriptor of the requested view. Access has
// already been decided by the guard middleware.
func (h *PagesHandler) Render(w http.ResponseWriter, r *http.Request) {
	p, ok := pages[r.URL.Path]
	if !ok {
		http.Redirect(w, r, guard.PublicHome, http.StatusFound)
		return
	}
	role := rbac.RoleGuest
	if sess := SessionFrom(r.Context()); sess != nil {
		role = sess.Current().Role
	}
	view := PageView{View: p.view, Title: p.title, Path: r.URL.Path, Area: p.area, Role: role, Stream: p.stream, Data: p.data}
	if r.URL.Path == guard.LoginPath {
		if next, ok := guard.SafeNext(r.URL.Query().Get(guard.NextParam)); ok {
			view.Next = next
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// AreaRoot sends /user and /admin to their dashboards.
func (h *PagesHandler) AreaRoot(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// NotFound sends unknown views back to the landing page.
func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.PublicHome, http.StatusFound)
}
