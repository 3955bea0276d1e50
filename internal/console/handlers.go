package console

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/parishdesk/console/internal/config"
	"github.com/parishdesk/console/internal/errors"
	"github.com/parishdesk/console/internal/httputil"
	"github.com/parishdesk/console/internal/identity"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><title>{{.Title}} - ParishDesk</title></head>
<body>
{{range .Notices}}<p class="notice">{{.}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Identity}}
<header>
  <span>{{.Identity.Name}} ({{.Identity.Email}})</span>
  <nav>{{range .Nav}}<a href="{{.Path}}">{{.Title}}</a> {{end}}</nav>
  <form method="post" action="/logout"><button>Sign out</button></form>
</header>
{{end}}
<main>
<h1>{{.Title}}</h1>
{{if .LoginForm}}
<form method="post" action="/login">
  <input name="email" type="email" placeholder="Email" required>
  <input name="password" type="password" placeholder="Password" required>
  <button>Sign in</button>
</form>
{{end}}
{{if .Branches}}
<form method="post" action="/branches/switch">
  <select name="branchId">
    <option value="0">Headquarters</option>
    {{range .Branches}}<option value="{{.ID}}">{{.Name}}</option>{{end}}
  </select>
  <button>Switch branch</button>
</form>
<ul>{{range .Branches}}<li>{{.Name}} — {{.Location}}</li>{{end}}</ul>
{{end}}
{{if .Members}}<ul>{{range .Members}}<li>{{.FirstName}} {{.LastName}} &lt;{{.Email}}&gt;</li>{{end}}</ul>{{end}}
{{if .Events}}<ul>{{range .Events}}<li>{{.Name}} at {{.Venue}}</li>{{end}}</ul>{{end}}
</main>
</body>
</html>`))

type pageData struct {
	Title     string
	Notices   []string
	Error     string
	Identity  *identity.Identity
	Nav       []config.Page
	LoginForm bool
	Branches  interface{}
	Members   interface{}
	Events    interface{}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("render failed")
	}
}

// visibleNav filters the menu to entries the identity may see.
func (s *Server) visibleNav(id *identity.Identity) []config.Page {
	if id == nil {
		return nil
	}
	var pages []config.Page
	for _, p := range s.nav.Pages {
		if len(p.Roles) == 0 || id.HasRole(p.Roles...) {
			pages = append(pages, p)
		}
	}
	return pages
}

// handleError routes pipeline failures: authorization failures land on the
// login page (the session controller has already torn down), everything
// else renders the page's own error state.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, title string, err error) {
	if errors.IsUnauthorized(err) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	message := "Failed to load " + title
	if serviceErr := errors.GetServiceError(err); serviceErr != nil {
		message = serviceErr.Message
	}
	if s.logger != nil {
		s.logger.WithContext(r.Context()).WithError(err).Warn("page load failed")
	}
	s.render(w, status, pageData{
		Title:    title,
		Notices:  s.flash.Drain(),
		Error:    message,
		Identity: s.sessions.Identity(),
		Nav:      s.visibleNav(s.sessions.Identity()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "console",
		"state":     s.sessions.State().String(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{
		Title:     "Sign in",
		Notices:   s.flash.Drain(),
		LoginForm: true,
	})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Title: "Sign in", LoginForm: true, Error: "Invalid form submission"})
		return
	}

	err := s.sessions.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		// A rejected login is not a teardown: stay on the login view
		// with the server's message.
		message := "Sign-in failed"
		status := http.StatusUnauthorized
		if serviceErr := errors.GetServiceError(err); serviceErr != nil {
			message = serviceErr.Message
			status = serviceErr.HTTPStatus
		}
		s.render(w, status, pageData{Title: "Sign in", LoginForm: true, Error: message})
		return
	}

	// Clear any navigation intent left over from a previous teardown.
	s.redirects.Consume()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(true)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	branches, err := s.branches.List(r.Context())
	if err != nil {
		s.handleError(w, r, "Dashboard", err)
		return
	}
	id := s.sessions.Identity()
	s.render(w, http.StatusOK, pageData{
		Title:    "Dashboard",
		Notices:  s.flash.Drain(),
		Identity: id,
		Nav:      s.visibleNav(id),
		Branches: branches,
	})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.handleError(w, r, "Members", err)
		return
	}
	id := s.sessions.Identity()
	s.render(w, http.StatusOK, pageData{
		Title:    "Members",
		Notices:  s.flash.Drain(),
		Identity: id,
		Nav:      s.visibleNav(id),
		Members:  members,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.Upcoming(r.Context(), 30)
	if err != nil {
		s.handleError(w, r, "Events", err)
		return
	}
	id := s.sessions.Identity()
	s.render(w, http.StatusOK, pageData{
		Title:    "Events",
		Notices:  s.flash.Drain(),
		Identity: id,
		Nav:      s.visibleNav(id),
		Events:   events,
	})
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.branches.List(r.Context())
	if err != nil {
		s.handleError(w, r, "Branches", err)
		return
	}
	id := s.sessions.Identity()
	s.render(w, http.StatusOK, pageData{
		Title:    "Branches",
		Notices:  s.flash.Drain(),
		Identity: id,
		Nav:      s.visibleNav(id),
		Branches: branches,
	})
}

func (s *Server) handleBranchSwitch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	branchID, err := strconv.Atoi(r.PostFormValue("branchId"))
	if err != nil {
		s.handleError(w, r, "Branches", errors.InvalidFormat("branchId", "must be an integer"))
		return
	}

	if err := s.sessions.SwitchBranch(branchID); err != nil {
		s.handleError(w, r, "Branches", err)
		return
	}

	// The full-reload protocol: re-enter the shell from the top so no
	// page keeps data fetched under the old scope.
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
