// Package console serves the operator-facing web shell: the login page,
// the dashboard and the list pages. Every piece of data shown here is
// fetched through the request pipeline; the shell itself holds no domain
// state.
package console

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/parishdesk/console/internal/chms"
	"github.com/parishdesk/console/internal/config"
	"github.com/parishdesk/console/internal/logging"
	"github.com/parishdesk/console/internal/metrics"
	"github.com/parishdesk/console/internal/middleware"
	"github.com/parishdesk/console/internal/session"
)

// Deps are the collaborators the shell renders over.
type Deps struct {
	Sessions  *session.Controller
	Branches  *chms.BranchService
	Members   *chms.MemberService
	Events    *chms.EventService
	Nav       *config.Navigation
	Flash     *Flash
	Redirects *Redirector
	Logger    *logging.Logger
	// LoginLimiter throttles the login endpoint; optional.
	LoginLimiter *middleware.RateLimiter
}

// Server is the console HTTP shell.
type Server struct {
	router    *mux.Router
	sessions  *session.Controller
	branches  *chms.BranchService
	members   *chms.MemberService
	events    *chms.EventService
	nav       *config.Navigation
	flash     *Flash
	redirects *Redirector
	logger    *logging.Logger
}

// New builds the shell and its routing table.
func New(deps Deps) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		sessions:  deps.Sessions,
		branches:  deps.Branches,
		members:   deps.Members,
		events:    deps.Events,
		nav:       deps.Nav,
		flash:     deps.Flash,
		redirects: deps.Redirects,
		logger:    deps.Logger,
	}
	if s.nav == nil {
		s.nav = config.DefaultNavigation()
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	login := http.HandlerFunc(s.handleLoginSubmit)
	if deps.LoginLimiter != nil {
		s.router.Handle("/login", deps.LoginLimiter.Handler(login)).Methods(http.MethodPost)
	} else {
		s.router.Handle("/login", login).Methods(http.MethodPost)
	}

	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.guard)
	protected.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	protected.HandleFunc("/members", s.handleMembers).Methods(http.MethodGet)
	protected.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	protected.HandleFunc("/branches", s.handleBranches).Methods(http.MethodGet)
	protected.HandleFunc("/branches/switch", s.handleBranchSwitch).Methods(http.MethodPost)
	protected.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	return s
}

// Handler returns the shell wrapped with request logging and metrics.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.logger != nil {
		h = middleware.LoggingMiddleware(s.logger)(h)
	}
	return metrics.InstrumentHandler(h)
}

// guard blocks until session restore has resolved, then lets only
// authenticated sessions through. While restore is still running the
// caller sees a neutral loading response, never protected content.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-s.sessions.Ready():
		case <-r.Context().Done():
			w.Header().Set("Retry-After", "1")
			http.Error(w, "console is starting", http.StatusServiceUnavailable)
			return
		}

		if target := s.redirects.Consume(); target != "" && target != r.URL.Path {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		if s.sessions.State() != session.Authenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
