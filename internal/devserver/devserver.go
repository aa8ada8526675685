// Package devserver exposes the scan/parse/analyze/complete pipeline and
// catalog introspection over HTTP and a websocket, for local development and
// manual exercising of the engine (SPEC_FULL.md §2's external-interface
// analogue of spec.md §6.1's worked examples). It is not part of the core
// engine: every SPEC_FULL.md operation it calls is exported from
// internal/script and internal/catalog untouched.
//
// Grounded on the teacher's internal/api package: chi.NewRouter with a
// websocket route mounted ahead of the logging middleware group (so an
// upgrade isn't wrapped by a response-status logger that never sees a
// status code), google/uuid for per-script identifiers in place of the
// teacher's per-connection client identifiers, gorilla/websocket for a
// live completion stream in place of the teacher's live-query subscription
// stream.
package devserver

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/registry"
	"github.com/dashql/dashql-go/internal/script"
)

// Server is the dev HTTP surface over one shared Catalog/Registry.
type Server struct {
	mu      sync.Mutex
	cat     *catalog.Catalog
	reg     *registry.Registry
	scripts map[string]*script.Script
	nextID  uint32
}

// New returns a Server sharing cat and reg (either may be nil, in which case
// scripts are analyzed standalone and never indexed for restriction/
// transform lookups).
func New(cat *catalog.Catalog, reg *registry.Registry) *Server {
	return &Server{
		cat:     cat,
		reg:     reg,
		scripts: make(map[string]*script.Script),
	}
}

// Routes builds the router (spec.md's Non-goals exclude a bundled frontend,
// so unlike the teacher's routes.go there is no static file server mounted
// here).
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Mounted ahead of the logging middleware group, same ordering
	// rationale as the teacher's routes.go comment: a websocket upgrade
	// must not be wrapped by a response-status-capturing writer.
	r.Get("/api/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(LoggingMiddleware)

		r.Route("/api/scripts", func(r chi.Router) {
			r.Post("/", s.handleCreateScript)
			r.Put("/{id}/text", s.handleReplaceText)
			r.Post("/{id}/edit", s.handleEdit)
			r.Get("/{id}/analyze", s.handleAnalyze)
			r.Get("/{id}/complete", s.handleComplete)
			r.Delete("/{id}", s.handleCloseScript)
		})
		r.Get("/api/catalog", s.handleCatalog)
	})

	return r
}

// newScript allocates a fresh script under a uuid the caller gets back, and
// a monotonic external id internal/catalog and internal/registry key on.
func (s *Server) newScript() (string, *script.Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := uuid.NewString()
	sc := script.New(s.nextID, s.cat, s.reg)
	s.scripts[id] = sc
	return id, sc
}

func (s *Server) lookupScript(id string) (*script.Script, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scripts[id]
	return sc, ok
}

func (s *Server) dropScript(id string) {
	s.mu.Lock()
	sc, ok := s.scripts[id]
	delete(s.scripts, id)
	s.mu.Unlock()
	if ok {
		sc.Close()
	}
}
