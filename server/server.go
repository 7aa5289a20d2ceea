// Package server implements the cfgparse HTTP API: register a grammar,
// fetch it back, run it through the earley or cyk engine against an input
// string, and forget it. Routes are mounted on a chi.Router, handlers are
// written as EndpointFunc values returning a result.Result response
// envelope, and path parameters are read via chi.URLParam.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dekarrin/cfgparse/server/middle"
	"github.com/dekarrin/cfgparse/server/result"
	"github.com/dekarrin/cfgparse/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PathPrefix is the prefix every route in the API is mounted under.
const PathPrefix = "/api/v1"

// Server holds the dependencies needed to answer API requests and exposes
// the assembled router via Router.
type Server struct {
	db          store.Store
	secret      []byte
	unauthDelay time.Duration
	router      chi.Router
}

// New builds a Server backed by db, using secret to sign/verify bearer JWTs
// and unauthDelay to pad the response time of any unauthenticated/forbidden
// request.
func New(db store.Store, secret []byte, unauthDelay time.Duration) *Server {
	srv := &Server{
		db:          db,
		secret:      secret,
		unauthDelay: unauthDelay,
	}
	srv.router = srv.routes()
	return srv
}

func (srv *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middle.DontPanic())

	auth := requireAuth(srv)

	r.Route(PathPrefix, func(r chi.Router) {
		r.Route("/grammars", func(r chi.Router) {
			r.With(auth).Post("/", srv.endpoint(srv.createGrammar))
			r.Get("/", srv.endpoint(srv.listGrammars))
			r.Get("/{id}", srv.endpoint(srv.getGrammar))
			r.With(auth).Delete("/{id}", srv.endpoint(srv.deleteGrammar))
			r.Post("/{id}/parse", srv.endpoint(srv.parseGrammar))
		})
	})

	return r
}

func requireAuth(srv *Server) func(http.Handler) http.Handler {
	return middle.RequireAuth(srv.db.APIKeys(), srv.secret, srv.unauthDelay)
}

// Router returns the assembled http.Handler, ready to pass to
// http.ListenAndServe.
func (srv *Server) Router() http.Handler {
	return srv.router
}

// ListenAndServe starts the server listening on addr, blocking until it
// returns an error (matching cmd/tqserver/main.go's ServeForever call site,
// generalized to return the error instead of swallowing it).
func (srv *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, srv.router)
}

// EndpointFunc is the signature every route handler is written against;
// result.Result carries everything needed to write and log the HTTP
// response.
type EndpointFunc func(req *http.Request) result.Result

func (srv *Server) endpoint(ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer panicTo500(w, req)

		r := ep(req)
		if r.Status == 0 {
			http.Error(w, "An internal server error occurred", http.StatusInternalServerError)
			return
		}

		if err := r.PrepareMarshaledResponse(); err != nil {
			r = result.Err(r.Status, "An internal server error occurred", "could not marshal JSON response: %s", err.Error())
		}

		if r.IsErr {
			time.Sleep(srv.unauthDelay)
		}

		r.WriteResponse(w)
		r.Log(req)
	}
}

func panicTo500(w http.ResponseWriter, req *http.Request) {
	if panicErr := recover(); panicErr != nil {
		r := result.TextErr(
			http.StatusInternalServerError,
			"An internal server error occurred",
			fmt.Sprintf("panic: %v", panicErr),
		)
		r.WriteResponse(w)
		r.Log(req)
	}
}

// requireIDParam gets the "id" URL parameter as a uuid.UUID, panicking
// (caught by panicTo500) if it is missing or malformed, matching
// server/api/api.go's requireIDParam.
func requireIDParam(req *http.Request) uuid.UUID {
	idStr := chi.URLParam(req, "id")
	if idStr == "" {
		panic("id param does not exist")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		panic("id param is not a valid UUID: " + err.Error())
	}
	return id
}
