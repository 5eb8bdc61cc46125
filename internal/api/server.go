package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Auth endpoints (open; the login page needs them)
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/logout", h.Logout).Methods("POST")

	// Direct dispatch endpoints
	api.HandleFunc("/blob/upload-file", h.UploadFile).Methods("POST")
	api.HandleFunc("/fabric/run-notebook", h.RunNotebook).Methods("POST")

	// Run workflow endpoints (session required)
	runsAPI := api.PathPrefix("/runs").Subrouter()
	runsAPI.Use(RequireSession(h.gate))
	runsAPI.HandleFunc("", h.ListRuns).Methods("GET")
	runsAPI.HandleFunc("/drafts", h.CreateDraft).Methods("POST")
	runsAPI.HandleFunc("/drafts/{id}", h.GetDraft).Methods("GET")
	runsAPI.HandleFunc("/drafts/{id}/confirm", h.ConfirmDraft).Methods("POST")

	// Pages: static files behind the session gate. Unauthenticated page
	// requests bounce to the login page at "/".
	r.PathPrefix("/").Handler(PageGate(h.gate)(http.FileServer(http.Dir(h.staticDir))))

	return r
}
