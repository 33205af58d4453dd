package questionnaire

import (
	"github.com/gorilla/mux"

	"github.com/amoura-app/amoura-backend/internal/identity"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *identity.Middleware) {
	api := router.PathPrefix("/api/v1/questionnaires").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.Submit).Methods("POST")
	api.HandleFunc("/me", handler.GetMine).Methods("GET")
	api.HandleFunc("/me", handler.Delete).Methods("DELETE")
	api.HandleFunc("/compatibility/{userId:[0-9]+}", handler.Compatibility).Methods("GET")
	api.HandleFunc("/matches", handler.Matches).Methods("GET")
}
