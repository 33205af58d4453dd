package identity

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *Middleware) {
	// Public auth endpoints
	auth := router.PathPrefix("/api/v1/auth").Subrouter()
	auth.HandleFunc("/signup", handler.Signup).Methods("POST")
	auth.HandleFunc("/signin", handler.Signin).Methods("POST")
	auth.HandleFunc("/refresh", handler.Refresh).Methods("POST")
	auth.HandleFunc("/logout", handler.Logout).Methods("POST")

	// Protected account endpoints
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/me", handler.Me).Methods("GET")
	api.HandleFunc("/me/deactivate", handler.Deactivate).Methods("POST")
}
