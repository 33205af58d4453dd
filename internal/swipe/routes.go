package swipe

import (
	"github.com/gorilla/mux"

	"github.com/amoura-app/amoura-backend/internal/identity"
)

func RegisterRoutes(router *mux.Router, handler *Handler, hub *Hub, authMiddleware *identity.Middleware) {
	api := router.PathPrefix("/api/v1/swipes").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.Swipe).Methods("POST")
	api.HandleFunc("/session", handler.Session).Methods("GET")
	api.HandleFunc("/refresh", handler.Refresh).Methods("POST")
	api.HandleFunc("/super-likes", handler.Grant).Methods("POST")

	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(authMiddleware.Authenticate)
	ws.HandleFunc("", hub.ServeWS).Methods("GET")
}
