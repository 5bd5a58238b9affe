// Package api exposes the HTTP surface: account auth, room management
// and the websocket upgrade that hands connections to the hub.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/acorrad/go-huddle/internal/config"
	"github.com/acorrad/go-huddle/internal/database"
	"github.com/acorrad/go-huddle/internal/rooms"
	"github.com/acorrad/go-huddle/internal/server"
)

type HuddleApp struct {
	log            *log.Logger
	db             database.HuddleRepository
	hub            *server.Hub
	rooms          *rooms.Coordinator
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
	sid            *shortid.Shortid
}

func NewHuddleApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, coordinator *rooms.Coordinator, db database.HuddleRepository, cfg *config.Config) (*HuddleApp, error) {
	sid, err := shortid.New(2, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	s := &HuddleApp{
		log:            logger,
		db:             db,
		hub:            hub,
		rooms:          coordinator,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		sid:            sid,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRooms))
	mux.Handle("POST /api/rooms/code", s.authMiddleware(s.regenerateRoomCode))
	mux.Handle("PUT /api/rooms/lock", s.authMiddleware(s.setRoomLock))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}
	return s, nil
}

func (s *HuddleApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *HuddleApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
