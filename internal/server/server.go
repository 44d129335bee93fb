/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the coach
service into the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"traipulse/internal/coach"
	"traipulse/internal/database"
	"traipulse/internal/utility"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the repository for health checks.
	db database.Repository

	coach *coach.Handler
	hub   *utility.Hub

	// secret is the HMAC key for bearer tokens.
	secret []byte

	startTime time.Time

	// Echo is the underlying web framework instance.
	*echo.Echo
}

type Deps struct {
	Port   int
	DB     database.Repository
	Coach  *coach.Service
	Hub    *utility.Hub
	Secret []byte
}

// NewServer returns a configured *http.Server with production network
// timeouts.
func NewServer(d Deps) *http.Server {
	port := d.Port
	if port == 0 {
		port = 8080
	}

	newApp := &Server{
		port:      port,
		db:        d.DB,
		coach:     coach.NewHandler(d.Coach, d.Hub),
		hub:       d.Hub,
		secret:    d.Secret,
		startTime: time.Now(),
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
