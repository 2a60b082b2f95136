package server

import (
	"fmt"
	"net/http"

	"github.com/agendauth/agendauth/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Middleware interface {
	Middleware() gin.HandlerFunc
	Init() error
	Name() string
}

type Controller interface {
	SetupRoutes()
}

type Server struct {
	config config.ServerConfig
	router *gin.Engine
}

// NewServer assembles the engine. Routes are registered by the controllers
// the bootstrap hands in, global middleware runs in the given order.
func NewServer(cfg config.ServerConfig, middlewares []Middleware) (*Server, error) {
	router := gin.New()

	// Anything outside a route's declared method list is a 405
	router.HandleMethodNotAllowed = true

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	for _, middleware := range middlewares {
		log.Debug().Str("middleware", middleware.Name()).Msg("Initializing middleware")
		err := middleware.Init()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize middleware %s: %w", middleware.Name(), err)
		}
		router.Use(middleware.Middleware())
	}

	return &Server{
		config: cfg,
		router: router,
	}, nil
}

// Group returns a route group for controllers to register under.
func (s *Server) Group(path string, middlewares ...Middleware) *gin.RouterGroup {
	handlers := make([]gin.HandlerFunc, 0, len(middlewares))
	for _, middleware := range middlewares {
		handlers = append(handlers, middleware.Middleware())
	}
	return s.router.Group(path, handlers...)
}

func (s *Server) Engine() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Int("port", s.config.Port).Msg("Starting server")
	return s.router.Run(fmt.Sprintf("%s:%d", s.config.Address, s.config.Port))
}
