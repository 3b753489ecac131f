// Package server is the thin HTTP adapter over the core lifecycle
// components. Handlers parse requests and shape responses; all real work
// happens in the ingest, store, transcode and sweeper packages.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/store"
	"github.com/screenbin/screenbin/internal/transcode"
)

// Server wires the HTTP surface to the core components
type Server struct {
	cfg      *config.Config
	ingestor *ingest.Ingestor
	records  *store.RecordingStore
	blobs    *ingest.BlobStore
	cache    *transcode.Cache
	router   *gin.Engine
}

// New creates a server over the given components
func New(cfg *config.Config, ingestor *ingest.Ingestor, records *store.RecordingStore, blobs *ingest.BlobStore, cache *transcode.Cache) *Server {
	s := &Server{
		cfg:      cfg,
		ingestor: ingestor,
		records:  records,
		blobs:    blobs,
		cache:    cache,
	}
	s.router = s.setupRouter()
	return s
}

// Router returns the configured gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP listener and blocks until it fails
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	return s.router.Run(addr)
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = s.cfg.Storage.MaxUploadSize

	if s.cfg.Server.EnableCORS {
		r.Use(corsMiddleware())
	}

	// Presentation pages
	r.GET("/", s.handleIndex)
	r.GET("/watch/:slug", s.handleWatchPage)

	// API
	api := r.Group("/api")
	{
		api.POST("/upload/video", s.handleUploadVideo)
		api.POST("/upload/screenshot", s.handleUploadScreenshot)
		api.GET("/video/:slug", s.handleGetBySlug)
		api.GET("/video/file/:filename", s.handlePlayback)
		api.GET("/videos", s.handleListVideos)
		api.GET("/images", s.handleListImages)
		api.GET("/health", s.handleHealth)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// corsMiddleware allows cross-origin requests from the recorder clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
