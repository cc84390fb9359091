// Package web provides API routes for the web server.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
)

// DatabaseStatus reports the connection state of the database
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// BotStatus reports the gateway state
type BotStatus interface {
	IsReady() bool
	GuildCount() int
}

// PipelineControl is the pipeline surface exposed over HTTP
type PipelineControl interface {
	Snapshot() pipeline.Status
	Resume() bool
}

// API are the handlers' dependencies. Nil members report as offline.
type API struct {
	DB       DatabaseStatus
	Bot      BotStatus
	Pipeline PipelineControl
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, a API) {
	api := s.Group("/api")
	{
		api.GET("/status", a.statusHandler)
		api.GET("/health", healthHandler)
		api.GET("/pipeline", s.requireToken(), a.pipelineHandler)
		api.POST("/pipeline/resume", s.requireToken(), a.resumeHandler)
	}
}

// statusHandler returns the bot and database status
func (a API) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "Disconnected", false
	if a.DB != nil {
		dbStatus, dbOnline = a.DB.GetStatus()
	}

	botOnline, guilds := false, 0
	if a.Bot != nil {
		botOnline = a.Bot.IsReady()
		guilds = a.Bot.GuildCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.Version,
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
			"guilds":   guilds,
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Zenox Go is running",
	})
}

func (a API) pipelineHandler(c *gin.Context) {
	if a.Pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pipeline unavailable"})
		return
	}
	c.JSON(http.StatusOK, a.Pipeline.Snapshot())
}

func (a API) resumeHandler(c *gin.Context) {
	if a.Pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pipeline unavailable"})
		return
	}
	resumed := a.Pipeline.Resume()
	c.JSON(http.StatusOK, gin.H{
		"resumed": resumed,
		"state":   a.Pipeline.Snapshot().State,
	})
}
