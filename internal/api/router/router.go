package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quangtm-dev/dirsubmit-be/internal/api/handler"
)

// Config carries router-level settings
type Config struct {
	JWTSecret string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, cfg *Config) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint, unauthenticated
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "submission-queue-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	// Every API route requires a worker/operator credential
	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg.JWTSecret, deps.Logger))
	{
		// Worker contract: claim, report, complete
		q := v1.Group("/queue")
		{
			q.POST("/claim", jobHandler.ClaimJob)
			q.POST("/jobs/:job_id/results", jobHandler.ReportResult)
			q.POST("/jobs/:job_id/complete", jobHandler.CompleteJob)
		}

		// Intake + monitoring read model
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.GET("/:job_id/progress", jobHandler.GetJobProgress)
			jobs.GET("/:job_id/results", jobHandler.GetJobResults)
		}

		v1.GET("/monitor/stuck", jobHandler.ListStuckJobs)
	}

	return r
}
