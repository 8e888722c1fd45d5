package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/internal/service"
)

// Register mounts all public routes on the given engine.
// counter sizes the course collection for the Content-Range header on listings.
func Register(r *gin.Engine, pinger Pinger, counter repository.Counter, courseSvc service.CourseService) {
	h := NewHealthHandler(pinger)

	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	RegisterDocs(r)

	api := r.Group(APIV1Prefix)
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		NewCourseHandler(courseSvc, counter).Register(api)
	}
}
