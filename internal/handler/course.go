package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/module-progress-console/internal/importer"
	"github.com/maxviazov/module-progress-console/internal/middleware"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/internal/service"
	"github.com/maxviazov/module-progress-console/pkg/response"
)

const serviceTimeout = 5 * time.Second

// importTimeout covers parsing plus one upsert per course.
const importTimeout = 30 * time.Second

// importFormField is the multipart field carrying the workbook.
const importFormField = "file"

type CourseHandler struct {
	svc     service.CourseService
	counter repository.Counter
}

func NewCourseHandler(svc service.CourseService, counter repository.Counter) *CourseHandler {
	return &CourseHandler{svc: svc, counter: counter}
}

func (h *CourseHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/" + model.ResourceCourses)
	{
		g.GET("", middleware.ContentRange(model.ResourceCourses, h.counter), h.list)
		g.POST("", h.create)
		g.POST("/import", h.importWorkbook)
		g.GET("/:id", h.getByID)
		g.PUT("/:id", h.update)
		g.DELETE("/:id", h.delete)
	}
}

// list answers with a bare JSON array, which is what react-admin expects
// next to the Content-Range header the middleware already set.
func (h *CourseHandler) list(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), serviceTimeout)
	defer cancel()

	res, err := h.svc.ListCourses(ctx, q)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if res.Items == nil {
		res.Items = []model.Course{}
	}
	response.WriteData(c, http.StatusOK, res.Items)
}

func (h *CourseHandler) getByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), serviceTimeout)
	defer cancel()

	course, err := h.svc.GetCourse(ctx, c.Param("id"))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, course)
}

func (h *CourseHandler) create(c *gin.Context) {
	var body model.Course
	if err := c.ShouldBindJSON(&body); err != nil {
		response.WriteError(c, bodyError(err))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), serviceTimeout)
	defer cancel()

	course, err := h.svc.CreateCourse(ctx, body)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, course)
}

func (h *CourseHandler) update(c *gin.Context) {
	var body model.Course
	if err := c.ShouldBindJSON(&body); err != nil {
		response.WriteError(c, bodyError(err))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), serviceTimeout)
	defer cancel()

	course, err := h.svc.UpdateCourse(ctx, c.Param("id"), body)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, course)
}

// delete returns the removed record; react-admin reads it back.
func (h *CourseHandler) delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), serviceTimeout)
	defer cancel()

	course, err := h.svc.DeleteCourse(ctx, c.Param("id"))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, course)
}

func (h *CourseHandler) importWorkbook(c *gin.Context) {
	fh, err := c.FormFile(importFormField)
	if err != nil {
		response.WriteError(c, service.NewInvalidInput([]service.FieldError{{Field: importFormField, Message: "a workbook upload is required"}}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.WriteError(c, err)
		return
	}
	defer f.Close()

	courses, err := importer.ParseWorkbook(f)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), importTimeout)
	defer cancel()

	summary, err := h.svc.ImportCourses(ctx, courses)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, summary)
}

func bodyError(err error) error {
	return service.NewInvalidInput([]service.FieldError{{Field: "body", Message: "must be a valid JSON course: " + err.Error()}})
}
