package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/service"
	"github.com/noah-isme/classmirror-api/internal/utils"
)

// ProgressHandler exposes completion analytics. Live endpoints snapshot the
// upstream service; the insight endpoints read only the local cache.
type ProgressHandler struct {
	progress service.ProgressService
	insights service.InsightsService
	logger   zerolog.Logger
}

// NewProgressHandler creates a new handler instance.
func NewProgressHandler(progress service.ProgressService, insights service.InsightsService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		insights: insights,
		logger:   logger.With().Str("component", "progress_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher-facing analytics endpoints.
func (h *ProgressHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/courses/:courseID/progress", h.courseProgress)
	router.Get("/courses/:courseID/assignments/progress", h.assignmentProgress)
	router.Get("/courses/:courseID/completion", h.courseCompletion)
	router.Get("/students/overview", h.studentsOverview)
	router.Get("/overview", h.teacherOverview)
	router.Get("/at-risk", h.atRiskStudents)
}

// RegisterStudent attaches the student self-view endpoint.
func (h *ProgressHandler) RegisterStudent(router fiber.Router) {
	router.Get("/courses/:courseID/summary", h.studentSummary)
}

func (h *ProgressHandler) courseProgress(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	response, err := h.progress.CourseProgress(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to compute course progress")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "course progress computed", response)
}

func (h *ProgressHandler) assignmentProgress(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	response, err := h.progress.AssignmentProgress(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to compute assignment progress")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "assignment progress computed", response)
}

// courseCompletion serves the live completion rate by default; source=cache
// switches to the cache-only estimate, which considers only students with at
// least one cached submission.
func (h *ProgressHandler) courseCompletion(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	var response dto.CourseCompletionResponse
	var err error
	if strings.ToLower(c.Query("source")) == dto.CompletionSourceCache {
		response, err = h.insights.CourseCompletionFromCache(c.Context(), courseID)
	} else {
		response, err = h.progress.CourseCompletion(c.Context(), principalID, courseID)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to compute completion rate")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "completion rate computed", response)
}

func (h *ProgressHandler) studentsOverview(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)

	response, err := h.progress.StudentsOverview(c.Context(), principalID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build students overview")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "students overview computed", response)
}

func (h *ProgressHandler) teacherOverview(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)

	response, err := h.insights.TeacherOverview(c.Context(), principalID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build teacher overview")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "teacher overview computed", response)
}

func (h *ProgressHandler) atRiskStudents(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)

	response, err := h.insights.AtRiskStudents(c.Context(), principalID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to detect at-risk students")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "at-risk students computed", response)
}

func (h *ProgressHandler) studentSummary(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	response, err := h.progress.StudentCourseSummary(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to build student summary")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "student summary computed", response)
}
