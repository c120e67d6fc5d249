package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/service"
	"github.com/noah-isme/classmirror-api/internal/utils"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
)

// ClassroomHandler exposes the mirrored classroom entities. Every read goes
// through the sync layer, so responses are live and the cache is refreshed as
// a side effect.
type ClassroomHandler struct {
	sync   service.SyncService
	logger zerolog.Logger
}

// NewClassroomHandler creates a new handler instance.
func NewClassroomHandler(sync service.SyncService, logger zerolog.Logger) *ClassroomHandler {
	return &ClassroomHandler{
		sync:   sync,
		logger: logger.With().Str("component", "classroom_handler").Logger(),
	}
}

// Register attaches the classroom endpoints.
func (h *ClassroomHandler) Register(router fiber.Router) {
	router.Get("/courses", h.listCourses)
	router.Get("/courses/:courseID", h.getCourse)
	router.Get("/courses/:courseID/assignments", h.listAssignments)
	router.Get("/courses/:courseID/roster", h.listRoster)
	router.Get("/courses/:courseID/teachers", h.listTeachers)
	router.Get("/courses/:courseID/assignments/:assignmentID/submissions", h.listSubmissions)
	router.Post("/courses/:courseID/sync", h.syncCourse)
}

func (h *ClassroomHandler) listCourses(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)

	scope := classroom.ScopeAll
	switch strings.ToLower(c.Query("scope")) {
	case "teaching":
		scope = classroom.ScopeTeaching
	case "enrolled":
		scope = classroom.ScopeEnrolled
	}

	courses, err := h.sync.ListCourses(c.Context(), principalID, scope)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list courses")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "courses retrieved", dto.NewCourseListResponse(courses))
}

func (h *ClassroomHandler) getCourse(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	course, err := h.sync.GetCourse(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to fetch course")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "course retrieved", dto.NewCourseResponse(course))
}

func (h *ClassroomHandler) listAssignments(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	assignments, err := h.sync.ListAssignments(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to list assignments")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "assignments retrieved", dto.NewAssignmentListResponse(assignments))
}

func (h *ClassroomHandler) listRoster(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	roster, err := h.sync.ListRoster(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to list roster")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "roster retrieved", dto.NewRosterResponse(roster))
}

func (h *ClassroomHandler) listTeachers(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	teachers, err := h.sync.ListCoTeachers(c.Context(), principalID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to list teachers")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "teachers retrieved", teachers)
}

// listSubmissions accepts an assignment id of "-" to cover every assignment
// in the course, and an optional student_id query to narrow to one student.
func (h *ClassroomHandler) listSubmissions(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")
	assignmentID := c.Params("assignmentID")
	studentID := c.Query("student_id")

	submissions, err := h.sync.ListSubmissions(c.Context(), principalID, courseID, assignmentID, studentID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to list submissions")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *ClassroomHandler) syncCourse(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	courseID := c.Params("courseID")

	if err := h.sync.SyncCourse(c.Context(), principalID, courseID); err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("course sync failed")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "course synchronized", nil)
}
