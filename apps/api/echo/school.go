package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core/academic"
	"github.com/pobon98/school-management/core/announcement"
	"github.com/pobon98/school-management/core/assignment"
	"github.com/pobon98/school-management/core/event"
	"github.com/pobon98/school-management/core/student"
	"github.com/pobon98/school-management/core/teacher"
)

type schoolApi struct {
	students      *student.Service
	teachers      *teacher.Service
	events        *event.Service
	announcements *announcement.Service
	assignments   *assignment.Service
	academics     *academic.Service
	validate      *validator.Validate
}

func newSchoolApi(deps ServerDeps) *schoolApi {
	return &schoolApi{
		students:      deps.StudentSvc,
		teachers:      deps.TeacherSvc,
		events:        deps.EventSvc,
		announcements: deps.AnnouncementSvc,
		assignments:   deps.AssignmentSvc,
		academics:     deps.AcademicSvc,
		validate:      deps.Validate,
	}
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)
	sg := g.Group("/students", jwt)
	sg.GET("", api.listStudents)
	sg.POST("", api.createStudent, adminMiddleware())
	sg.DELETE("/:id", api.deleteStudent, adminMiddleware())
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)
	tg := g.Group("/teachers", jwt, staffMiddleware())
	tg.GET("", api.listTeachers)
	tg.POST("", api.createTeacher, adminMiddleware())
	tg.DELETE("/:id", api.deleteTeacher, adminMiddleware())
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)
	eg := g.Group("/events")
	eg.GET("", api.listEvents) // public
	eg.POST("", api.createEvent, jwt, adminMiddleware())
	eg.PUT("/:id", api.updateEvent, jwt, adminMiddleware())
	eg.DELETE("/:id", api.deleteEvent, jwt, adminMiddleware())
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)
	ag := g.Group("/announcements", jwt)
	ag.GET("", api.listAnnouncements)
	ag.POST("", api.createAnnouncement, staffMiddleware())
	ag.DELETE("/:id", api.deleteAnnouncement, staffMiddleware())
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)
	ag := g.Group("/assignments", jwt)
	ag.GET("", api.listAssignments)
	ag.POST("", api.createAssignment, staffMiddleware())
	ag.DELETE("/:id", api.deleteAssignment, staffMiddleware())
	ag.GET("/overview", api.assignmentOverview, studentMiddleware())
	ag.POST("/seen", api.markAssignmentsSeen, studentMiddleware())
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)
	g.GET("/terms", api.listTerms, jwt)
	g.POST("/terms", api.createTerm, jwt, staffMiddleware())
	g.GET("/subjects", api.listSubjects, jwt)
	g.POST("/subjects", api.createSubject, jwt, staffMiddleware())
	g.GET("/classes", api.listClasses, jwt)
}

// students

type studentListing struct {
	student.Listing
	AssignmentCount *int `json:"assignment_count,omitempty"`
}

func (api *schoolApi) listStudents(ctx echo.Context) error {
	sess := getSession(ctx)
	listing, err := api.students.List(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}

	resp := studentListing{Listing: listing}
	if sess.IsStudent() && listing.Class != "" {
		ov, err := api.assignments.Overview(ctx.Request().Context(), sess)
		if err != nil {
			return errors.Wrap(err, "counting assignments")
		}
		resp.AssignmentCount = &ov.Count
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.students.Create(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *schoolApi) deleteStudent(ctx echo.Context) error {
	if err := api.students.Delete(ctx.Request().Context(), getSession(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// teachers

func (api *schoolApi) listTeachers(ctx echo.Context) error {
	teachers, err := api.teachers.List(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *schoolApi) createTeacher(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.teachers.Create(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *schoolApi) deleteTeacher(ctx echo.Context) error {
	if err := api.teachers.Delete(ctx.Request().Context(), getSession(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// events

func (api *schoolApi) listEvents(ctx echo.Context) error {
	events, err := api.events.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *schoolApi) bindEvent(ctx echo.Context) (event.EventData, error) {
	var data event.EventData
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to EventData")
	}
	return data, data.Validate(api.validate)
}

func (api *schoolApi) createEvent(ctx echo.Context) error {
	data, err := api.bindEvent(ctx)
	if err != nil {
		return err
	}
	ev, err := api.events.Create(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *schoolApi) updateEvent(ctx echo.Context) error {
	data, err := api.bindEvent(ctx)
	if err != nil {
		return err
	}
	ev, err := api.events.Update(ctx.Request().Context(), getSession(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *schoolApi) deleteEvent(ctx echo.Context) error {
	if err := api.events.Delete(ctx.Request().Context(), getSession(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// announcements

func (api *schoolApi) listAnnouncements(ctx echo.Context) error {
	list, err := api.announcements.List(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "listing announcements")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *schoolApi) createAnnouncement(ctx echo.Context) error {
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	an, err := api.announcements.Create(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, an)
}

func (api *schoolApi) deleteAnnouncement(ctx echo.Context) error {
	if err := api.announcements.Delete(ctx.Request().Context(), getSession(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// assignments

func (api *schoolApi) listAssignments(ctx echo.Context) error {
	list, err := api.assignments.List(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *schoolApi) createAssignment(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	as, err := api.assignments.Create(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, as)
}

func (api *schoolApi) deleteAssignment(ctx echo.Context) error {
	if err := api.assignments.Delete(ctx.Request().Context(), getSession(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) assignmentOverview(ctx echo.Context) error {
	ov, err := api.assignments.Overview(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "assignments overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *schoolApi) markAssignmentsSeen(ctx echo.Context) error {
	if err := api.assignments.MarkSeen(ctx.Request().Context(), getSession(ctx)); err != nil {
		return errors.Wrap(err, "marking assignments seen")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// terms, subjects & classes

func (api *schoolApi) listTerms(ctx echo.Context) error {
	terms, err := api.academics.Terms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing terms")
	}
	return ctx.JSON(http.StatusOK, terms)
}

func (api *schoolApi) createTerm(ctx echo.Context) error {
	var data academic.NewTerm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTerm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.academics.CreateTerm(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating term")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *schoolApi) listSubjects(ctx echo.Context) error {
	subjects, err := api.academics.Subjects(ctx.Request().Context(), ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.academics.CreateSubject(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *schoolApi) listClasses(ctx echo.Context) error {
	classes, err := api.academics.Classes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}
