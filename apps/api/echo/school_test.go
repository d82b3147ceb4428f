package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/assignment"
	"github.com/pobon98/school-management/core/event"
	"github.com/pobon98/school-management/core/student"
	inmemdb "github.com/pobon98/school-management/storage/database/inmem"
)

var forbidden = httpErr{Error: "permission denied"}

func Test_schoolApi_students(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.createUser(t, "admin@school.test", core.RoleAdmin))
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))
	pupilToken := app.token(t, app.createUser(t, "asha@school.test", core.RoleStudent))
	orphanToken := app.token(t, app.createUser(t, "ghost@school.test", core.RoleStudent))

	runHTTPTests(t, app, []httpTest{
		{
			name:     "teachers cannot enrol",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     []byte(`{"name": "Ben"}`),
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, forbidden),
		},
		{
			name:     "name required",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     []byte(`{"name": "   ", "class": "7A"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name:     "student without record",
			method:   http.MethodGet,
			path:     "/v1/students",
			token:    orphanToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"students": [], "reason": "No student record is linked to your account yet."}`),
		},
	})

	var asha student.Student
	for _, body := range []string{
		`{"name": "Asha", "class": "7A", "roll_no": "1", "email": "Asha@School.test"}`,
		`{"name": "Ben", "class": "7A", "roll_no": "2", "email": ""}`,
		`{"name": "Chen"}`,
	} {
		rec := app.do(http.MethodPost, "/v1/students", adminToken, []byte(body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		if asha.ID == "" {
			unmarshallObj(t, rec, &asha)
		}
	}
	assert.Equal(t, "asha@school.test", asha.Email.String)
	assert.Equal(t, "Asha", asha.FirstName)

	t.Run("student sees own class and assignment count", func(t *testing.T) {
		_, err := inmemdb.NewAssignmentRepository(app.db).CreateAssignment(context.Background(), assignment.Assignment{
			Title: "Essay", Class: "7A", CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)

		rec := app.do(http.MethodGet, "/v1/students", pupilToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var got studentListing
		unmarshallObj(t, rec, &got)
		assert.Equal(t, "7A", got.Class)
		require.Len(t, got.Students, 2)
		assert.Equal(t, "Asha", got.Students[0].Name)
		require.NotNil(t, got.AssignmentCount)
		assert.Equal(t, 1, *got.AssignmentCount)
	})

	t.Run("admin sees everyone, unclassed last", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var got studentListing
		unmarshallObj(t, rec, &got)
		require.Len(t, got.Students, 3)
		assert.Equal(t, "Chen", got.Students[2].Name)
		assert.Nil(t, got.AssignmentCount)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/students/"+asha.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(http.MethodDelete, "/v1/students/"+asha.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_schoolApi_teachers(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.createUser(t, "admin@school.test", core.RoleAdmin))
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))
	pupilToken := app.token(t, app.createUser(t, "pupil@school.test", core.RoleStudent))

	rec := app.do(http.MethodPost, "/v1/teachers", adminToken, []byte(`{"name": "Mary Jane Watson", "subject": "Math"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got map[string]interface{}
	unmarshallObj(t, rec, &got)
	assert.Equal(t, "Mary", got["first_name"])
	assert.Equal(t, "Jane Watson", got["last_name"])

	runHTTPTests(t, app, []httpTest{
		{name: "students cannot list", method: http.MethodGet, path: "/v1/teachers", token: pupilToken, wantCode: http.StatusForbidden},
		{name: "teachers cannot create", method: http.MethodPost, path: "/v1/teachers", body: []byte(`{"name": "X"}`), token: teacherToken, wantCode: http.StatusForbidden},
		{name: "teachers list", method: http.MethodGet, path: "/v1/teachers", token: teacherToken, wantCode: http.StatusOK},
	})
}

func Test_schoolApi_events(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.createUser(t, "admin@school.test", core.RoleAdmin))
	pupilToken := app.token(t, app.createUser(t, "pupil@school.test", core.RoleStudent))

	repo := inmemdb.NewEventRepository(app.db)
	ctx := context.Background()
	_, _ = repo.CreateEvent(ctx, event.Event{Title: "Undated", Description: "d", MonthShort: "Sep"})
	_, _ = repo.CreateEvent(ctx, event.Event{Title: "Late", Description: "d", MonthShort: "Dec", Date: null.TimeFrom(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))})

	rec := app.do(http.MethodPost, "/v1/events", adminToken, []byte(`{"title": "Sports day", "description": "Field", "month_short": "Mar", "date": "2024-03-15"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created event.Event
	unmarshallObj(t, rec, &created)

	rec = app.do(http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []event.Event
	unmarshallObj(t, rec, &events)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"Sports day", "Late", "Undated"}, []string{events[0].Title, events[1].Title, events[2].Title})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "students cannot create",
			method:   http.MethodPost,
			path:     "/v1/events",
			body:     []byte(`{"title": "x", "description": "y", "month_short": "Jan"}`),
			token:    pupilToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, forbidden),
		},
		{
			name:     "missing month",
			method:   http.MethodPut,
			path:     "/v1/events/" + created.ID,
			body:     []byte(`{"title": "x", "description": "y"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month_short": "this field is required"}),
		},
		{
			name:     "update",
			method:   http.MethodPut,
			path:     "/v1/events/" + created.ID,
			body:     []byte(`{"title": "Sports week", "description": "Field", "month_short": "Mar"}`),
			token:    adminToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/v1/events/" + created.ID,
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
	})
}

func Test_schoolApi_announcements(t *testing.T) {
	app := setup(t)
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))
	pupilToken := app.token(t, app.createUser(t, "asha@school.test", core.RoleStudent))
	_, err := inmemdb.NewStudentRepository(app.db).CreateStudent(context.Background(), student.Student{
		Name: "Asha", Class: null.StringFrom("7A"), Email: null.StringFrom("asha@school.test"),
	})
	require.NoError(t, err)

	for _, body := range []string{
		`{"title": "Assembly", "body": "Everyone to the hall"}`,
		`{"title": "7A trip", "body": "Museum", "class": "7A"}`,
		`{"title": "8B trip", "body": "Zoo", "class": "8B"}`,
	} {
		rec := app.do(http.MethodPost, "/v1/announcements", teacherToken, []byte(body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(http.MethodPost, "/v1/announcements", pupilToken, []byte(`{"title": "x", "body": "y"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodGet, "/v1/announcements", pupilToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]interface{}
	unmarshallObj(t, rec, &got)
	require.Len(t, got, 2)
	titles := []interface{}{got[0]["title"], got[1]["title"]}
	assert.ElementsMatch(t, []interface{}{"Assembly", "7A trip"}, titles)

	rec = app.do(http.MethodGet, "/v1/announcements", teacherToken)
	unmarshallObj(t, rec, &got)
	assert.Len(t, got, 3)
}

func Test_schoolApi_assignments(t *testing.T) {
	app := setup(t)
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))
	pupilToken := app.token(t, app.createUser(t, "asha@school.test", core.RoleStudent))
	_, err := inmemdb.NewStudentRepository(app.db).CreateStudent(context.Background(), student.Student{
		Name: "Asha", Class: null.StringFrom("7A"), Email: null.StringFrom("asha@school.test"),
	})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "class required",
			method:   http.MethodPost,
			path:     "/v1/assignments",
			body:     []byte(`{"title": "Essay"}`),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class": "this field is required"}),
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/v1/assignments",
			body:     []byte(`{"title": "Essay", "class": "7A", "due_date": "2024-04-01"}`),
			token:    teacherToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "other class",
			method:   http.MethodPost,
			path:     "/v1/assignments",
			body:     []byte(`{"title": "Lab", "class": "8B"}`),
			token:    teacherToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "new assignment flagged",
			method:   http.MethodGet,
			path:     "/v1/assignments/overview",
			token:    pupilToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"class": "7A", "count": 1, "has_new": true}`),
		},
		{
			name:     "seen",
			method:   http.MethodPost,
			path:     "/v1/assignments/seen",
			token:    pupilToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "nothing new after a visit",
			method:   http.MethodGet,
			path:     "/v1/assignments/overview",
			token:    pupilToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"class": "7A", "count": 1, "has_new": false}`),
		},
		{
			name:     "overview is for students",
			method:   http.MethodGet,
			path:     "/v1/assignments/overview",
			token:    teacherToken,
			wantCode: http.StatusForbidden,
		},
	})

	rec := app.do(http.MethodGet, "/v1/assignments", pupilToken)
	var mine []assignment.Assignment
	unmarshallObj(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "Essay", mine[0].Title)

	rec = app.do(http.MethodGet, "/v1/assignments", teacherToken)
	var all []assignment.Assignment
	unmarshallObj(t, rec, &all)
	assert.Len(t, all, 2)
}

func Test_schoolApi_academic(t *testing.T) {
	app := setup(t)
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))
	pupilToken := app.token(t, app.createUser(t, "pupil@school.test", core.RoleStudent))

	for _, tt := range []struct{ path, body string }{
		{"/v1/terms", `{"name": "Term 1"}`},
		{"/v1/subjects", `{"name": "Math", "class": "7A"}`},
		{"/v1/subjects", `{"name": "Art"}`},
		{"/v1/subjects", `{"name": "Biology", "class": "8B"}`},
	} {
		rec := app.do(http.MethodPost, tt.path, teacherToken, []byte(tt.body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(http.MethodPost, "/v1/terms", pupilToken, []byte(`{"name": "Term 2"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	runHTTPTests(t, app, []httpTest{
		{name: "classes", method: http.MethodGet, path: "/v1/classes", token: pupilToken, wantCode: http.StatusOK, wantData: []byte(`["7A", "8B"]`)},
		{name: "anonymous", method: http.MethodGet, path: "/v1/terms", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
	})

	rec = app.do(http.MethodGet, "/v1/subjects?class=7A", teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var subjects []map[string]interface{}
	unmarshallObj(t, rec, &subjects)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Art", subjects[0]["name"])
	assert.Equal(t, "Math", subjects[1]["name"])
}
