package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/academic"
	"github.com/pobon98/school-management/core/result"
	"github.com/pobon98/school-management/core/student"
	inmemdb "github.com/pobon98/school-management/storage/database/inmem"
)

type resultFixture struct {
	term, subject string
	asha, ben     student.Student
}

func seedResults(t *testing.T, app *testApp) resultFixture {
	t.Helper()
	ctx := context.Background()
	acad := inmemdb.NewAcademicRepository(app.db)
	term, err := acad.CreateTerm(ctx, academic.Term{Name: "Term 1"})
	require.NoError(t, err)
	subject, err := acad.CreateSubject(ctx, academic.Subject{Name: "Math", Class: null.StringFrom("7A")})
	require.NoError(t, err)

	students := inmemdb.NewStudentRepository(app.db)
	asha, err := students.CreateStudent(ctx, student.Student{
		Name: "Asha", Class: null.StringFrom("7A"), RollNo: null.StringFrom("1"), Email: null.StringFrom("asha@school.test"),
	})
	require.NoError(t, err)
	ben, err := students.CreateStudent(ctx, student.Student{
		Name: "Ben", Class: null.StringFrom("7A"), RollNo: null.StringFrom("2"),
	})
	require.NoError(t, err)
	return resultFixture{term: term.ID, subject: subject.ID, asha: asha, ben: ben}
}

func (fx resultFixture) selection(t *testing.T) []byte {
	return marchallObj(t, result.Selection{TermID: fx.term, Class: "7A", SubjectID: fx.subject})
}

func Test_resultApi_sheet(t *testing.T) {
	app := setup(t)
	fx := seedResults(t, app)
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))
	pupilToken := app.token(t, app.createUser(t, "asha@school.test", core.RoleStudent))

	runHTTPTests(t, app, []httpTest{
		{
			name:     "no sheet yet",
			method:   http.MethodGet,
			path:     "/v1/results/sheet",
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: result.ErrNoSheet.Error()}),
		},
		{
			name:     "students cannot load",
			method:   http.MethodPost,
			path:     "/v1/results/sheet",
			body:     fx.selection(t),
			token:    pupilToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "incomplete selection is idle",
			method:   http.MethodPost,
			path:     "/v1/results/sheet",
			body:     []byte(`{"term_id": "` + fx.term + `", "class": "7A"}`),
			token:    teacherToken,
			wantCode: http.StatusOK,
		},
	})

	rec := app.do(http.MethodPost, "/v1/results/sheet", teacherToken, fx.selection(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sh result.Sheet
	unmarshallObj(t, rec, &sh)
	assert.False(t, sh.Idle)
	require.Len(t, sh.Rows, 2)
	assert.Equal(t, "Asha", sh.Rows[0].Student.Name)

	// keystroke edits
	rec = app.do(http.MethodPatch, "/v1/results/sheet/rows/"+fx.ben.ID, teacherToken,
		[]byte(`{"marks_obtained": "55", "max_marks": "100", "cgpa": "6.5"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var row result.EditableRow
	unmarshallObj(t, rec, &row)
	assert.Equal(t, "55", row.Mark.MarksObtained)

	rec = app.do(http.MethodPatch, "/v1/results/sheet/rows/unknown", teacherToken, []byte(`{"marks_obtained": "1"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// raw CSV body
	req, rec := newAuthRequest(http.MethodPost, "/v1/results/sheet/import", teacherToken,
		[]byte("roll_no,email,marks_obtained,max_marks,cgpa_term\n1,,80,100,8.5\n9,,1,1,\n"))
	req.Header.Set("Content-Type", "text/csv")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"matched": 1, "skipped": 1}`)}, rec)

	rec = app.do(http.MethodPost, "/v1/results/sheet/save", teacherToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"results": 2, "cgpas": 2, "skipped_rows": []}`)}, rec)
	results, cgpas := app.db.CountResults()
	assert.Equal(t, 2, results)
	assert.Equal(t, 2, cgpas)

	// reload shows the saved rows with their identities
	rec = app.do(http.MethodPost, "/v1/results/sheet", teacherToken, fx.selection(t))
	unmarshallObj(t, rec, &sh)
	require.Len(t, sh.Rows, 2)
	assert.True(t, sh.Rows[0].Mark.ResultID.Valid)
	assert.Equal(t, "80", sh.Rows[0].Mark.MarksObtained)
	assert.Equal(t, "6.5", sh.Rows[1].Cgpa.Value)

	t.Run("export", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/results/sheet/export", teacherToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, csvContentType, rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename=results-7A-"))
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "student_id,name,class,roll_no,subject_id,term_id,marks_obtained,max_marks,cgpa_term", lines[0])
		assert.Equal(t, fx.asha.ID+",Asha,7A,1,"+fx.subject+","+fx.term+",80,100,8.5", lines[1])
	})

	t.Run("sample", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/results/sample?class=8B", teacherToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "attachment; filename=sample-results-8B.csv", rec.Header().Get("Content-Disposition"))
		assert.Contains(t, rec.Body.String(), "student1@example.com")
	})

	t.Run("student report", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/results/me", pupilToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var report result.Report
		unmarshallObj(t, rec, &report)
		require.Len(t, report.Terms, 1)
		assert.Equal(t, "Term 1", report.Terms[0].TermName)
		assert.Equal(t, 8.5, report.Terms[0].Cgpa.Float64)
		require.Len(t, report.Terms[0].Subjects, 1)
		assert.Equal(t, "Math", report.Terms[0].Subjects[0].SubjectName)

		rec = app.do(http.MethodGet, "/v1/results/me", teacherToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_resultApi_importMultipart(t *testing.T) {
	app := setup(t)
	fx := seedResults(t, app)
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))

	upload := func(content string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		fw, err := w.CreateFormFile("file", "marks.csv")
		require.NoError(t, err)
		_, _ = fw.Write([]byte(content))
		require.NoError(t, w.Close())

		req, rec := newAuthRequest(http.MethodPost, "/v1/results/sheet/import", teacherToken, body.Bytes())
		req.Header.Set("Content-Type", w.FormDataContentType())
		app.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("roll_no,marks_obtained,max_marks\n1,70,100\n")
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)

	rec = app.do(http.MethodPost, "/v1/results/sheet", teacherToken, fx.selection(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = upload("roll_no,email\n1,a@b.c\n")
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "CSV must include at least marks_obtained and max_marks columns."}),
	}, rec)

	rec = upload("Email,Marks_Obtained,Max_Marks\nASHA@school.test,70,100\n")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"matched": 1, "skipped": 0}`)}, rec)
}

func Test_resultApi_saveFailure(t *testing.T) {
	app := setup(t)
	fx := seedResults(t, app)
	teacherToken := app.token(t, app.createUser(t, "teacher@school.test", core.RoleTeacher))

	rec := app.do(http.MethodPost, "/v1/results/sheet", teacherToken, fx.selection(t))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, id := range []string{fx.asha.ID, fx.ben.ID} {
		rec = app.do(http.MethodPatch, "/v1/results/sheet/rows/"+id, teacherToken, []byte(`{"marks_obtained": "50", "max_marks": "100"}`))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	app.db.Reject(fx.ben.ID, "marks")
	rec = app.do(http.MethodPost, "/v1/results/sheet/save", teacherToken)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Error  string             `json:"error"`
		Failed []result.FailedRow `json:"failed"`
	}
	unmarshallObj(t, rec, &resp)
	assert.Equal(t, "Failed to save results for Ben (marks). Nothing was saved.", resp.Error)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, fx.ben.ID, resp.Failed[0].StudentID)

	results, _ := app.db.CountResults()
	assert.Equal(t, 0, results)

	// the sheet survives a failed save and can be retried
	rec = app.do(http.MethodGet, "/v1/results/sheet", teacherToken)
	var sh result.Sheet
	unmarshallObj(t, rec, &sh)
	assert.False(t, sh.Saving)
	assert.Equal(t, "50", sh.Rows[1].Mark.MarksObtained)
}
