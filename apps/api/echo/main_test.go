package echoapi

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/academic"
	"github.com/pobon98/school-management/core/admission"
	"github.com/pobon98/school-management/core/announcement"
	"github.com/pobon98/school-management/core/assignment"
	"github.com/pobon98/school-management/core/event"
	"github.com/pobon98/school-management/core/result"
	"github.com/pobon98/school-management/core/student"
	"github.com/pobon98/school-management/core/teacher"
	"github.com/pobon98/school-management/core/user"
	emailsvc "github.com/pobon98/school-management/services/email"
	logsvc "github.com/pobon98/school-management/services/logger"
	"github.com/pobon98/school-management/services/metrics"
	inmemdb "github.com/pobon98/school-management/storage/database/inmem"
	"github.com/pobon98/school-management/tests"
)

const testPassword = "Sch00l#Dashb0ard"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type sentMessages interface {
	SentMessages() []core.EmailMessage
}

type testApp struct {
	*Server
	conf    *core.Config
	db      *inmemdb.DB
	mail    sentMessages
	metrics *metrics.Metrics
}

func testConfig() *core.Config {
	conf := &core.Config{
		AppName:   "School Management",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret-key",
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	conf.Server.PasswordResetTimeoutDelta = time.Hour
	conf.Server.DisableReqLogs = true
	conf.Email.AdmissionsInbox = "admissions@school.test"
	return conf
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testConfig()
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	mtr := metrics.New()

	studentSvc := student.NewService(inmemdb.NewStudentRepository(db))
	srv := NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Metrics:         mtr,
		Validate:        validate,
		Translator:      translator,
		UserSvc:         user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf),
		StudentSvc:      studentSvc,
		TeacherSvc:      teacher.NewService(inmemdb.NewTeacherRepository(db)),
		EventSvc:        event.NewService(inmemdb.NewEventRepository(db)),
		AnnouncementSvc: announcement.NewService(inmemdb.NewAnnouncementRepository(db), studentSvc),
		AssignmentSvc:   assignment.NewService(inmemdb.NewAssignmentRepository(db), studentSvc),
		AcademicSvc:     academic.NewService(inmemdb.NewAcademicRepository(db)),
		ResultSvc:       result.NewService(inmemdb.NewResultRepository(db), studentSvc, result.NewSheetStore(), logger),
		AdmissionSvc:    admission.NewService(inmemdb.NewAdmissionRepository(db), mailSvc, conf, logger),
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &testApp{Server: srv, conf: conf, db: db, mail: mailSvc, metrics: mtr}
}

func (app *testApp) createUser(t *testing.T, email, role string) user.User {
	t.Helper()
	return testutil.CreateUser(t, inmemdb.NewUserRepository(app.db), email, role, testPassword)
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(app.conf, usr)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	return token
}

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
