package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_admissionApi_submit(t *testing.T) {
	app := setup(t)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "missing message",
			method:   http.MethodPost,
			path:     "/v1/admission-inquiry",
			body:     []byte(`{"studentName": "Asha", "email": "parent@home.test", "grade": "7"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Missing required fields"}),
		},
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/v1/admission-inquiry",
			body:     []byte(`{"studentName": "  ", "email": "parent@home.test", "grade": "7", "message": "Hi"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Missing required fields"}),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/v1/admission-inquiry",
			body:     []byte(`{"studentName": `),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Missing required fields"}),
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/v1/admission-inquiry",
			body:     []byte(`{"studentName": "Asha", "email": "parent@home.test", "grade": "7", "message": "Is there a bus?"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"success": true}`),
		},
	})

	inquiries := app.db.Inquiries()
	require.Len(t, inquiries, 1)
	assert.Equal(t, "Asha", inquiries[0].StudentName)
	assert.False(t, inquiries[0].CreatedAt.IsZero())

	sent := app.mail.SentMessages()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].To, 2)
	assert.Equal(t, "admissions@school.test", sent[0].To[0].Address)
	assert.Equal(t, "parent@home.test", sent[0].To[1].Address)
	require.NotNil(t, sent[0].ReplyTo)
	assert.Equal(t, "parent@home.test", sent[0].ReplyTo.Address)
	assert.Contains(t, sent[0].TextContent, "Is there a bus?")
}

func Test_admissionApi_noInbox(t *testing.T) {
	app := setup(t)
	app.conf.Email.AdmissionsInbox = ""

	rec := app.do(http.MethodPost, "/v1/admission-inquiry", "",
		[]byte(`{"studentName": "Ben", "email": "not-an-address", "grade": "8", "message": "Hello"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"success": true}`)}, rec)
	assert.Len(t, app.db.Inquiries(), 1)
	assert.Empty(t, app.mail.SentMessages())
}
