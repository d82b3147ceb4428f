package emailsvc

import (
	"encoding/json"
	"net/mail"
	"strings"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobon98/school-management/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConfig() *core.Config {
	conf := &core.Config{AppName: "School", TestMode: true}
	conf.Email.SendgridAPIKey = "sg-key"
	return conf
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testConfig()
	core.ParseEmailTemplates(conf, nopLogger{})
	svc := NewConsoleServiceMock(conf, nopLogger{})

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Address: "admissions@school.io"}},
			Subject:      "New admission inquiry",
			TemplateName: "admission_inquiry",
			TemplateData: map[string]interface{}{"StudentName": "Asha", "Email": "p@home.io", "Grade": "7", "Message": "Hi"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "x@school.io"}}, Subject: "plain", BodyStr: "hello"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "Asha")
	assert.Contains(t, sent[0].HTMLContent, "Asha")
	assert.Equal(t, "hello", sent[1].TextContent)
}

func TestSendgridService_build(t *testing.T) {
	svc := NewSendgridService(testConfig(), nopLogger{})
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Inbox", Address: "admissions@school.io"}},
		Cc:          []mail.Address{{Address: "cc@school.io"}},
		ReplyTo:     &mail.Address{Name: "Parent", Address: "p@home.io"},
		Subject:     "Hello",
		TextContent: "text",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2"), "results.csv", "text/csv"))

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(sgmailBody(svc, msg), &body))

	pers := body["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[School] Hello", pers["subject"])
	assert.Len(t, pers["cc"], 1)
	assert.Equal(t, "p@home.io", body["reply_to"].(map[string]interface{})["email"])
	content := body["content"].([]interface{})
	require.Len(t, content, 1)
	assert.Equal(t, "text/plain", content[0].(map[string]interface{})["type"])
	attachments := body["attachments"].([]interface{})
	assert.Equal(t, "results.csv", attachments[0].(map[string]interface{})["filename"])
}

func sgmailBody(svc *sendgridService, msg core.EmailMessage) []byte {
	return sgmail.GetRequestBody(svc.build(&msg))
}
