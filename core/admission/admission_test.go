package admission

import (
	"context"
	"net/mail"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobon98/school-management/core"
)

type recordingLogger struct{ warnings []string }

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

type fakeMailer struct{ sent []*core.EmailMessage }

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type fakeRepo struct {
	inquiries []Inquiry
	err       error
}

func (r *fakeRepo) CreateInquiry(_ context.Context, inq Inquiry) (Inquiry, error) {
	if r.err != nil {
		return Inquiry{}, r.err
	}
	inq.ID = "inq-1"
	r.inquiries = append(r.inquiries, inq)
	return inq, nil
}

func TestNewInquiry_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	ni := NewInquiry{StudentName: " Asha ", Email: "p@home.io", Grade: "7", Message: "  "}
	err := ni.Validate(validate)
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(err, &vErrs))
	require.Len(t, vErrs, 1)
	assert.Equal(t, "message", vErrs[0].Field())
	assert.Equal(t, "Asha", ni.StudentName)

	ni.Message = "Is there a bus?"
	assert.NoError(t, ni.Validate(validate))
}

func TestSubmit(t *testing.T) {
	ni := NewInquiry{StudentName: "Asha", Email: "parent@home.io", Grade: "7", Message: "Hello"}

	t.Run("persists and notifies inbox and submitter", func(t *testing.T) {
		repo, mailer, logger := &fakeRepo{}, &fakeMailer{}, &recordingLogger{}
		conf := &core.Config{}
		conf.Email.AdmissionsInbox = "admissions@school.io"
		svc := NewService(repo, mailer, conf, logger)

		inq, err := svc.Submit(context.Background(), ni)
		require.NoError(t, err)
		assert.Equal(t, "inq-1", inq.ID)
		assert.False(t, inq.CreatedAt.IsZero())
		require.Len(t, repo.inquiries, 1)

		require.Len(t, mailer.sent, 1)
		msg := mailer.sent[0]
		assert.Equal(t, []mail.Address{{Address: "admissions@school.io"}, {Address: "parent@home.io"}}, msg.To)
		assert.Equal(t, "New admission inquiry", msg.Subject)
		assert.Equal(t, "admission_inquiry", msg.TemplateName)
	})

	t.Run("no inbox skips the notification", func(t *testing.T) {
		repo, mailer, logger := &fakeRepo{}, &fakeMailer{}, &recordingLogger{}
		svc := NewService(repo, mailer, &core.Config{}, logger)

		_, err := svc.Submit(context.Background(), ni)
		require.NoError(t, err)
		assert.Empty(t, mailer.sent)
		assert.Len(t, logger.warnings, 1)
	})

	t.Run("persistence failure", func(t *testing.T) {
		repo, mailer := &fakeRepo{err: errors.New("db down")}, &fakeMailer{}
		conf := &core.Config{}
		conf.Email.AdmissionsInbox = "admissions@school.io"
		svc := NewService(repo, mailer, conf, &recordingLogger{})

		_, err := svc.Submit(context.Background(), ni)
		assert.Error(t, err)
		assert.Empty(t, mailer.sent)
	})
}
