// Package admission records inquiries sent from the public admission form.
package admission

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
)

const (
	notificationTemplate = "admission_inquiry"
	notificationSubject  = "New admission inquiry"
)

type (
	Inquiry struct {
		ID          string    `json:"id" db:"id"`
		StudentName string    `json:"studentName" db:"student_name"`
		Email       string    `json:"email" db:"parent_email"`
		Grade       string    `json:"grade" db:"grade"`
		Message     string    `json:"message" db:"message"`
		CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	}

	NewInquiry struct {
		StudentName string `json:"studentName" validate:"required,notblank"`
		Email       string `json:"email" validate:"required,notblank"`
		Grade       string `json:"grade" validate:"required,notblank"`
		Message     string `json:"message" validate:"required,notblank"`
	}

	Repository interface {
		CreateInquiry(ctx context.Context, inq Inquiry) (Inquiry, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

func (ni *NewInquiry) Validate(validate *validator.Validate) error {
	ni.StudentName = core.CleanString(ni.StudentName)
	ni.Email = core.CleanString(ni.Email)
	ni.Grade = core.CleanString(ni.Grade)
	ni.Message = core.CleanString(ni.Message)
	return validate.Struct(ni)
}

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf, logger: logger}
}

// Submit persists ni, then notifies the admissions inbox and the submitter.
// The notification is best effort and never fails the submission.
func (svc *Service) Submit(ctx context.Context, ni NewInquiry) (Inquiry, error) {
	inq, err := svc.repo.CreateInquiry(ctx, Inquiry{
		StudentName: ni.StudentName,
		Email:       ni.Email,
		Grade:       ni.Grade,
		Message:     ni.Message,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Inquiry{}, errors.Wrap(err, "creating inquiry")
	}

	svc.notify(inq)
	return inq, nil
}

func (svc *Service) notify(inq Inquiry) {
	inbox := svc.conf.Email.AdmissionsInbox
	if inbox == "" {
		svc.logger.Warn(fmt.Sprintf("admission inquiry %s: no admissions inbox configured, notification skipped", inq.ID))
		return
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: inbox}},
		Subject:      notificationSubject,
		TemplateName: notificationTemplate,
		TemplateData: inq,
	}
	if addr, err := mail.ParseAddress(inq.Email); err == nil {
		msg.To = append(msg.To, *addr)
		msg.ReplyTo = addr
	} else {
		svc.logger.Warn(fmt.Sprintf("admission inquiry %s: submitter address %q not notified: %v", inq.ID, inq.Email, err), err)
	}

	svc.mailSvc.SendMessages(msg)
}
