package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/admission"
)

type admissionRepository struct {
	exec core.DBExecutor
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(exec core.DBExecutor) *admissionRepository {
	return &admissionRepository{exec: exec}
}

func (repo admissionRepository) CreateInquiry(ctx context.Context, inq admission.Inquiry) (admission.Inquiry, error) {
	inq.ID = newID(inq.ID)
	inq.CreatedAt = utcOrNow(inq.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO admission_inquiries (id, student_name, parent_email, grade, message, created_at)
		VALUES (:id, :student_name, :parent_email, :grade, :message, :created_at)`,
		inq,
	)
	if err != nil {
		return admission.Inquiry{}, errors.Wrap(err, "inserting inquiry")
	}
	return inq, nil
}
