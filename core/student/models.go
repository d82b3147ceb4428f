package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
)

type Student struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	FirstName string      `json:"first_name" db:"first_name"`
	LastName  string      `json:"last_name" db:"last_name"`
	Class     null.String `json:"class" db:"class"`
	RollNo    null.String `json:"roll_no" db:"roll_no"`
	Email     null.String `json:"email" db:"email"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
}

// NewStudent contains information needed to enrol a Student. Blank optional fields are stored as NULL.
type NewStudent struct {
	Name   string `json:"name" validate:"required,notblank"`
	Class  string `json:"class" validate:"omitempty,classlabel"`
	RollNo string `json:"roll_no" validate:"omitempty,max=32"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Class = core.CleanString(ns.Class)
	ns.RollNo = core.CleanString(ns.RollNo)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// QueryFilter applies AND operation on the non-empty fields.
type QueryFilter struct {
	Class string
	Email string // case-insensitive
}

// Listing is what a Session gets to see of the student body.
type Listing struct {
	Class    string    `json:"class,omitempty"`
	Students []Student `json:"students"`
	Reason   string    `json:"reason,omitempty"` // why Students is empty, for students only
}
