package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
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

func TestNewUser_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	LoadCommonPasswords(nopLogger{})

	tests := []struct {
		name    string
		data    NewUser
		wantErr map[string]string
	}{
		{
			name:    "required fields",
			wantErr: map[string]string{"email": "this field is required", "password": "this field is required", "password_confirm": "this field is required"},
		},
		{
			name:    "invalid email",
			data:    NewUser{Email: "lol", Password: "Tr1cky#Pass", PasswordConfirm: "Tr1cky#Pass"},
			wantErr: map[string]string{"email": "email must be a valid email address"},
		},
		{
			name:    "unknown role",
			data:    NewUser{Email: "asha@school.io", Password: "Tr1cky#Pass", PasswordConfirm: "Tr1cky#Pass", Role: "janitor"},
			wantErr: map[string]string{"role": "role must be one of [admin teacher student]"},
		},
		{
			name:    "passwords mismatch",
			data:    NewUser{Email: "asha@school.io", Password: "Tr1cky#Pass", PasswordConfirm: "Tr1cky#Pas"},
			wantErr: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
		{
			name:    "too short",
			data:    NewUser{Email: "asha@school.io", Password: "Ab1!", PasswordConfirm: "Ab1!"},
			wantErr: map[string]string{"password": pwdMinLenText},
		},
		{
			name:    "whitespace",
			data:    NewUser{Email: "asha@school.io", Password: "Abcd 1234!", PasswordConfirm: "Abcd 1234!"},
			wantErr: map[string]string{"password": pwdNoSpaceText},
		},
		{
			name:    "all numeric",
			data:    NewUser{Email: "asha@school.io", Password: "12345678", PasswordConfirm: "12345678"},
			wantErr: map[string]string{"password": pwdNotAllNumText},
		},
		{
			name:    "not complex",
			data:    NewUser{Email: "asha@school.io", Password: "abcdefgh1", PasswordConfirm: "abcdefgh1"},
			wantErr: map[string]string{"password": pwdComplexityText},
		},
		{
			name:    "similar to email",
			data:    NewUser{Email: "johnsmith@school.io", Password: "Johnsmith1!", PasswordConfirm: "Johnsmith1!"},
			wantErr: map[string]string{"password": pwdAttrSimText},
		},
		{
			name:    "common password",
			data:    NewUser{Email: "asha@school.io", Password: "Password@123", PasswordConfirm: "Password@123"},
			wantErr: map[string]string{"password": pwdNoCommonText},
		},
		{
			name: "valid",
			data: NewUser{Email: "  Asha@School.io ", Password: "Tr1cky#Pass", PasswordConfirm: "Tr1cky#Pass", Role: "Teacher"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(validate)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "asha@school.io", tt.data.Email)
				assert.Equal(t, "teacher", tt.data.Role)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validator.ValidationErrors, got %T", err)

			got := make(map[string]string, len(vErrs))
			for _, vErr := range vErrs {
				got[vErr.Field()] = vErr.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}
