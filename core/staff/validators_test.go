package staff

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shiksha/core"
)

func fieldFailed(err error, field, tag string) bool {
	if err == nil {
		return false
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, vErr := range vErrs {
		if vErr.Field() == field && vErr.Tag() == tag {
			return true
		}
	}
	return false
}

func TestNewStaffValidation_passwordPolicy(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		confirm string
		wantTag string // empty: want valid
	}{
		{name: "valid", pwd: "g00d-enough-pwd", confirm: "g00d-enough-pwd"},
		{name: "too short", pwd: "short", confirm: "short", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "has a space pwd", confirm: "has a space pwd", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", confirm: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "similar to username", pwd: "awesome.username", confirm: "awesome.username", wantTag: pwdAttrSimTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := NewStaff{
				Name:            "Awe Some",
				Username:        "awesome.username",
				Email:           "awe@test.cd",
				Password:        tt.pwd,
				PasswordConfirm: tt.confirm,
			}
			err := core.Validate.Struct(ns)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !fieldFailed(err, "password", tt.wantTag) {
				t.Errorf("Validate() error = %v, want failure on tag %q", err, tt.wantTag)
			}
		})
	}
}

func TestNewStaffValidation_roles(t *testing.T) {
	ns := NewStaff{
		Name:            "Awe Some",
		Username:        "someuser",
		Email:           "awe@test.cd",
		Password:        "g00d-enough-pwd",
		PasswordConfirm: "g00d-enough-pwd",
		Roles:           []string{"lol:nope"},
	}
	if err := core.Validate.Struct(ns); !fieldFailed(err, "roles", staffRolesTag) {
		t.Errorf("Validate() error = %v, want failure on tag %q", err, staffRolesTag)
	}

	ns.Roles = []string{RoleAccountant, RoleFrontdesk}
	if err := core.Validate.Struct(ns); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
