package staff

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shiksha/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Desk staff
	RoleAccountant = "staff:accountant"
	RoleFrontdesk  = "staff:frontdesk"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOwner}
	DeskRoles  = []string{RoleAccountant, RoleFrontdesk}
	AllRoles   = append(append(make([]string, 0, 4), AdminRoles...), DeskRoles...)

	rolePriorities = map[string]int{
		RoleAdminOwner: 30,
		RoleAdmin:      21,
		RoleAccountant: 20,
		RoleFrontdesk:  10,
	}

	Roles = []Role{
		{Name: "Front Desk", Value: RoleFrontdesk},
		{Name: "Accountant", Value: RoleAccountant},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Staff is an institute operator account: the people allowed to register
// students and record fee payments.
type Staff struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     *bool     `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (s *Staff) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Staff) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

func (s *Staff) SetActive(active bool) { s.IsActive = &active }

func (s *Staff) Active() bool { return s.IsActive != nil && *s.IsActive }

func (s *Staff) RoleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s *Staff) IsAdmin() bool { return s.RoleStartsWith(RoleAdmin) }

func (s *Staff) IsAccountant() bool { return s.RoleStartsWith(RoleAccountant) }

// NewStaff contains information needed to create a new Staff account.
type NewStaff struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,staffroles"`
}

func (ns *NewStaff) Validate(svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Username, ns.Email)
}

type ResetStaffPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetStaffPassword) Validate() error { return core.Validate.Struct(rp) }

// GetFilter selects a single Staff account.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
