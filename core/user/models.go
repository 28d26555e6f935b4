package user

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-portal/core"
)

// Role is the closed set of portal roles.
type Role string

// Roles
const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	landingRoutes = map[Role]string{
		RoleAdmin:   "/admin",
		RoleTeacher: "/teacher",
		RoleStudent: "/student",
	}

	// RoleOptions are offered by the sign-up form.
	RoleOptions = []RoleOption{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type RoleOption struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func (r Role) IsValid() bool {
	_, ok := landingRoutes[r]
	return ok
}

// LandingRoute returns the default screen of the role.
func (r Role) LandingRoute() (string, bool) {
	route, ok := landingRoutes[r]
	return route, ok
}

func (r Role) String() string { return string(r) }

// User is the authenticated principal as served by `GET /auth/me`.
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	Phone     null.String `json:"phone"`
	AvatarURL null.String `json:"avatarUrl"`
	Role      Role        `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt core.Time   `json:"createdAt"`
	UpdatedAt core.Time   `json:"updatedAt"`
}

// AuthResult is what the login and signup endpoints return.
type AuthResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// User synthesizes a full User from the auth result.
// Fields the auth endpoints do not return are left absent; timestamps default to `now`.
func (ar AuthResult) User(now time.Time) User {
	ts := core.NewTime(now)
	return User{
		ID:        ar.UserID,
		Email:     ar.Email,
		FullName:  ar.FullName,
		Role:      ar.Role,
		IsActive:  true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Credentials contains information needed to sign in.
type Credentials struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (c *Credentials) Clean() {
	c.Email = core.CleanString(c.Email, true /* lower */)
}

// NewAccount contains information needed to sign up.
type NewAccount struct {
	FullName string `json:"fullName" form:"fullName" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
	Role     Role   `json:"role" form:"role" validate:"required,approle"`
	Phone    string `json:"phone,omitempty" form:"phone" validate:"omitempty,max=32"`
}

func (na *NewAccount) Clean() {
	na.FullName = core.CleanString(na.FullName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Role = Role(core.CleanString(string(na.Role)))
}
