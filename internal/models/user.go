package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleLecturer UserRole = "LECTURER"
	RoleStudent  UserRole = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleLecturer, RoleStudent:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID                       string     `db:"id" json:"id"`
	Username                 string     `db:"username" json:"username"`
	PasswordHash             string     `db:"password_hash" json:"-"`
	FullName                 string     `db:"full_name" json:"full_name"`
	Role                     UserRole   `db:"role" json:"role"`
	DepartmentID             *string    `db:"department_id" json:"department_id,omitempty"`
	DepartmentName           *string    `db:"department_name" json:"department_name,omitempty"`
	Level                    string     `db:"level" json:"level,omitempty"`
	MatricNumber             *string    `db:"matric_number" json:"matric_number,omitempty"`
	Email                    string     `db:"email" json:"email,omitempty"`
	PhoneNumber              string     `db:"phone_number" json:"phone_number,omitempty"`
	Age                      *int       `db:"age" json:"age,omitempty"`
	ProfilePic               string     `db:"profile_pic" json:"profile_pic,omitempty"`
	ResetPasswordToken       *string    `db:"reset_password_token" json:"-"`
	ResetPasswordTokenExpiry *time.Time `db:"reset_password_token_expiry" json:"-"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// InDepartment reports whether the user belongs to departmentID.
func (u *User) InDepartment(departmentID string) bool {
	return u != nil && u.DepartmentID != nil && *u.DepartmentID == departmentID
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// StudentProfileUpdate carries the editable fields of a student profile.
type StudentProfileUpdate struct {
	FullName       string `json:"full_name" form:"full_name" validate:"required,max=255"`
	Age            *int   `json:"age" form:"age" validate:"omitempty,min=1,max=150"`
	Level          string `json:"level" form:"level" validate:"max=20"`
	DepartmentName string `json:"department_name" form:"department_name"`
	Email          string `json:"email" form:"email" validate:"omitempty,email"`
	PhoneNumber    string `json:"phone_number" form:"phone_number" validate:"max=50"`
	MatricNumber   string `json:"matric_number" form:"matric_number"`
}

// StaffProfileUpdate carries the editable fields of a lecturer or admin profile.
type StaffProfileUpdate struct {
	FullName    string `json:"full_name" form:"full_name" validate:"required,max=255"`
	Email       string `json:"email" form:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number" form:"phone_number" validate:"max=50"`
	Age         *int   `json:"age" form:"age" validate:"omitempty,min=1,max=150"`
}
