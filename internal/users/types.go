// Package users implements C6, the user record service: CRUD over a
// single matrix file, username/email uniqueness, password lifecycle
// delegated to internal/auth, and free-text sanitization.
package users

import "time"

// User is the public shape of a user record. PasswordHash never appears
// here — it is stripped before a record crosses this package's boundary
// (spec.md §4.5, "the hash never leaves this component").
type User struct {
	Username    string    `json:"username"`
	Roles       []string  `json:"roles"`
	FirstName   string    `json:"firstname"`
	LastName    string    `json:"lastname"`
	Address     string    `json:"address"`
	Email       string    `json:"email"`
	Social      string    `json:"social"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastLogin   time.Time `json:"last_login,omitzero"`
	IsActive    bool      `json:"is_active"`
}

// CreateInput is the request shape for create_user.
type CreateInput struct {
	Username    string
	Password    string
	Roles       []string
	FirstName   string
	LastName    string
	Address     string
	Email       string
	Social      string
	Description string
}

// UpdateInput is a partial profile merge for update_user. Password is
// immutable here; only change_password may rotate it.
type UpdateInput struct {
	Roles       *[]string
	FirstName   *string
	LastName    *string
	Address     *string
	Email       *string
	Social      *string
	Description *string
	IsActive    *bool
}

// ListFilter narrows list_users.
type ListFilter struct {
	Filter     string // substring or glob against username
	ActiveOnly bool
}

type record struct {
	username     string
	passwordHash string
	roles        []string
	firstName    string
	lastName     string
	address      string
	email        string
	social       string
	description  string
	createdAt    time.Time
	updatedAt    time.Time
	lastLogin    time.Time
	isActive     bool
}

func (r record) toPublic() User {
	return User{
		Username:    r.username,
		Roles:       append([]string(nil), r.roles...),
		FirstName:   r.firstName,
		LastName:    r.lastName,
		Address:     r.address,
		Email:       r.email,
		Social:      r.social,
		Description: r.description,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
		LastLogin:   r.lastLogin,
		IsActive:    r.isActive,
	}
}
