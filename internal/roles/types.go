// Package roles implements C7: role CRUD over a matrix file, inheritance
// resolution with cycle detection, the permission grammar and merge
// order, a process-wide permission decision cache, and the supplemental
// CEL-based conditional permissions described in SPEC_FULL.md §4.6.
package roles

import "time"

// Flags is a 3-character r/w/x permission string, '-' marking an absent
// flag (spec.md §4.6).
type Flags string

// HasRead, HasWrite, HasExecute report individual flag bits.
func (f Flags) HasRead() bool    { return len(f) > 0 && f[0] == 'r' }
func (f Flags) HasWrite() bool   { return len(f) > 1 && f[1] == 'w' }
func (f Flags) HasExecute() bool { return len(f) > 2 && f[2] == 'x' }

// Allows reports whether f grants the single-letter action ("r", "w" or
// "x").
func (f Flags) Allows(action string) bool {
	switch action {
	case "r":
		return f.HasRead()
	case "w":
		return f.HasWrite()
	case "x":
		return f.HasExecute()
	}
	return false
}

// Permission is one resource[flags] grammar element.
type Permission struct {
	Resource string
	Flags    Flags
}

// Condition is one resource[rule_name] element of the supplemental
// conditions field: resource maps to a named CEL rule looked up via
// get_meta("rule.<rule_name>").
type Condition struct {
	Resource string
	RuleName string
}

// Role is the public shape of a role record.
type Role struct {
	RoleName    string
	Permissions []Permission
	Conditions  []Condition
	Inherits    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	IsActive    bool

	// EffectivePermissions is populated only by GetRole: the result of
	// walking the inheritance chain and merging per spec.md §4.6.
	EffectivePermissions []Permission `json:"effective_permissions,omitempty"`
}

// CreateInput is the request shape for create_role.
type CreateInput struct {
	RoleName    string
	Permissions []Permission
	Conditions  []Condition
	Inherits    string
	Description string
}

// UpdateInput is a partial merge for update_role.
type UpdateInput struct {
	Permissions *[]Permission
	Conditions  *[]Condition
	Inherits    *string
	Description *string
	IsActive    *bool
}
