package roles

import (
	"time"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

// Header is the fixed on-disk column order for roles.matrix.csv.
var Header = []string{
	"rolename", "permissions", "inherits", "conditions",
	"created_at", "updated_at", "is_active", "description",
}

const timeLayout = time.RFC3339

func roleToMatrix(r Role) codec.MatrixRecord {
	fields := map[string]codec.MatrixValue{
		"rolename":    codec.Single(r.RoleName),
		"permissions": permissionsToMatrixValue(r.Permissions),
		"inherits":    codec.Single(r.Inherits),
		"conditions":  conditionsToMatrixValue(r.Conditions),
		"created_at":  codec.Single(r.CreatedAt.UTC().Format(timeLayout)),
		"updated_at":  codec.Single(r.UpdatedAt.UTC().Format(timeLayout)),
		"is_active":   codec.Single(boolString(r.IsActive)),
	}
	return codec.MatrixRecord{
		Order:       Header[:len(Header)-1],
		Fields:      fields,
		Description: r.Description,
	}
}

func matrixToRole(m codec.MatrixRecord) (Role, error) {
	var r Role
	r.Description = m.Description

	rolename, _ := m.Get("rolename")
	r.RoleName = rolename.Single

	if perms, ok := m.Get("permissions"); ok {
		r.Permissions = permissionsFromMatrixValue(perms)
	}
	if conds, ok := m.Get("conditions"); ok {
		r.Conditions = conditionsFromMatrixValue(conds)
	}
	inherits, _ := m.Get("inherits")
	r.Inherits = inherits.Single

	isActive, _ := m.Get("is_active")
	r.IsActive = isActive.Single == "true"

	var err error
	if createdAt, ok := m.Get("created_at"); ok && createdAt.Single != "" {
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt.Single); err != nil {
			return Role{}, &corerr.ParseError{Input: createdAt.Single, Reason: "malformed created_at timestamp"}
		}
	}
	if updatedAt, ok := m.Get("updated_at"); ok && updatedAt.Single != "" {
		if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt.Single); err != nil {
			return Role{}, &corerr.ParseError{Input: updatedAt.Single, Reason: "malformed updated_at timestamp"}
		}
	}

	return r, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
