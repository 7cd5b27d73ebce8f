package users

import (
	"time"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

// Header is the fixed on-disk column order for users.matrix.csv.
var Header = []string{
	"username", "password", "roles", "firstname", "lastname",
	"address", "email", "social", "created_at", "updated_at",
	"last_login", "is_active", "description",
}

const timeLayout = time.RFC3339

func recordToMatrix(r record) codec.MatrixRecord {
	fields := map[string]codec.MatrixValue{
		"username":  codec.Single(r.username),
		"password":  codec.Single(r.passwordHash),
		"roles":     codec.List(r.roles...),
		"firstname": codec.Single(r.firstName),
		"lastname":  codec.Single(r.lastName),
		"address":   codec.Single(r.address),
		"email":     codec.Single(r.email),
		"social":    codec.Single(r.social),
		"created_at": codec.Single(r.createdAt.UTC().Format(timeLayout)),
		"updated_at": codec.Single(r.updatedAt.UTC().Format(timeLayout)),
		"is_active":  codec.Single(boolString(r.isActive)),
	}
	if !r.lastLogin.IsZero() {
		fields["last_login"] = codec.Single(r.lastLogin.UTC().Format(timeLayout))
	} else {
		fields["last_login"] = codec.Single("")
	}
	return codec.MatrixRecord{
		Order:       Header[:len(Header)-1],
		Fields:      fields,
		Description: r.description,
	}
}

func matrixToRecord(m codec.MatrixRecord) (record, error) {
	var r record
	r.description = m.Description

	username, _ := m.Get("username")
	r.username = username.Single

	password, _ := m.Get("password")
	r.passwordHash = password.Single

	if roles, ok := m.Get("roles"); ok {
		switch roles.Kind {
		case codec.KindList:
			r.roles = roles.List
		case codec.KindSingle:
			if roles.Single != "" {
				r.roles = []string{roles.Single}
			}
		}
	}

	firstName, _ := m.Get("firstname")
	r.firstName = firstName.Single
	lastName, _ := m.Get("lastname")
	r.lastName = lastName.Single
	address, _ := m.Get("address")
	r.address = address.Single
	email, _ := m.Get("email")
	r.email = email.Single
	social, _ := m.Get("social")
	r.social = social.Single

	isActive, _ := m.Get("is_active")
	r.isActive = isActive.Single == "true"

	var err error
	if createdAt, ok := m.Get("created_at"); ok && createdAt.Single != "" {
		if r.createdAt, err = time.Parse(timeLayout, createdAt.Single); err != nil {
			return record{}, &corerr.ParseError{Input: createdAt.Single, Reason: "malformed created_at timestamp"}
		}
	}
	if updatedAt, ok := m.Get("updated_at"); ok && updatedAt.Single != "" {
		if r.updatedAt, err = time.Parse(timeLayout, updatedAt.Single); err != nil {
			return record{}, &corerr.ParseError{Input: updatedAt.Single, Reason: "malformed updated_at timestamp"}
		}
	}
	if lastLogin, ok := m.Get("last_login"); ok && lastLogin.Single != "" {
		if r.lastLogin, err = time.Parse(timeLayout, lastLogin.Single); err != nil {
			return record{}, &corerr.ParseError{Input: lastLogin.Single, Reason: "malformed last_login timestamp"}
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
