package roles

import (
	"strings"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

func permissionsToMatrixValue(perms []Permission) codec.MatrixValue {
	items := make([]codec.ModifiedItem, len(perms))
	for i, p := range perms {
		items[i] = codec.ModifiedItem{Name: p.Resource, Mods: []string{string(p.Flags)}}
	}
	return codec.ModifiedListValue(items...)
}

func permissionsFromMatrixValue(v codec.MatrixValue) []Permission {
	switch v.Kind {
	case codec.KindModifiedList:
		out := make([]Permission, len(v.ModifiedList))
		for i, item := range v.ModifiedList {
			out[i] = Permission{Resource: item.Name, Flags: Flags(firstOrEmpty(item.Mods))}
		}
		return out
	case codec.KindModified:
		return []Permission{{Resource: v.ModifiedName, Flags: Flags(firstOrEmpty(v.ModifiedMods))}}
	}
	return nil
}

func conditionsToMatrixValue(conds []Condition) codec.MatrixValue {
	items := make([]codec.ModifiedItem, len(conds))
	for i, c := range conds {
		items[i] = codec.ModifiedItem{Name: c.Resource, Mods: []string{c.RuleName}}
	}
	return codec.ModifiedListValue(items...)
}

func conditionsFromMatrixValue(v codec.MatrixValue) []Condition {
	switch v.Kind {
	case codec.KindModifiedList:
		out := make([]Condition, len(v.ModifiedList))
		for i, item := range v.ModifiedList {
			out[i] = Condition{Resource: item.Name, RuleName: firstOrEmpty(item.Mods)}
		}
		return out
	case codec.KindModified:
		return []Condition{{Resource: v.ModifiedName, RuleName: firstOrEmpty(v.ModifiedMods)}}
	}
	return nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// ValidatePermission checks a single resource[flags] entry against the
// grammar of spec.md §4.6.
func ValidatePermission(p Permission) error {
	if p.Resource == "" {
		return &corerr.ValidationError{Field: "resource", Value: p.Resource, Constraint: "must not be empty"}
	}
	if len(p.Flags) != 3 {
		return &corerr.ValidationError{Field: "flags", Value: string(p.Flags), Constraint: "must be exactly 3 characters"}
	}
	for i, allowed := range []byte{'r', 'w', 'x'} {
		c := p.Flags[i]
		if c != allowed && c != '-' {
			return &corerr.ValidationError{Field: "flags", Value: string(p.Flags), Constraint: "each position must be its flag letter or '-'"}
		}
	}
	return nil
}

// mergePermissions implements spec.md §4.6 "Permission merge order":
// child-first evaluation, one chain level at a time. Within a level,
// an explicit (non-"*") match wins; failing that, the level's own "*"
// wildcard applies. Only when a level has neither does resolution fall
// through to the parent level — a child's own wildcard always wins over
// an explicit rule further up the chain, since it is resolved at the
// child's level before the parent is ever consulted.
func mergePermissions(chain [][]Permission, resource, action string) bool {
	for _, perms := range chain {
		var wildcard *Permission
		for i := range perms {
			p := perms[i]
			if p.Resource == "*" {
				if wildcard == nil {
					wildcard = &p
				}
				continue
			}
			if resourceMatches(p.Resource, resource) {
				return p.Flags.Allows(action)
			}
		}
		if wildcard != nil {
			return wildcard.Flags.Allows(action)
		}
	}
	return false
}

func resourceMatches(pattern, resource string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(resource, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == resource
}
