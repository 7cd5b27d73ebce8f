package taxonomy

import (
	"strconv"
	"time"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

// AssignmentHeader is the fixed on-disk column order for assignments.matrix.csv.
var AssignmentHeader = []string{"entity_id", "term_id", "properties", "description"}

const (
	propAssignedBy = "assigned_by"
	propAssignedAt = "assigned_at"
	propContext    = "context"
)

const assignedAtLayout = time.RFC3339

func assignmentToMatrix(a Assignment) codec.MatrixRecord {
	items := []codec.ModifiedItem{
		{Name: propWeight, Mods: []string{strconv.Itoa(a.Weight)}},
		{Name: propEnabled, Mods: []string{boolString(a.Enabled)}},
	}
	if a.AssignedBy != "" {
		items = append(items, codec.ModifiedItem{Name: propAssignedBy, Mods: []string{a.AssignedBy}})
	}
	if !a.AssignedAt.IsZero() {
		items = append(items, codec.ModifiedItem{Name: propAssignedAt, Mods: []string{a.AssignedAt.UTC().Format(assignedAtLayout)}})
	}
	if a.Context != "" {
		items = append(items, codec.ModifiedItem{Name: propContext, Mods: []string{a.Context}})
	}

	fields := map[string]codec.MatrixValue{
		"entity_id":  codec.Single(a.EntityID),
		"term_id":    codec.Single(a.TermID),
		"properties": codec.ModifiedListValue(items...),
	}
	return codec.MatrixRecord{
		Order:       AssignmentHeader[:len(AssignmentHeader)-1],
		Fields:      fields,
		Description: a.Description,
	}
}

func matrixToAssignment(m codec.MatrixRecord) (Assignment, error) {
	var a Assignment
	a.Description = m.Description

	if v, ok := m.Get("entity_id"); ok {
		a.EntityID = v.Single
	}
	if v, ok := m.Get("term_id"); ok {
		a.TermID = v.Single
	}

	props, _ := m.Get("properties")
	items := props.ModifiedList
	if props.Kind == codec.KindModified {
		items = []codec.ModifiedItem{{Name: props.ModifiedName, Mods: props.ModifiedMods}}
	}
	for _, item := range items {
		val := firstOrEmpty(item.Mods)
		switch item.Name {
		case propWeight:
			if val != "" {
				n, err := strconv.Atoi(val)
				if err != nil {
					return Assignment{}, &corerr.ParseError{Input: val, Reason: "malformed weight property"}
				}
				a.Weight = n
			}
		case propEnabled:
			a.Enabled = val == "true"
		case propAssignedBy:
			a.AssignedBy = val
		case propAssignedAt:
			if val != "" {
				ts, err := time.Parse(assignedAtLayout, val)
				if err != nil {
					return Assignment{}, &corerr.ParseError{Input: val, Reason: "malformed assigned_at timestamp"}
				}
				a.AssignedAt = ts
			}
		case propContext:
			a.Context = val
		}
	}

	return a, nil
}
