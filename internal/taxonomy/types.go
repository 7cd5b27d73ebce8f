// Package taxonomy implements C8: term CRUD with a hierarchical parent
// relation over one matrix file, (entity, term) assignment CRUD over a
// second matrix file, hierarchy and referential-integrity checks, and
// usage analytics (spec.md §4.7).
package taxonomy

import "time"

// Term is the public shape of a taxonomy term.
type Term struct {
	TermID      string
	Vocabulary  string
	Weight      int
	Parent      string
	Enabled     bool
	Color       string
	Icon        string
	Extras      map[string]string
	Description string
	UsageCount  int
}

// CreateTermInput is the request shape for create_term.
type CreateTermInput struct {
	TermID      string
	Vocabulary  string
	Weight      int
	Parent      string
	Enabled     bool
	Color       string
	Icon        string
	Extras      map[string]string
	Description string
}

// UpdateTermInput is a partial merge for update_term.
type UpdateTermInput struct {
	Vocabulary  *string
	Weight      *int
	Parent      *string
	Enabled     *bool
	Color       *string
	Icon        *string
	Extras      map[string]string
	Description *string
}

// HierarchyNode is one node of the forest build_hierarchy_tree returns.
type HierarchyNode struct {
	Term     Term
	Children []HierarchyNode
}

// Assignment is the public shape of an (entity, term) link.
type Assignment struct {
	EntityID    string
	TermID      string
	Weight      int
	Enabled     bool
	AssignedBy  string
	AssignedAt  time.Time
	Context     string
	Description string
}

// AssignInput is the request shape for assign_term and the elements of
// bulk_assign_terms.
type AssignInput struct {
	EntityID    string
	TermID      string
	Weight      int
	Enabled     bool
	AssignedBy  string
	Context     string
	Description string
}

// UsageStats is the return shape of get_usage_stats for one term.
type UsageStats struct {
	TermID        string
	AssignmentCount int
	IncrementCount  int
}
