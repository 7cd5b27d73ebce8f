package taxonomy

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

var sanitizer = bluemonday.StrictPolicy()

// Service owns terms.matrix.csv and assignments.matrix.csv, and the
// hierarchy/referential-integrity/analytics operations layered on top of
// them (spec.md §4.7).
type Service struct {
	termsPath       string
	assignmentsPath string
	backupManager   codec.Snapshotter

	termsMu sync.RWMutex
	terms   map[string]Term

	assignmentsMu sync.RWMutex
	assignments   map[string][]Assignment // keyed by term_id

	termsFileLock       sync.Mutex
	assignmentsFileLock sync.Mutex

	now func() time.Time
}

// NewService constructs a Service backed by termsPath/assignmentsPath.
func NewService(termsPath, assignmentsPath string, backupManager codec.Snapshotter) *Service {
	return &Service{
		termsPath:       termsPath,
		assignmentsPath: assignmentsPath,
		backupManager:   backupManager,
		terms:           make(map[string]Term),
		assignments:     make(map[string][]Assignment),
		now:             time.Now,
	}
}

// Load reads both matrix files into memory.
func (s *Service) Load() error {
	terms, err := loadTerms(s.termsPath)
	if err != nil {
		return err
	}
	assignments, err := loadAssignments(s.assignmentsPath)
	if err != nil {
		return err
	}

	s.termsMu.Lock()
	s.terms = terms
	s.termsMu.Unlock()

	s.assignmentsMu.Lock()
	s.assignments = assignments
	s.assignmentsMu.Unlock()
	return nil
}

func loadTerms(path string) (map[string]Term, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Term), nil
		}
		return nil, &corerr.IoError{Operation: "open", Path: path, Reason: err.Error()}
	}
	defer f.Close()

	_, rows, err := codec.ParseMatrixFile(f)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Term, len(rows))
	for _, row := range rows {
		t, err := matrixToTerm(row)
		if err != nil {
			return nil, err
		}
		out[t.TermID] = t
	}
	return out, nil
}

func loadAssignments(path string) (map[string][]Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]Assignment), nil
		}
		return nil, &corerr.IoError{Operation: "open", Path: path, Reason: err.Error()}
	}
	defer f.Close()

	_, rows, err := codec.ParseMatrixFile(f)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Assignment)
	for _, row := range rows {
		a, err := matrixToAssignment(row)
		if err != nil {
			return nil, err
		}
		out[a.TermID] = append(out[a.TermID], a)
	}
	return out, nil
}

// ---- Term operations ----

// CreateTerm validates the parent reference and acyclicity, then writes
// the new term through.
func (s *Service) CreateTerm(in CreateTermInput) (Term, error) {
	if in.TermID == "" {
		return Term{}, &corerr.ValidationError{Field: "term_id", Value: in.TermID, Constraint: "must not be empty"}
	}

	s.termsFileLock.Lock()
	defer s.termsFileLock.Unlock()

	s.termsMu.RLock()
	_, exists := s.terms[in.TermID]
	if in.Parent != "" {
		if _, ok := s.terms[in.Parent]; !ok {
			s.termsMu.RUnlock()
			return Term{}, &corerr.ValidationError{Field: "parent", Value: in.Parent, Constraint: "references a non-existent term"}
		}
	}
	s.termsMu.RUnlock()
	if exists {
		return Term{}, &corerr.ValidationError{Field: "term_id", Value: in.TermID, Constraint: "already in use"}
	}

	term := Term{
		TermID:      in.TermID,
		Vocabulary:  in.Vocabulary,
		Weight:      in.Weight,
		Parent:      in.Parent,
		Enabled:     in.Enabled,
		Color:       in.Color,
		Icon:        in.Icon,
		Extras:      in.Extras,
		Description: sanitizer.Sanitize(in.Description),
	}
	if err := s.writeTermLocked(term); err != nil {
		return Term{}, err
	}
	return term, nil
}

// GetTerm returns a single term by id.
func (s *Service) GetTerm(termID string) (Term, error) {
	s.termsMu.RLock()
	defer s.termsMu.RUnlock()
	t, ok := s.terms[termID]
	if !ok {
		return Term{}, &corerr.NotFound{Resource: "term", Context: termID}
	}
	return t, nil
}

// ListTerms returns every term, optionally filtered by vocabulary,
// sorted by weight then term_id.
func (s *Service) ListTerms(vocabulary string) ([]Term, error) {
	s.termsMu.RLock()
	defer s.termsMu.RUnlock()
	out := make([]Term, 0, len(s.terms))
	for _, t := range s.terms {
		if vocabulary != "" && t.Vocabulary != vocabulary {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight < out[j].Weight
		}
		return out[i].TermID < out[j].TermID
	})
	return out, nil
}

// UpdateTerm merges a partial change, re-validating the parent reference
// and acyclicity when Parent changes.
func (s *Service) UpdateTerm(termID string, in UpdateTermInput) (Term, error) {
	s.termsFileLock.Lock()
	defer s.termsFileLock.Unlock()

	s.termsMu.RLock()
	term, ok := s.terms[termID]
	if !ok {
		s.termsMu.RUnlock()
		return Term{}, &corerr.NotFound{Resource: "term", Context: termID}
	}

	if in.Vocabulary != nil {
		term.Vocabulary = *in.Vocabulary
	}
	if in.Weight != nil {
		term.Weight = *in.Weight
	}
	if in.Enabled != nil {
		term.Enabled = *in.Enabled
	}
	if in.Color != nil {
		term.Color = *in.Color
	}
	if in.Icon != nil {
		term.Icon = *in.Icon
	}
	if in.Description != nil {
		term.Description = sanitizer.Sanitize(*in.Description)
	}
	for k, v := range in.Extras {
		if term.Extras == nil {
			term.Extras = map[string]string{}
		}
		term.Extras[k] = v
	}

	if in.Parent != nil && *in.Parent != term.Parent {
		newParent := *in.Parent
		if newParent != "" {
			if _, ok := s.terms[newParent]; !ok {
				s.termsMu.RUnlock()
				return Term{}, &corerr.ValidationError{Field: "parent", Value: newParent, Constraint: "references a non-existent term"}
			}
			if hasCircularHierarchyLocked(s.terms, termID, newParent) {
				s.termsMu.RUnlock()
				return Term{}, &corerr.ValidationError{Field: "parent", Value: newParent, Constraint: "would introduce a circular hierarchy"}
			}
		}
		term.Parent = newParent
	}
	s.termsMu.RUnlock()

	if err := s.writeTermLocked(term); err != nil {
		return Term{}, err
	}
	return term, nil
}

// DeleteTerm removes termID, requiring confirmation and failing if any
// other term's parent is termID or any assignment references it (spec.md
// §4.7, scenario S7).
func (s *Service) DeleteTerm(termID string, confirm bool) error {
	if !confirm {
		return &corerr.ValidationError{Field: "confirm", Value: "false", Constraint: "delete_term requires confirm=true"}
	}

	s.termsFileLock.Lock()
	defer s.termsFileLock.Unlock()

	s.termsMu.RLock()
	_, ok := s.terms[termID]
	if !ok {
		s.termsMu.RUnlock()
		return &corerr.NotFound{Resource: "term", Context: termID}
	}
	for _, t := range s.terms {
		if t.Parent == termID {
			s.termsMu.RUnlock()
			return &corerr.ValidationError{Field: "term_id", Value: termID, Constraint: "has child terms"}
		}
	}
	s.termsMu.RUnlock()

	s.assignmentsMu.RLock()
	hasAssignments := len(s.assignments[termID]) > 0
	s.assignmentsMu.RUnlock()
	if hasAssignments {
		return &corerr.ValidationError{Field: "term_id", Value: termID, Constraint: "has assignments referencing it"}
	}

	s.termsMu.Lock()
	merged := make(map[string]Term, len(s.terms))
	for k, v := range s.terms {
		merged[k] = v
	}
	delete(merged, termID)
	if err := s.persistTermsLocked(merged); err != nil {
		s.termsMu.Unlock()
		return err
	}
	s.terms = merged
	s.termsMu.Unlock()
	return nil
}

// GetHierarchyPath walks the parent chain root-ward, returning termID
// itself last.
func (s *Service) GetHierarchyPath(termID string) ([]Term, error) {
	s.termsMu.RLock()
	defer s.termsMu.RUnlock()

	var path []Term
	visited := map[string]bool{}
	cur := termID
	for cur != "" {
		if visited[cur] {
			return nil, &corerr.ValidationError{Field: "term_id", Value: cur, Constraint: "circular hierarchy detected"}
		}
		visited[cur] = true
		t, ok := s.terms[cur]
		if !ok {
			return nil, &corerr.NotFound{Resource: "term", Context: cur}
		}
		path = append([]Term{t}, path...)
		cur = t.Parent
	}
	return path, nil
}

// BuildHierarchyTree materialises the forest of vocabulary's terms
// (or all terms if vocabulary is empty), children sorted by weight
// ascending.
func (s *Service) BuildHierarchyTree(vocabulary string) ([]HierarchyNode, error) {
	s.termsMu.RLock()
	defer s.termsMu.RUnlock()

	childrenOf := map[string][]Term{}
	var roots []Term
	for _, t := range s.terms {
		if vocabulary != "" && t.Vocabulary != vocabulary {
			continue
		}
		if t.Parent == "" {
			roots = append(roots, t)
		} else {
			childrenOf[t.Parent] = append(childrenOf[t.Parent], t)
		}
	}

	var build func(t Term) HierarchyNode
	build = func(t Term) HierarchyNode {
		kids := childrenOf[t.TermID]
		sort.Slice(kids, func(i, j int) bool {
			if kids[i].Weight != kids[j].Weight {
				return kids[i].Weight < kids[j].Weight
			}
			return kids[i].TermID < kids[j].TermID
		})
		node := HierarchyNode{Term: t}
		for _, k := range kids {
			node.Children = append(node.Children, build(k))
		}
		return node
	}

	sort.Slice(roots, func(i, j int) bool {
		if roots[i].Weight != roots[j].Weight {
			return roots[i].Weight < roots[j].Weight
		}
		return roots[i].TermID < roots[j].TermID
	})
	forest := make([]HierarchyNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, build(r))
	}
	return forest, nil
}

// HasCircularHierarchy reports whether setting termID's parent to
// newParent would create a cycle.
func (s *Service) HasCircularHierarchy(termID, newParent string) bool {
	s.termsMu.RLock()
	defer s.termsMu.RUnlock()
	return hasCircularHierarchyLocked(s.terms, termID, newParent)
}

func hasCircularHierarchyLocked(terms map[string]Term, termID, newParent string) bool {
	visited := map[string]bool{termID: true}
	cur := newParent
	for cur != "" {
		if visited[cur] {
			return true
		}
		visited[cur] = true
		t, ok := terms[cur]
		if !ok {
			return false
		}
		cur = t.Parent
	}
	return false
}

func (s *Service) writeTermLocked(term Term) error {
	s.termsMu.Lock()
	merged := make(map[string]Term, len(s.terms))
	for k, v := range s.terms {
		merged[k] = v
	}
	merged[term.TermID] = term
	if err := s.persistTermsLocked(merged); err != nil {
		s.termsMu.Unlock()
		return err
	}
	s.terms = merged
	s.termsMu.Unlock()
	return nil
}

func (s *Service) persistTermsLocked(terms map[string]Term) error {
	names := make([]string, 0, len(terms))
	for n := range terms {
		names = append(names, n)
	}
	sort.Strings(names)
	rows := make([]codec.MatrixRecord, 0, len(terms))
	for _, n := range names {
		rows = append(rows, termToMatrix(terms[n]))
	}
	data := codec.EmitMatrixFile(TermHeader, rows)
	return codec.AtomicWrite(s.termsPath, data, s.backupManager)
}
