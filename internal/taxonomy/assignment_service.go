package taxonomy

import (
	"sort"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

// AssignTerm links entity to term, requiring term to exist.
func (s *Service) AssignTerm(in AssignInput) (Assignment, error) {
	s.termsMu.RLock()
	_, ok := s.terms[in.TermID]
	s.termsMu.RUnlock()
	if !ok {
		return Assignment{}, &corerr.ValidationError{Field: "term_id", Value: in.TermID, Constraint: "references a non-existent term"}
	}

	a := Assignment{
		EntityID:    in.EntityID,
		TermID:      in.TermID,
		Weight:      in.Weight,
		Enabled:     in.Enabled,
		AssignedBy:  in.AssignedBy,
		AssignedAt:  s.now(),
		Context:     in.Context,
		Description: sanitizer.Sanitize(in.Description),
	}

	s.assignmentsFileLock.Lock()
	defer s.assignmentsFileLock.Unlock()
	if err := s.writeAssignmentsLocked(func(all map[string][]Assignment) {
		list := all[a.TermID]
		for i, existing := range list {
			if existing.EntityID == a.EntityID {
				list[i] = a
				all[a.TermID] = list
				return
			}
		}
		all[a.TermID] = append(list, a)
	}); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// UnassignTerm removes the (entity, term) link, if present.
func (s *Service) UnassignTerm(entityID, termID string) error {
	s.assignmentsFileLock.Lock()
	defer s.assignmentsFileLock.Unlock()
	return s.writeAssignmentsLocked(func(all map[string][]Assignment) {
		list := all[termID]
		filtered := list[:0]
		for _, a := range list {
			if a.EntityID != entityID {
				filtered = append(filtered, a)
			}
		}
		if len(filtered) == 0 {
			delete(all, termID)
		} else {
			all[termID] = filtered
		}
	})
}

// GetEntityTerms returns the terms assigned to entityID, sorted by
// assignment weight.
func (s *Service) GetEntityTerms(entityID string) ([]Assignment, error) {
	s.assignmentsMu.RLock()
	defer s.assignmentsMu.RUnlock()

	var out []Assignment
	for _, list := range s.assignments {
		for _, a := range list {
			if a.EntityID == entityID {
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	return out, nil
}

// GetTermEntities returns the assignments for termID, sorted by weight,
// filtered to enabled=true unless includeDisabled is set.
func (s *Service) GetTermEntities(termID string, includeDisabled bool) ([]Assignment, error) {
	s.assignmentsMu.RLock()
	defer s.assignmentsMu.RUnlock()

	list := s.assignments[termID]
	out := make([]Assignment, 0, len(list))
	for _, a := range list {
		if !includeDisabled && !a.Enabled {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	return out, nil
}

// BulkAssignTerms applies every input atomically: all entries are
// validated and merged into a copy of the in-memory cache before the
// single resulting write, and the cache is replaced only after that write
// succeeds, so a failure part-way through leaves the file and cache
// untouched (spec.md §4.7, §5 "no ordering guarantee across
// files... bulk_assign_terms is the only bulk atomic defined here").
func (s *Service) BulkAssignTerms(inputs []AssignInput) ([]Assignment, error) {
	s.termsMu.RLock()
	for _, in := range inputs {
		if _, ok := s.terms[in.TermID]; !ok {
			s.termsMu.RUnlock()
			return nil, &corerr.ValidationError{Field: "term_id", Value: in.TermID, Constraint: "references a non-existent term"}
		}
	}
	s.termsMu.RUnlock()

	now := s.now()
	built := make([]Assignment, len(inputs))
	for i, in := range inputs {
		built[i] = Assignment{
			EntityID:    in.EntityID,
			TermID:      in.TermID,
			Weight:      in.Weight,
			Enabled:     in.Enabled,
			AssignedBy:  in.AssignedBy,
			AssignedAt:  now,
			Context:     in.Context,
			Description: sanitizer.Sanitize(in.Description),
		}
	}

	s.assignmentsFileLock.Lock()
	defer s.assignmentsFileLock.Unlock()
	if err := s.writeAssignmentsLocked(func(all map[string][]Assignment) {
		for _, a := range built {
			list := all[a.TermID]
			replaced := false
			for i, existing := range list {
				if existing.EntityID == a.EntityID {
					list[i] = a
					replaced = true
					break
				}
			}
			if !replaced {
				list = append(list, a)
			}
			all[a.TermID] = list
		}
	}); err != nil {
		return nil, err
	}
	return built, nil
}

// IncrementUsage bumps term_id's usage_count by one (called whenever
// content referencing the term is published, per the caller's policy).
func (s *Service) IncrementUsage(termID string) error {
	s.termsFileLock.Lock()
	defer s.termsFileLock.Unlock()

	s.termsMu.RLock()
	term, ok := s.terms[termID]
	s.termsMu.RUnlock()
	if !ok {
		return &corerr.NotFound{Resource: "term", Context: termID}
	}
	term.UsageCount++
	return s.writeTermLocked(term)
}

// GetUsageStats reports, for every term, its live assignment count and
// its usage_count increment total.
func (s *Service) GetUsageStats() ([]UsageStats, error) {
	s.termsMu.RLock()
	terms := make([]Term, 0, len(s.terms))
	for _, t := range s.terms {
		terms = append(terms, t)
	}
	s.termsMu.RUnlock()

	s.assignmentsMu.RLock()
	defer s.assignmentsMu.RUnlock()

	out := make([]UsageStats, 0, len(terms))
	for _, t := range terms {
		out = append(out, UsageStats{
			TermID:          t.TermID,
			AssignmentCount: len(s.assignments[t.TermID]),
			IncrementCount:  t.UsageCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TermID < out[j].TermID })
	return out, nil
}

// GetPopularTerms returns the n terms with the highest assignment count,
// ties broken by term_id.
func (s *Service) GetPopularTerms(n int) ([]UsageStats, error) {
	stats, err := s.GetUsageStats()
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AssignmentCount != stats[j].AssignmentCount {
			return stats[i].AssignmentCount > stats[j].AssignmentCount
		}
		return stats[i].TermID < stats[j].TermID
	})
	if n < len(stats) {
		stats = stats[:n]
	}
	return stats, nil
}

// GetUnusedTerms returns every term with zero live assignments.
func (s *Service) GetUnusedTerms() ([]Term, error) {
	s.termsMu.RLock()
	defer s.termsMu.RUnlock()
	s.assignmentsMu.RLock()
	defer s.assignmentsMu.RUnlock()

	var out []Term
	for _, t := range s.terms {
		if len(s.assignments[t.TermID]) == 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TermID < out[j].TermID })
	return out, nil
}

func (s *Service) writeAssignmentsLocked(mutate func(map[string][]Assignment)) error {
	s.assignmentsMu.Lock()
	merged := make(map[string][]Assignment, len(s.assignments))
	for k, v := range s.assignments {
		cp := make([]Assignment, len(v))
		copy(cp, v)
		merged[k] = cp
	}
	mutate(merged)

	termIDs := make([]string, 0, len(merged))
	for t := range merged {
		termIDs = append(termIDs, t)
	}
	sort.Strings(termIDs)

	var rows []codec.MatrixRecord
	for _, t := range termIDs {
		list := merged[t]
		sort.Slice(list, func(i, j int) bool { return list[i].EntityID < list[j].EntityID })
		for _, a := range list {
			rows = append(rows, assignmentToMatrix(a))
		}
	}

	data := codec.EmitMatrixFile(AssignmentHeader, rows)
	if err := codec.AtomicWrite(s.assignmentsPath, data, s.backupManager); err != nil {
		s.assignmentsMu.Unlock()
		return err
	}
	s.assignments = merged
	s.assignmentsMu.Unlock()
	return nil
}
