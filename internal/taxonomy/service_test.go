package taxonomy

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	svc := NewService(filepath.Join(dir, "terms.matrix.csv"), filepath.Join(dir, "assignments.matrix.csv"), nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestCreateTerm_RejectsMissingParent(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateTerm(CreateTermInput{TermID: "rust", Parent: "tech"})
	if err == nil {
		t.Fatal("expected reference to a non-existent parent to fail")
	}
}

func TestCreateTerm_RoundTripsProperties(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTerm(CreateTermInput{
		TermID: "tech", Vocabulary: "topics", Weight: 1, Enabled: true, Color: "#336699",
	}); err != nil {
		t.Fatalf("create tech: %v", err)
	}

	reloaded := NewService(svc.termsPath, svc.assignmentsPath, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := reloaded.GetTerm("tech")
	if err != nil {
		t.Fatalf("GetTerm: %v", err)
	}
	if got.Vocabulary != "topics" || got.Weight != 1 || !got.Enabled || got.Color != "#336699" {
		t.Fatalf("unexpected term after reload: %+v", got)
	}
}

func TestHierarchy_DetectsCircularParentOnUpdate(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "tech"}); err != nil {
		t.Fatalf("create tech: %v", err)
	}
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "rust", Parent: "tech"}); err != nil {
		t.Fatalf("create rust: %v", err)
	}

	newParent := "rust"
	_, err := svc.UpdateTerm("tech", UpdateTermInput{Parent: &newParent})
	if err == nil {
		t.Fatal("expected circular hierarchy to be rejected")
	}
}

func TestGetHierarchyPath_WalksRootward(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "tech"}); err != nil {
		t.Fatalf("create tech: %v", err)
	}
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "rust", Parent: "tech"}); err != nil {
		t.Fatalf("create rust: %v", err)
	}

	path, err := svc.GetHierarchyPath("rust")
	if err != nil {
		t.Fatalf("GetHierarchyPath: %v", err)
	}
	if len(path) != 2 || path[0].TermID != "tech" || path[1].TermID != "rust" {
		t.Fatalf("unexpected path: %+v", path)
	}
}

func TestBuildHierarchyTree_SortsByWeight(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "tech"}); err != nil {
		t.Fatalf("create tech: %v", err)
	}
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "rust", Parent: "tech", Weight: 2}); err != nil {
		t.Fatalf("create rust: %v", err)
	}
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "go", Parent: "tech", Weight: 1}); err != nil {
		t.Fatalf("create go: %v", err)
	}

	forest, err := svc.BuildHierarchyTree("")
	if err != nil {
		t.Fatalf("BuildHierarchyTree: %v", err)
	}
	if len(forest) != 1 || forest[0].Term.TermID != "tech" {
		t.Fatalf("unexpected forest: %+v", forest)
	}
	kids := forest[0].Children
	if len(kids) != 2 || kids[0].Term.TermID != "go" || kids[1].Term.TermID != "rust" {
		t.Fatalf("expected go (weight 1) before rust (weight 2), got %+v", kids)
	}
}

// TestTaxonomy_ReferentialIntegrity exercises spec.md §8 scenario S7.
func TestTaxonomy_ReferentialIntegrity(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "tech"}); err != nil {
		t.Fatalf("create tech: %v", err)
	}
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "rust", Parent: "tech"}); err != nil {
		t.Fatalf("create rust: %v", err)
	}
	if _, err := svc.AssignTerm(AssignInput{EntityID: "blog.post.1", TermID: "rust", Enabled: true}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := svc.DeleteTerm("tech", true); err == nil {
		t.Fatal("expected delete of tech to fail: it has a child term")
	}
	if err := svc.DeleteTerm("rust", true); err == nil {
		t.Fatal("expected delete of rust to fail: an assignment references it")
	}

	if err := svc.UnassignTerm("blog.post.1", "rust"); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if err := svc.DeleteTerm("rust", true); err != nil {
		t.Fatalf("expected delete of rust to succeed once unassigned: %v", err)
	}
	if err := svc.DeleteTerm("tech", true); err != nil {
		t.Fatalf("expected delete of tech to succeed once childless: %v", err)
	}
}

func TestBulkAssignTerms_AllOrNothing(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTerm(CreateTermInput{TermID: "tech"}); err != nil {
		t.Fatalf("create tech: %v", err)
	}

	_, err := svc.BulkAssignTerms([]AssignInput{
		{EntityID: "post.1", TermID: "tech", Enabled: true},
		{EntityID: "post.2", TermID: "missing", Enabled: true},
	})
	if err == nil {
		t.Fatal("expected bulk assign to fail validation for a missing term")
	}

	entities, err := svc.GetTermEntities("tech", true)
	if err != nil {
		t.Fatalf("GetTermEntities: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("expected no partial write on validation failure, got %+v", entities)
	}

	if _, err := svc.BulkAssignTerms([]AssignInput{
		{EntityID: "post.1", TermID: "tech", Enabled: true, Weight: 2},
		{EntityID: "post.2", TermID: "tech", Enabled: false, Weight: 1},
	}); err != nil {
		t.Fatalf("bulk assign: %v", err)
	}

	entities, err = svc.GetTermEntities("tech", true)
	if err != nil {
		t.Fatalf("GetTermEntities: %v", err)
	}
	if len(entities) != 2 || entities[0].EntityID != "post.2" {
		t.Fatalf("expected entities sorted by weight, got %+v", entities)
	}

	enabledOnly, err := svc.GetTermEntities("tech", false)
	if err != nil {
		t.Fatalf("GetTermEntities enabled-only: %v", err)
	}
	if len(enabledOnly) != 1 || enabledOnly[0].EntityID != "post.1" {
		t.Fatalf("expected only post.1 to be enabled, got %+v", enabledOnly)
	}
}

func TestUsageAnalytics_PopularAndUnusedTerms(t *testing.T) {
	svc := newTestService(t)
	for _, id := range []string{"tech", "go", "rust"} {
		if _, err := svc.CreateTerm(CreateTermInput{TermID: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := svc.AssignTerm(AssignInput{EntityID: "e1", TermID: "go", Enabled: true}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.AssignTerm(AssignInput{EntityID: "e2", TermID: "go", Enabled: true}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.AssignTerm(AssignInput{EntityID: "e3", TermID: "rust", Enabled: true}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	popular, err := svc.GetPopularTerms(2)
	if err != nil {
		t.Fatalf("GetPopularTerms: %v", err)
	}
	if len(popular) != 2 || popular[0].TermID != "go" || popular[0].AssignmentCount != 2 {
		t.Fatalf("unexpected popular terms: %+v", popular)
	}

	unused, err := svc.GetUnusedTerms()
	if err != nil {
		t.Fatalf("GetUnusedTerms: %v", err)
	}
	if len(unused) != 1 || unused[0].TermID != "tech" {
		t.Fatalf("expected tech to be unused, got %+v", unused)
	}

	if err := svc.IncrementUsage("tech"); err != nil {
		t.Fatalf("IncrementUsage: %v", err)
	}
	stats, err := svc.GetUsageStats()
	if err != nil {
		t.Fatalf("GetUsageStats: %v", err)
	}
	for _, st := range stats {
		if st.TermID == "tech" && st.IncrementCount != 1 {
			t.Fatalf("expected tech's increment count to be 1, got %+v", st)
		}
	}
}
