package roles

import (
	"path/filepath"
	"testing"
	"time"
)

type fakeMeta struct {
	rules map[string]string
}

func (f *fakeMeta) GetMeta(key string) (string, bool) {
	v, ok := f.rules[key]
	return v, ok
}

type fakeUserSource struct {
	holders map[string][]string
}

func (f *fakeUserSource) UsersInRole(roleName string) ([]string, error) {
	return f.holders[roleName], nil
}

func newTestServiceFull(t *testing.T, meta MetaSource, users UserRoleSource) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.matrix.csv")
	svc, err := NewService(path, nil, meta, users)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestCreateRole_RoundTripsThroughDisk(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)

	_, err := svc.CreateRole(CreateInput{
		RoleName:    "editor",
		Permissions: []Permission{{Resource: "articles", Flags: "rw-"}},
		Description: "can edit articles",
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	reloaded := newTestServiceFull(t, &fakeMeta{}, nil)
	reloaded.path = svc.path
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := reloaded.GetRole("editor")
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if len(got.EffectivePermissions) != 1 || got.EffectivePermissions[0].Resource != "articles" {
		t.Fatalf("unexpected effective permissions: %+v", got.EffectivePermissions)
	}
}

func TestCreateRole_RejectsDuplicateName(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)
	if _, err := svc.CreateRole(CreateInput{RoleName: "editor"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{RoleName: "editor"}); err == nil {
		t.Fatal("expected duplicate rolename to be rejected")
	}
}

func TestInheritance_DetectsCircularChainOnUpdate(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)

	if _, err := svc.CreateRole(CreateInput{RoleName: "a", Inherits: ""}); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{RoleName: "b", Inherits: "a"}); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{RoleName: "c", Inherits: "b"}); err != nil {
		t.Fatalf("create c: %v", err)
	}

	// a -> c would close the cycle a -> c -> b -> a.
	trueVal := "c"
	_, err := svc.UpdateRole("a", UpdateInput{Inherits: &trueVal})
	if err == nil {
		t.Fatal("expected circular inheritance to be rejected")
	}
}

func TestInheritance_EffectivePermissionsMergeChildFirst(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)

	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "base",
		Permissions: []Permission{{Resource: "articles", Flags: "r--"}},
	}); err != nil {
		t.Fatalf("create base: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "editor",
		Inherits:    "base",
		Permissions: []Permission{{Resource: "articles", Flags: "rw-"}},
	}); err != nil {
		t.Fatalf("create editor: %v", err)
	}

	role, err := svc.GetRole("editor")
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if len(role.EffectivePermissions) != 1 || role.EffectivePermissions[0].Flags != "rw-" {
		t.Fatalf("child permission should win over parent, got %+v", role.EffectivePermissions)
	}
}

func TestCheckPermission_ExplicitWildcardAndMiss(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)
	if _, err := svc.CreateRole(CreateInput{
		RoleName: "support",
		Permissions: []Permission{
			{Resource: "tickets*", Flags: "rw-"},
			{Resource: "*", Flags: "r--"},
		},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.CheckPermission("alice", []string{"support"}, "tickets.42", "w", nil, nil)
	if err != nil || !ok {
		t.Fatalf("expected prefix-matched write to be allowed, got %v %v", ok, err)
	}

	ok, err = svc.CheckPermission("alice", []string{"support"}, "invoices.1", "r", nil, nil)
	if err != nil || !ok {
		t.Fatalf("expected wildcard fallback read to be allowed, got %v %v", ok, err)
	}

	ok, err = svc.CheckPermission("alice", []string{"support"}, "invoices.1", "w", nil, nil)
	if err != nil || ok {
		t.Fatalf("expected wildcard fallback write to be denied, got %v %v", ok, err)
	}
}

func TestCheckPermission_ChildWildcardWinsOverParentExplicit(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "editor",
		Permissions: []Permission{{Resource: "text", Flags: "rwx"}, {Resource: "route", Flags: "rw-"}},
	}); err != nil {
		t.Fatalf("create editor: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "admin",
		Inherits:    "editor",
		Permissions: []Permission{{Resource: "*", Flags: "rwx"}},
	}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	// admin's own "*" must resolve at admin's chain level before
	// editor's explicit route[rw-] is ever consulted.
	ok, err := svc.CheckPermission("erin", []string{"admin"}, "route", "x", nil, nil)
	if err != nil || !ok {
		t.Fatalf("expected admin's own wildcard to grant execute on route, got %v %v", ok, err)
	}
}

func TestCheckPermission_ConditionalRuleGatesDecision(t *testing.T) {
	meta := &fakeMeta{rules: map[string]string{"rule.business_hours": "ctx.hour >= 9 && ctx.hour < 17"}}
	svc := newTestServiceFull(t, meta, nil)

	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "agent",
		Permissions: []Permission{{Resource: "vault", Flags: "rw-"}},
		Conditions:  []Condition{{Resource: "vault", RuleName: "business_hours"}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.CheckPermission("bob", []string{"agent"}, "vault", "r", nil, map[string]any{"hour": int64(10)})
	if err != nil || !ok {
		t.Fatalf("expected in-hours access to be allowed, got %v %v", ok, err)
	}

	ok, err = svc.CheckPermission("carol", []string{"agent"}, "vault", "r", nil, map[string]any{"hour": int64(22)})
	if err != nil || ok {
		t.Fatalf("expected out-of-hours access to be denied, got %v %v", ok, err)
	}
}

func TestCheckPermission_CachesDecisionAndInvalidatesOnRoleUpdate(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, &fakeUserSource{holders: map[string][]string{"viewer": {"dave"}}})
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "viewer",
		Permissions: []Permission{{Resource: "articles", Flags: "r--"}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.CheckPermission("dave", []string{"viewer"}, "articles", "w", nil, nil)
	if err != nil || ok {
		t.Fatalf("expected initial write to be denied, got %v %v", ok, err)
	}

	newPerms := []Permission{{Resource: "articles", Flags: "rw-"}}
	if _, err := svc.UpdateRole("viewer", UpdateInput{Permissions: &newPerms}); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}

	ok, err = svc.CheckPermission("dave", []string{"viewer"}, "articles", "w", nil, nil)
	if err != nil || !ok {
		t.Fatalf("expected write to be allowed after role update invalidated the cache, got %v %v", ok, err)
	}
}

func TestCheckPermission_UpdatingAnAncestorRoleInvalidatesDescendantHolders(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, &fakeUserSource{holders: map[string][]string{"editor": {"erin"}}})
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "base",
		Permissions: []Permission{{Resource: "articles", Flags: "r--"}},
	}); err != nil {
		t.Fatalf("create base: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{
		RoleName: "editor",
		Inherits: "base",
	}); err != nil {
		t.Fatalf("create editor: %v", err)
	}

	// erin holds "editor", not "base" directly, but editor's merged
	// permissions come from base.
	ok, err := svc.CheckPermission("erin", []string{"editor"}, "articles", "w", nil, nil)
	if err != nil || ok {
		t.Fatalf("expected initial write to be denied, got %v %v", ok, err)
	}

	newPerms := []Permission{{Resource: "articles", Flags: "rw-"}}
	if _, err := svc.UpdateRole("base", UpdateInput{Permissions: &newPerms}); err != nil {
		t.Fatalf("UpdateRole base: %v", err)
	}

	ok, err = svc.CheckPermission("erin", []string{"editor"}, "articles", "w", nil, nil)
	if err != nil || !ok {
		t.Fatalf("expected write to be allowed after ancestor role update invalidated erin's cached decision, got %v %v", ok, err)
	}
}

func TestOnMetaSet_InvalidatesCompiledRuleAfterItsExpressionChanges(t *testing.T) {
	meta := &fakeMeta{rules: map[string]string{"rule.business_hours": "ctx.hour >= 9 && ctx.hour < 17"}}
	svc := newTestServiceFull(t, meta, nil)
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "agent",
		Permissions: []Permission{{Resource: "vault", Flags: "rw-"}},
		Conditions:  []Condition{{Resource: "vault", RuleName: "business_hours"}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.CheckPermission("carol", []string{"agent"}, "vault", "r", nil, map[string]any{"hour": int64(22)})
	if err != nil || ok {
		t.Fatalf("expected out-of-hours access to be denied before the rule changes, got %v %v", ok, err)
	}

	meta.rules["rule.business_hours"] = "true"
	svc.OnMetaSet("rule.business_hours")

	// A different user avoids the permission decision cache, isolating
	// the assertion to the condition evaluator's own cache.
	ok, err = svc.CheckPermission("dwight", []string{"agent"}, "vault", "r", nil, map[string]any{"hour": int64(22)})
	if err != nil || !ok {
		t.Fatalf("expected access to be allowed once the rule was rewritten and invalidated, got %v %v", ok, err)
	}
}

func TestOnMetaSet_IgnoresNonRuleKeys(t *testing.T) {
	meta := &fakeMeta{rules: map[string]string{"rule.business_hours": "true"}}
	svc := newTestServiceFull(t, meta, nil)
	if _, err := svc.CreateRole(CreateInput{
		RoleName:    "agent",
		Permissions: []Permission{{Resource: "vault", Flags: "rw-"}},
		Conditions:  []Condition{{Resource: "vault", RuleName: "business_hours"}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CheckPermission("carol", []string{"agent"}, "vault", "r", nil, nil); err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}

	svc.OnMetaSet("greeting") // unrelated meta key, must not panic or affect rule caching
}

func TestDeleteRole_RequiresConfirmationAndNoHolders(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, &fakeUserSource{holders: map[string][]string{"viewer": {"dave"}}})
	if _, err := svc.CreateRole(CreateInput{RoleName: "viewer"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteRole("viewer", false); err == nil {
		t.Fatal("expected delete without confirm to fail")
	}
	if err := svc.DeleteRole("viewer", true); err == nil {
		t.Fatal("expected delete of a role held by a user to fail")
	}

	svc.users = &fakeUserSource{}
	if err := svc.DeleteRole("viewer", true); err != nil {
		t.Fatalf("expected delete to succeed once unheld: %v", err)
	}
	if _, err := svc.GetRole("viewer"); err == nil {
		t.Fatal("expected viewer role to be gone")
	}
}

func TestDeleteRole_BlockedWhileInherited(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)
	if _, err := svc.CreateRole(CreateInput{RoleName: "base"}); err != nil {
		t.Fatalf("create base: %v", err)
	}
	if _, err := svc.CreateRole(CreateInput{RoleName: "child", Inherits: "base"}); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := svc.DeleteRole("base", true); err == nil {
		t.Fatal("expected delete of an inherited-from role to be blocked")
	}
}

func TestListRoles_SortedByName(t *testing.T) {
	svc := newTestServiceFull(t, &fakeMeta{}, nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := svc.CreateRole(CreateInput{RoleName: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	list, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(list) != 3 || list[0].RoleName != "alpha" || list[1].RoleName != "mid" || list[2].RoleName != "zeta" {
		t.Fatalf("unexpected order: %+v", list)
	}
}
