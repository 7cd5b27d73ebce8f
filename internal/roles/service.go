package roles

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// UserRoleSource lets the role service find which roles a user currently
// holds, so it can invalidate their decision-cache entries on a role
// change without importing internal/users.
type UserRoleSource interface {
	// UsersInRole returns the usernames of every user who (directly)
	// holds roleName.
	UsersInRole(roleName string) ([]string, error)
}

// Service owns roles.matrix.csv, the inheritance/permission resolver,
// and the permission decision cache (spec.md §4.6).
type Service struct {
	path          string
	backupManager codec.Snapshotter
	users         UserRoleSource
	conditions    *conditionEvaluator
	decisions     *decisionCache

	mu    sync.RWMutex
	roles map[string]Role

	fileLock sync.Mutex
	now      func() time.Time
}

// NewService constructs a Service backed by the matrix file at path.
// meta resolves conditional-permission rule expressions; users (may be
// nil, in which case decision-cache invalidation always falls back to a
// global clear) reports which users hold a given role.
func NewService(path string, backupManager codec.Snapshotter, meta MetaSource, users UserRoleSource) (*Service, error) {
	evaluator, err := newConditionEvaluator(meta)
	if err != nil {
		return nil, err
	}
	return &Service{
		path:          path,
		backupManager: backupManager,
		users:         users,
		conditions:    evaluator,
		decisions:     newDecisionCache(),
		roles:         make(map[string]Role),
		now:           time.Now,
	}, nil
}

// Load reads roles.matrix.csv into the in-memory cache.
func (s *Service) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &corerr.IoError{Operation: "open", Path: s.path, Reason: err.Error()}
	}
	defer f.Close()

	_, rows, err := codec.ParseMatrixFile(f)
	if err != nil {
		return err
	}

	cache := make(map[string]Role, len(rows))
	for _, row := range rows {
		role, err := matrixToRole(row)
		if err != nil {
			return err
		}
		cache[role.RoleName] = role
	}

	s.mu.Lock()
	s.roles = cache
	s.mu.Unlock()
	return nil
}

// CreateRole validates the grammar, checks for an inheritance cycle, and
// writes the new role through.
func (s *Service) CreateRole(in CreateInput) (Role, error) {
	if !roleNamePattern.MatchString(in.RoleName) {
		return Role{}, &corerr.ValidationError{Field: "rolename", Value: in.RoleName, Constraint: "must be a non-empty lowercase identifier"}
	}
	for _, p := range in.Permissions {
		if err := ValidatePermission(p); err != nil {
			return Role{}, err
		}
	}

	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	_, exists := s.roles[in.RoleName]
	s.mu.RUnlock()
	if exists {
		return Role{}, &corerr.ValidationError{Field: "rolename", Value: in.RoleName, Constraint: "already in use"}
	}

	now := s.now()
	role := Role{
		RoleName:    in.RoleName,
		Permissions: in.Permissions,
		Conditions:  in.Conditions,
		Inherits:    in.Inherits,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsActive:    true,
	}

	if role.Inherits != "" {
		s.mu.RLock()
		_, err := s.inheritanceChainLocked(role.RoleName, role.Inherits)
		s.mu.RUnlock()
		if err != nil {
			return Role{}, err
		}
	}

	if err := s.writeWithLocked(role); err != nil {
		return Role{}, err
	}
	s.decisions.invalidateAll()
	return role, nil
}

// GetRole returns a role with its EffectivePermissions resolved by
// walking the inheritance chain (child to parent) and merging.
func (s *Service) GetRole(roleName string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[roleName]
	if !ok {
		return Role{}, &corerr.NotFound{Resource: "role", Context: roleName}
	}

	chain, err := s.permissionChainLocked(roleName)
	if err != nil {
		return Role{}, err
	}
	role.EffectivePermissions = resolveEffective(chain)
	return role, nil
}

// ListRoles returns every role, sorted by rolename.
func (s *Service) ListRoles() ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleName < out[j].RoleName })
	return out, nil
}

// UpdateRole merges a partial change into roleName, re-checking the
// inheritance DAG if Inherits changes, and invalidates the decision
// cache for every user holding the role (or, with no UserRoleSource
// wired in, the whole cache).
func (s *Service) UpdateRole(roleName string, in UpdateInput) (Role, error) {
	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	role, ok := s.roles[roleName]
	s.mu.RUnlock()
	if !ok {
		return Role{}, &corerr.NotFound{Resource: "role", Context: roleName}
	}

	if in.Permissions != nil {
		for _, p := range *in.Permissions {
			if err := ValidatePermission(p); err != nil {
				return Role{}, err
			}
		}
		role.Permissions = *in.Permissions
	}
	if in.Conditions != nil {
		role.Conditions = *in.Conditions
	}
	if in.Inherits != nil {
		if *in.Inherits != "" {
			s.mu.RLock()
			_, err := s.inheritanceChainLocked(roleName, *in.Inherits)
			s.mu.RUnlock()
			if err != nil {
				return Role{}, err
			}
		}
		role.Inherits = *in.Inherits
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}
	role.UpdatedAt = s.now()

	if err := s.writeWithLocked(role); err != nil {
		return Role{}, err
	}
	s.invalidateForRole(roleName)
	return role, nil
}

// DeleteRole removes roleName, requiring confirmation and failing if any
// user holds it or any other role inherits it.
func (s *Service) DeleteRole(roleName string, confirm bool) error {
	if !confirm {
		return &corerr.ValidationError{Field: "confirm", Value: "false", Constraint: "delete_role requires confirm=true"}
	}

	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	_, ok := s.roles[roleName]
	if !ok {
		s.mu.RUnlock()
		return &corerr.NotFound{Resource: "role", Context: roleName}
	}
	for _, r := range s.roles {
		if r.Inherits == roleName {
			s.mu.RUnlock()
			return &corerr.ValidationError{Field: "rolename", Value: roleName, Constraint: "is inherited by another role"}
		}
	}
	s.mu.RUnlock()

	if s.users != nil {
		holders, err := s.users.UsersInRole(roleName)
		if err != nil {
			return err
		}
		if len(holders) > 0 {
			return &corerr.ValidationError{Field: "rolename", Value: roleName, Constraint: "is held by at least one user"}
		}
	}

	if err := s.writeAllLocked(func(cache map[string]Role) {
		delete(cache, roleName)
	}); err != nil {
		return err
	}
	s.decisions.invalidateAll()
	return nil
}

// CheckPermission resolves whether user (holding roles) may perform
// action on resource, first via the flag-based grammar (cached) and,
// when a matching condition is registered, AND'd with a CEL guard
// (spec.md §4.6; SPEC_FULL.md §4.6).
func (s *Service) CheckPermission(user string, userRoles []string, resource, action string, authCtx, reqCtx map[string]any) (bool, error) {
	if cached, ok := s.decisions.get(user, resource, action); ok {
		recordDecision(true)
		return cached, nil
	}
	recordDecision(false)

	s.mu.RLock()
	var chains [][]Permission
	var condChains [][]Condition
	for _, rn := range userRoles {
		chain, err := s.permissionChainLocked(rn)
		if err != nil {
			continue
		}
		chains = append(chains, chain...)
		condChains = append(condChains, s.conditionChainLocked(rn)...)
	}
	s.mu.RUnlock()

	decision := mergePermissions(chains, resource, action)
	if decision {
		if ruleName, ok := matchingCondition(condChains, resource); ok {
			ok2, err := s.conditions.Evaluate(ruleName, authCtx, reqCtx)
			if err != nil {
				return false, err
			}
			decision = decision && ok2
		}
	}

	s.decisions.set(user, resource, action, decision)
	return decision, nil
}

// InvalidateDecisions clears every cached decision (a global invalidate,
// spec.md §4.6).
func (s *Service) InvalidateDecisions() { s.decisions.invalidateAll() }

// OnMetaSet satisfies store.MetaObserver. When key names a rule
// ("rule.<rule_name>"), it drops the compiled CEL program so the next
// CheckPermission recompiles from the rewritten expression instead of
// evaluating the stale one forever (spec.md §4.6; SPEC_FULL.md §4.6).
// Any other meta key is ignored.
func (s *Service) OnMetaSet(key string) {
	const rulePrefix = "rule."
	if !strings.HasPrefix(key, rulePrefix) {
		return
	}
	s.conditions.Invalidate(strings.TrimPrefix(key, rulePrefix))
}

// invalidateForRole invalidates decisions for every user holding
// roleName directly, plus every user holding a role whose inheritance
// chain reaches roleName (spec.md §4.6: a user's merged permissions
// include every ancestor's, so changing an ancestor must invalidate its
// descendants' holders too, not just roleName's own).
func (s *Service) invalidateForRole(roleName string) {
	if s.users == nil {
		s.decisions.invalidateAll()
		return
	}

	s.mu.RLock()
	affected := append([]string{roleName}, s.descendantRolesLocked(roleName)...)
	s.mu.RUnlock()

	for _, rn := range affected {
		holders, err := s.users.UsersInRole(rn)
		if err != nil {
			s.decisions.invalidateAll()
			return
		}
		for _, u := range holders {
			s.decisions.invalidateUser(u)
		}
	}
}

// descendantRolesLocked returns every role name whose Inherits chain
// transitively reaches roleName. Caller must hold s.mu (read or write).
func (s *Service) descendantRolesLocked(roleName string) []string {
	var out []string
	for name := range s.roles {
		if name == roleName {
			continue
		}
		visited := map[string]bool{}
		for cur := s.roles[name].Inherits; cur != ""; {
			if visited[cur] {
				break
			}
			visited[cur] = true
			if cur == roleName {
				out = append(out, name)
				break
			}
			role, ok := s.roles[cur]
			if !ok {
				break
			}
			cur = role.Inherits
		}
	}
	return out
}

// inheritanceChainLocked walks from parent upward, failing if roleName
// is revisited (a cycle back to the role being created/updated) or any
// other cycle is found. Caller must hold s.mu (read or write).
func (s *Service) inheritanceChainLocked(roleName, parent string) ([]string, error) {
	visited := map[string]bool{roleName: true}
	chain := []string{}
	cur := parent
	for cur != "" {
		if visited[cur] {
			return nil, &corerr.ValidationError{Field: "inherits", Value: cur, Constraint: "would introduce a circular inheritance"}
		}
		visited[cur] = true
		chain = append(chain, cur)
		next, ok := s.roles[cur]
		if !ok {
			break
		}
		cur = next.Inherits
	}
	return chain, nil
}

// permissionChainLocked returns [roleName's own permissions, parent's,
// grandparent's, ...] in child-to-parent order. Caller must hold s.mu.
func (s *Service) permissionChainLocked(roleName string) ([][]Permission, error) {
	visited := map[string]bool{}
	var chain [][]Permission
	cur := roleName
	for cur != "" {
		if visited[cur] {
			return nil, &corerr.ValidationError{Field: "inherits", Value: cur, Constraint: "circular inheritance detected"}
		}
		visited[cur] = true
		role, ok := s.roles[cur]
		if !ok {
			break
		}
		chain = append(chain, role.Permissions)
		cur = role.Inherits
	}
	return chain, nil
}

func (s *Service) conditionChainLocked(roleName string) [][]Condition {
	visited := map[string]bool{}
	var chain [][]Condition
	cur := roleName
	for cur != "" {
		if visited[cur] {
			break
		}
		visited[cur] = true
		role, ok := s.roles[cur]
		if !ok {
			break
		}
		chain = append(chain, role.Conditions)
		cur = role.Inherits
	}
	return chain
}

func matchingCondition(chains [][]Condition, resource string) (string, bool) {
	for _, conds := range chains {
		for _, c := range conds {
			if resourceMatches(c.Resource, resource) {
				return c.RuleName, true
			}
		}
	}
	return "", false
}

func resolveEffective(chain [][]Permission) []Permission {
	seen := map[string]bool{}
	var out []Permission
	for _, perms := range chain {
		for _, p := range perms {
			if seen[p.Resource] {
				continue
			}
			seen[p.Resource] = true
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) writeWithLocked(role Role) error {
	return s.writeAllLocked(func(cache map[string]Role) {
		cache[role.RoleName] = role
	})
}

func (s *Service) writeAllLocked(mutate func(map[string]Role)) error {
	s.mu.Lock()
	merged := make(map[string]Role, len(s.roles))
	for k, v := range s.roles {
		merged[k] = v
	}
	mutate(merged)

	names := make([]string, 0, len(merged))
	for n := range merged {
		names = append(names, n)
	}
	sort.Strings(names)

	rows := make([]codec.MatrixRecord, 0, len(merged))
	for _, n := range names {
		rows = append(rows, roleToMatrix(merged[n]))
	}

	data := codec.EmitMatrixFile(Header, rows)
	if err := codec.AtomicWrite(s.path, data, s.backupManager); err != nil {
		s.mu.Unlock()
		return err
	}

	s.roles = merged
	s.mu.Unlock()
	return nil
}
