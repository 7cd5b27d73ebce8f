package users

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/microcosm-cc/bluemonday"

	"github.com/reedcms/reed/internal/auth"
	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// emailPattern is a pragmatic RFC 5322 "addr-spec" check; a full grammar
// is not worth a dependency for one field (no corpus library targets
// email-address validation specifically).
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var sanitizer = bluemonday.StrictPolicy()

// Service owns users.matrix.csv: its in-memory cache, uniqueness
// invariants, and the atomic write path.
type Service struct {
	path          string
	backupManager codec.Snapshotter

	mu    sync.RWMutex
	users map[string]record

	fileLock sync.Mutex

	now func() time.Time
}

// NewService constructs a Service backed by the matrix file at path.
// Call Load before serving any operation.
func NewService(path string, backupManager codec.Snapshotter) *Service {
	return &Service{
		path:          path,
		backupManager: backupManager,
		users:         make(map[string]record),
		now:           time.Now,
	}
}

// Load reads users.matrix.csv into the in-memory cache. A missing file
// is treated as zero users.
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

	cache := make(map[string]record, len(rows))
	for _, row := range rows {
		rec, err := matrixToRecord(row)
		if err != nil {
			return err
		}
		cache[rec.username] = rec
	}

	s.mu.Lock()
	s.users = cache
	s.mu.Unlock()
	return nil
}

// CreateUser validates username/email/password, hashes the password,
// assembles a new row and writes it through (spec.md §4.5).
func (s *Service) CreateUser(in CreateInput) (User, error) {
	if !usernamePattern.MatchString(in.Username) {
		return User{}, &corerr.ValidationError{Field: "username", Value: in.Username, Constraint: "3-32 lowercase letters, digits or underscore"}
	}
	if !emailPattern.MatchString(in.Email) {
		return User{}, &corerr.ValidationError{Field: "email", Value: in.Email, Constraint: "must be a valid email address"}
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return User{}, &corerr.ValidationError{Field: "password", Value: "", Constraint: err.Error()}
	}

	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	_, exists := s.users[in.Username]
	emailTaken := s.emailExistsLocked(in.Email, "")
	s.mu.RUnlock()
	if exists {
		return User{}, &corerr.ValidationError{Field: "username", Value: in.Username, Constraint: "already in use"}
	}
	if emailTaken {
		return User{}, &corerr.ValidationError{Field: "email", Value: in.Email, Constraint: "already in use"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, &corerr.AuthError{Action: "create_user", Reason: err.Error()}
	}

	now := s.now()
	rec := record{
		username:     in.Username,
		passwordHash: hash,
		roles:        append([]string(nil), in.Roles...),
		firstName:    sanitizer.Sanitize(in.FirstName),
		lastName:     sanitizer.Sanitize(in.LastName),
		address:      sanitizer.Sanitize(in.Address),
		email:        in.Email,
		social:       sanitizer.Sanitize(in.Social),
		description:  sanitizer.Sanitize(in.Description),
		createdAt:    now,
		updatedAt:    now,
		isActive:     true,
	}

	if err := s.writeWithLocked(rec); err != nil {
		return User{}, err
	}
	return rec.toPublic(), nil
}

// GetUser returns the user named username, or NotFound.
func (s *Service) GetUser(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[username]
	if !ok {
		return User{}, &corerr.NotFound{Resource: "user", Context: username}
	}
	return rec.toPublic(), nil
}

// ListUsers returns users matching filter, sorted by username.
func (s *Service) ListUsers(filter ListFilter) ([]User, error) {
	var matcher func(string) bool
	if filter.Filter != "" {
		if strings.ContainsAny(filter.Filter, "*?[") {
			g, err := glob.Compile(filter.Filter)
			if err != nil {
				return nil, &corerr.ValidationError{Field: "filter", Value: filter.Filter, Constraint: "invalid glob pattern"}
			}
			matcher = g.Match
		} else {
			matcher = func(username string) bool { return strings.Contains(username, filter.Filter) }
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, rec := range s.users {
		if filter.ActiveOnly && !rec.isActive {
			continue
		}
		if matcher != nil && !matcher(rec.username) {
			continue
		}
		out = append(out, rec.toPublic())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpdateUser merges a partial profile into the existing record. Password
// is never touched here.
func (s *Service) UpdateUser(username string, in UpdateInput) (User, error) {
	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	rec, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return User{}, &corerr.NotFound{Resource: "user", Context: username}
	}

	if in.Email != nil {
		if !emailPattern.MatchString(*in.Email) {
			return User{}, &corerr.ValidationError{Field: "email", Value: *in.Email, Constraint: "must be a valid email address"}
		}
		s.mu.RLock()
		taken := s.emailExistsLocked(*in.Email, username)
		s.mu.RUnlock()
		if taken {
			return User{}, &corerr.ValidationError{Field: "email", Value: *in.Email, Constraint: "already in use"}
		}
		rec.email = *in.Email
	}
	if in.Roles != nil {
		rec.roles = append([]string(nil), (*in.Roles)...)
	}
	if in.FirstName != nil {
		rec.firstName = sanitizer.Sanitize(*in.FirstName)
	}
	if in.LastName != nil {
		rec.lastName = sanitizer.Sanitize(*in.LastName)
	}
	if in.Address != nil {
		rec.address = sanitizer.Sanitize(*in.Address)
	}
	if in.Social != nil {
		rec.social = sanitizer.Sanitize(*in.Social)
	}
	if in.Description != nil {
		rec.description = sanitizer.Sanitize(*in.Description)
	}
	if in.IsActive != nil {
		rec.isActive = *in.IsActive
	}
	rec.updatedAt = s.now()

	if err := s.writeWithLocked(rec); err != nil {
		return User{}, err
	}
	return rec.toPublic(), nil
}

// DeleteUser removes username, requiring an explicit confirmation flag.
func (s *Service) DeleteUser(username string, confirm bool) error {
	if !confirm {
		return &corerr.ValidationError{Field: "confirm", Value: "false", Constraint: "delete_user requires confirm=true"}
	}

	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	_, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return &corerr.NotFound{Resource: "user", Context: username}
	}

	return s.writeAllLocked(func(cache map[string]record) {
		delete(cache, username)
	})
}

// ChangePassword verifies old against the stored hash and, on success,
// validates and rehashes new.
func (s *Service) ChangePassword(username, oldPassword, newPassword string) error {
	s.fileLock.Lock()
	defer s.fileLock.Unlock()

	s.mu.RLock()
	rec, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		auth.VerifyDummy(oldPassword)
		return &corerr.NotFound{Resource: "user", Context: username}
	}

	ok2, err := auth.VerifyPassword(oldPassword, rec.passwordHash)
	if err != nil || !ok2 {
		return &corerr.AuthError{User: username, Action: "change_password", Reason: "old password does not match"}
	}

	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return &corerr.ValidationError{Field: "password", Value: "", Constraint: err.Error()}
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return &corerr.AuthError{User: username, Action: "change_password", Reason: err.Error()}
	}

	rec.passwordHash = hash
	rec.updatedAt = s.now()
	return s.writeWithLocked(rec)
}

// UsersInRole returns the usernames of every user whose Roles
// list contains roleName. It satisfies roles.UserRoleSource without
// users importing the roles package.
func (s *Service) UsersInRole(roleName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, rec := range s.users {
		for _, r := range rec.roles {
			if r == roleName {
				out = append(out, rec.username)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) emailExistsLocked(email, exceptUsername string) bool {
	for _, rec := range s.users {
		if rec.username == exceptUsername {
			continue
		}
		if strings.EqualFold(rec.email, email) {
			return true
		}
	}
	return false
}

// writeWithLocked merges rec into the cache and re-emits the whole file.
// Must be called with s.fileLock held.
func (s *Service) writeWithLocked(rec record) error {
	return s.writeAllLocked(func(cache map[string]record) {
		cache[rec.username] = rec
	})
}

func (s *Service) writeAllLocked(mutate func(map[string]record)) error {
	s.mu.Lock()
	merged := make(map[string]record, len(s.users))
	for k, v := range s.users {
		merged[k] = v
	}
	mutate(merged)

	rows := make([]codec.MatrixRecord, 0, len(merged))
	usernames := make([]string, 0, len(merged))
	for u := range merged {
		usernames = append(usernames, u)
	}
	sort.Strings(usernames)
	for _, u := range usernames {
		rows = append(rows, recordToMatrix(merged[u]))
	}

	data := codec.EmitMatrixFile(Header, rows)
	if err := codec.AtomicWrite(s.path, data, s.backupManager); err != nil {
		s.mu.Unlock()
		return err
	}

	s.users = merged
	s.mu.Unlock()
	return nil
}
