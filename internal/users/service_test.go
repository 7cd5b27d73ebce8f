package users

import (
	"path/filepath"
	"testing"

	"github.com/reedcms/reed/internal/backup"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	s := NewService(filepath.Join(dir, "users.matrix.csv"), backup.NewManager(32, nil))
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func validInput(username string) CreateInput {
	return CreateInput{
		Username: username,
		Password: "Abcdefg1!",
		Roles:    []string{"editor"},
		Email:    username + "@example.com",
	}
}

func TestCreateUser_Success(t *testing.T) {
	s := newTestService(t)
	u, err := s.CreateUser(validInput("alice"))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Username != "alice" || !u.IsActive {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestCreateUser_DuplicateUsernameRejected(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateUser(validInput("alice")); err != nil {
		t.Fatalf("first CreateUser failed: %v", err)
	}
	if _, err := s.CreateUser(validInput("alice")); err == nil {
		t.Error("expected duplicate username to be rejected")
	}
}

func TestCreateUser_DuplicateEmailRejected(t *testing.T) {
	s := newTestService(t)
	in1 := validInput("alice")
	if _, err := s.CreateUser(in1); err != nil {
		t.Fatalf("first CreateUser failed: %v", err)
	}
	in2 := validInput("bob")
	in2.Email = in1.Email
	if _, err := s.CreateUser(in2); err == nil {
		t.Error("expected duplicate email to be rejected")
	}
}

func TestCreateUser_WeakPasswordRejected(t *testing.T) {
	s := newTestService(t)
	in := validInput("alice")
	in.Password = "weak"
	if _, err := s.CreateUser(in); err == nil {
		t.Error("expected weak password to be rejected")
	}
}

func TestCreateUser_InvalidUsernameRejected(t *testing.T) {
	s := newTestService(t)
	in := validInput("AB")
	if _, err := s.CreateUser(in); err == nil {
		t.Error("expected malformed username to be rejected")
	}
}

func TestGetUser_NeverExposesPasswordHash(t *testing.T) {
	// User has no password field at all (spec.md §4.5): this test
	// documents that invariant at the type level by construction.
	var u User
	_ = u // no Password/PasswordHash field exists to leak
}

func TestListUsers_SubstringAndGlobFilter(t *testing.T) {
	s := newTestService(t)
	for _, name := range []string{"alice", "alicia", "bob"} {
		if _, err := s.CreateUser(validInput(name)); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
	}

	got, err := s.ListUsers(ListFilter{Filter: "ali"})
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 substring matches, got %d", len(got))
	}

	got, err = s.ListUsers(ListFilter{Filter: "ali*"})
	if err != nil {
		t.Fatalf("ListUsers glob failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 glob matches, got %d", len(got))
	}
}

func TestUpdateUser_MergesProfile(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateUser(validInput("alice")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	newLastName := "Smith"
	u, err := s.UpdateUser("alice", UpdateInput{LastName: &newLastName})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if u.LastName != "Smith" {
		t.Errorf("expected lastname to be updated, got %q", u.LastName)
	}
}

func TestUpdateUser_SanitizesFreeText(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateUser(validInput("alice")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	malicious := "<script>alert(1)</script>hello"
	u, err := s.UpdateUser("alice", UpdateInput{Description: &malicious})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if u.Description == malicious {
		t.Error("expected HTML to be stripped from description")
	}
}

func TestDeleteUser_RequiresConfirmation(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateUser(validInput("alice")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.DeleteUser("alice", false); err == nil {
		t.Error("expected delete without confirm to be rejected")
	}
	if err := s.DeleteUser("alice", true); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := s.GetUser("alice"); err == nil {
		t.Error("expected user to be gone after confirmed delete")
	}
}

func TestChangePassword_VerifiesOldPassword(t *testing.T) {
	s := newTestService(t)
	in := validInput("alice")
	if _, err := s.CreateUser(in); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.ChangePassword("alice", "wrong-password", "NewPassw0rd!"); err == nil {
		t.Error("expected wrong old password to be rejected")
	}
	if err := s.ChangePassword("alice", in.Password, "NewPassw0rd!"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
}

func TestPersistence_ReloadsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.matrix.csv")

	s1 := NewService(path, backup.NewManager(32, nil))
	if err := s1.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := s1.CreateUser(validInput("alice")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	s2 := NewService(path, backup.NewManager(32, nil))
	if err := s2.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := s2.GetUser("alice"); err != nil {
		t.Fatalf("expected alice to persist across reload: %v", err)
	}
}
