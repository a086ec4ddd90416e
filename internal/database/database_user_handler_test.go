package database

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"scangate/internal/domain"
)

func TestCreateUserFirstIsAdmin(t *testing.T) {
	setupTestDB(t)

	first := domain.User{Email: " Admin@Example.com ", Password: "hash"}
	if err := CreateUser(&first); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if first.Role != domain.RoleAdmin {
		t.Fatalf("first user role = %q, want admin", first.Role)
	}
	if first.Email != "admin@example.com" {
		t.Fatalf("email not normalized: %q", first.Email)
	}

	second := domain.User{Email: "user@example.com", Password: "hash"}
	if err := CreateUser(&second); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if second.Role != domain.RoleUser {
		t.Fatalf("second user role = %q, want user", second.Role)
	}

	dup := domain.User{Email: "ADMIN@example.com", Password: "hash"}
	if err := CreateUser(&dup); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email error = %v, want ErrEmailTaken", err)
	}
}

func TestGetUserAndChangePassword(t *testing.T) {
	setupTestDB(t)

	user := domain.User{Email: "someone@example.com", Password: "old"}
	if err := CreateUser(&user); err != nil {
		t.Fatal(err)
	}

	found, err := GetUserByEmail("SOMEONE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("found id %d, want %d", found.ID, user.ID)
	}

	if err := ChangePassword(user.ID, "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	reloaded, err := GetUserFromId(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Password != "new" {
		t.Fatalf("password = %q, want new", reloaded.Password)
	}

	if err := ChangePassword(9999, "x"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("ChangePassword(missing) = %v", err)
	}
	if _, err := GetUserByEmail("missing@example.com"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetUserByEmail(missing) = %v", err)
	}
}
