package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"scangate/internal/database"
	"scangate/internal/domain"
	"scangate/internal/security"
)

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{})

	rec := doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"email":    "First@Example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["role"] != domain.RoleAdmin {
		t.Fatalf("first role = %q, want admin", resp["role"])
	}

	rec = doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"email":    "second@example.com",
		"password": "correct-horse",
	})
	decodeBody(t, rec, &resp)
	if resp["role"] != domain.RoleUser {
		t.Fatalf("second role = %q, want user", resp["role"])
	}

	rec = doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"email":    "first@example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestRegisterRejectsBadCredentials(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{})

	tests := []struct {
		name  string
		email string
		pass  string
		want  string
	}{
		{"bad email", "not-an-email", "correct-horse", "Invalid email format"},
		{"short password", "a@example.com", "short", "Password must be at least 8 characters long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/register", "", map[string]string{"email": tt.email, "password": tt.pass})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]any
			decodeBody(t, rec, &body)
			if body["error"] != tt.want {
				t.Fatalf("error = %v, want %q", body["error"], tt.want)
			}
		})
	}
}

func TestLoginAndCheckLogin(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{})
	registerAndLogin(t, h, "login@example.com")

	rec := doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"email": "login@example.com", "password": "wrong-horse"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"email": "login@example.com", "password": "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)

	if rec := doJSON(t, h, http.MethodGet, "/checkLogin", resp["token"], nil); rec.Code != http.StatusOK {
		t.Fatalf("checkLogin status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/checkLogin", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("checkLogin with bad token status = %d", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{})
	token := registerAndLogin(t, h, "change@example.com")

	rec := doJSON(t, h, http.MethodPost, "/changePassword", token, map[string]string{"oldPassword": "nope-nope", "newPassword": "battery-staple"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong old password status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/changePassword", token, map[string]string{"oldPassword": "correct-horse", "newPassword": "battery-staple"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"email": "change@example.com", "password": "battery-staple"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password status = %d", rec.Code)
	}
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	db := setupServerTest(t)
	h := NewRouter(Deps{})
	registerAndLogin(t, h, "known@example.com")

	known := doJSON(t, h, http.MethodPost, "/forgotPassword", "", map[string]string{"email": "known@example.com"})
	unknown := doJSON(t, h, http.MethodPost, "/forgotPassword", "", map[string]string{"email": "unknown@example.com"})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("status known=%d unknown=%d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}

	var count int64
	if err := db.Model(&domain.PasswordReset{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("stored resets = %d, want 1", count)
	}
}

func TestResetPassword(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{})
	registerAndLogin(t, h, "reset@example.com")

	user, err := database.GetUserByEmail("reset@example.com")
	if err != nil {
		t.Fatal(err)
	}
	token, hash, err := security.NewResetToken()
	if err != nil {
		t.Fatal(err)
	}
	if err := database.CreatePasswordReset(user.ID, hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodPost, "/resetPassword", "", map[string]string{"token": token, "password": "brand-new-pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/resetPassword", "", map[string]string{"token": token, "password": "another-pass"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reused token status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"email": "reset@example.com", "password": "brand-new-pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login after reset status = %d", rec.Code)
	}
}

func TestLongPasswordsRegisterAndChange(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{})

	long := strings.Repeat("p", 100)
	rec := doJSON(t, h, http.MethodPost, "/register", "", map[string]string{"email": "long@example.com", "password": long})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)

	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"email": "long@example.com", "password": long})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}

	longer := strings.Repeat("q", 128)
	rec = doJSON(t, h, http.MethodPost, "/changePassword", resp["token"], map[string]string{"oldPassword": long, "newPassword": longer})
	if rec.Code != http.StatusOK {
		t.Fatalf("changePassword status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"email": "long@example.com", "password": longer})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password status = %d", rec.Code)
	}
}
