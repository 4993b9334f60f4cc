package tests

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"staffing_platform/backoffice/services"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		username := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		client := env.newClient()
		login, err := client.register(username, email, username, password)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.register(username, email, username, password)
		if statusOf(err) != http.StatusConflict {
			t.Fatalf("duplicate registration should fail with 409: %v", err)
		}

		err = client.login(loginInfo{Email: "user@mail.com", Password: password})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatal("login should fail with wrong email")
		}

		err = client.login(loginInfo{Email: email, Password: "password"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatal("login should fail with wrong password")
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}

		var info services.UserInfo
		if err := client.Get("/me").Do(&info); err != nil {
			t.Fatal(err)
		}

		if info.Username != username || info.Email != email || info.Id.String() != client.userId || info.Role != "instructor" {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestRegistrationValidation(t *testing.T) {
	env := setupTestEnv(t)
	client := env.newClient()

	body := map[string]string{
		"username": "abc", "email": "abc@mail.com", "name": "abc", "password": "short",
	}
	err := client.Post("/auth/register").Json(body).Do(nil)
	if statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("short password should be rejected with 422: %v", err)
	}

	body["password"] = "long enough password"
	body["role"] = "superuser"
	err = client.Post("/auth/register").Json(body).Do(nil)
	if statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("unknown role should be rejected with 422: %v", err)
	}

	body["role"] = "instructor"
	if err := client.Post("/auth/register").Json(body).Do(nil); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshToken(t *testing.T) {
	env := setupTestEnv(t)

	client, err := env.newInstructor("refresher")
	if err != nil {
		t.Fatal(err)
	}

	if client.refreshToken == "" {
		t.Fatal("login should return a refresh token")
	}

	if err := client.refresh(); err != nil {
		t.Fatal(err)
	}

	var info services.UserInfo
	if err := client.Get("/me").Do(&info); err != nil {
		t.Fatal(err)
	}
	if info.Username != "refresher" {
		t.Fatalf("invalid info after refresh %v", info)
	}

	bad := env.newClient()
	bad.refreshToken = "not-a-token"
	if err := bad.refresh(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("garbage refresh token should be rejected: %v", err)
	}

	// An access token is not a refresh token, the two are signed differently.
	mixed := env.newClient()
	mixed.refreshToken = client.authToken
	if err := mixed.refresh(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("access token should not be usable as refresh token: %v", err)
	}
}

func TestUserListIsManagerOnly(t *testing.T) {
	env := setupTestEnv(t)

	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	var users []services.UserInfo
	if err := instructor.Get("/users").Do(&users); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot list users: %v", err)
	}

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Get("/users").Do(&users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	if err := manager.Get("/users?role=instructor").Do(&users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "abc" {
		t.Fatalf("role filter returned wrong users: %v", users)
	}

	if err := manager.Get("/users?email=manager123").Do(&users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != managerUsername {
		t.Fatalf("email filter returned wrong users: %v", users)
	}
}

func TestProfileUpdate(t *testing.T) {
	env := setupTestEnv(t)

	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newInstructor("xyz")
	if err != nil {
		t.Fatal(err)
	}

	var info services.UserInfo
	update := map[string]string{"bio": "teaches robotics", "portfolio_content": "portfolio v1"}
	if err := instructor.Patch("/me").Json(update).Do(&info); err != nil {
		t.Fatal(err)
	}
	if info.Bio != "teaches robotics" || info.PortfolioContent != "portfolio v1" {
		t.Fatalf("profile update not applied: %v", info)
	}

	if err := instructor.Get("/users/" + other.userId).Do(&info); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot view other users: %v", err)
	}
	if err := instructor.Patch("/users/"+other.userId).Json(update).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot edit other users: %v", err)
	}

	if err := instructor.Get("/users/" + instructor.userId).Do(&info); err != nil {
		t.Fatal(err)
	}
	if info.Username != "abc" {
		t.Fatalf("invalid info %v", info)
	}

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Patch("/users/"+instructor.userId).Json(map[string]string{"name": "renamed"}).Do(&info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "renamed" {
		t.Fatalf("manager update not applied: %v", info)
	}

	// Username, email, and role are not editable through the profile endpoints.
	if err := instructor.Patch("/me").Json(map[string]string{"role": "manager"}).Do(&info); err != nil {
		t.Fatal(err)
	}
	if info.Role != "instructor" {
		t.Fatalf("role must not be editable: %v", info)
	}
}
