package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type fakeRepository struct {
	users  map[int64]*User
	nextID int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[int64]*User), nextID: 1}
}

func (f *fakeRepository) CreateUser(_ context.Context, user *User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return ErrEmailTaken
		}
	}
	user.ID = f.nextID
	user.IsActive = true
	f.nextID++
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeRepository) GetUserByID(_ context.Context, userID int64) (*User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) SetActive(_ context.Context, userID int64, active bool) error {
	user, ok := f.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.IsActive = active
	if active {
		user.DeactivatedAt = nil
	} else {
		now := time.Now()
		user.DeactivatedAt = &now
	}
	return nil
}

func newTestService(repo Repository) Service {
	return NewService(repo, nil, &Config{
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		BCryptCost:         bcrypt.MinCost,
	})
}

func signupRequest() *SignupRequest {
	return &SignupRequest{
		Email:       "ada@example.com",
		Username:    "ada",
		DisplayName: "Ada",
		Password:    "correct-horse",
	}
}

func TestSignupAndSignin(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	resp, err := svc.Signup(context.Background(), signupRequest())
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("Expected both tokens on signup")
	}
	if resp.User.PasswordHash == "correct-horse" {
		t.Error("Password stored in plaintext")
	}

	// Duplicate email is rejected.
	if _, err := svc.Signup(context.Background(), signupRequest()); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}

	signin, err := svc.Signin(context.Background(), &SigninRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Signin failed: %v", err)
	}
	if signin.User.ID != resp.User.ID {
		t.Errorf("Signin returned user %d, expected %d", signin.User.ID, resp.User.ID)
	}

	// Wrong password and unknown email both map to the same error.
	if _, err := svc.Signin(context.Background(), &SigninRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Signin(context.Background(), &SigninRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSigninReactivatesAccount(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	resp, err := svc.Signup(context.Background(), signupRequest())
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if err := svc.SetActive(context.Background(), resp.User.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	active, err := svc.IsActive(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("IsActive failed: %v", err)
	}
	if active {
		t.Fatal("Expected account to be inactive")
	}

	signin, err := svc.Signin(context.Background(), &SigninRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Signin failed: %v", err)
	}
	if !signin.User.IsActive {
		t.Error("Signin should reactivate a deactivated account")
	}

	active, err = svc.IsActive(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("IsActive failed: %v", err)
	}
	if !active {
		t.Error("Expected account to be active after signin")
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	resp, err := svc.Signup(context.Background(), signupRequest())
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	refreshed, err := svc.RefreshToken(context.Background(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if refreshed.RefreshToken == resp.RefreshToken {
		t.Error("Refresh should issue a new refresh token")
	}

	// Access tokens are not accepted as refresh tokens.
	if _, err := svc.RefreshToken(context.Background(), resp.AccessToken); err == nil {
		t.Error("Expected error refreshing with an access token")
	}
}

func TestIsActiveUnknownUser(t *testing.T) {
	svc := newTestService(newFakeRepository())

	if _, err := svc.IsActive(context.Background(), 99); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
