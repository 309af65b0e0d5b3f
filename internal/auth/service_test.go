package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "arepera", ExpirationMinutes: 60}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	password := "Arepa123"
	profile := newProfile(t, password, enums.UserStatusApproved)

	svc, sessions := buildTestService(t, profile)
	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  ANA@example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User == nil || resp.User.ID != profile.ID {
		t.Fatalf("expected profile in response, got %+v", resp.User)
	}
	if resp.ExpiresIn != 3600 {
		t.Fatalf("expected 3600s expiry, got %d", resp.ExpiresIn)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != profile.ID || claims.Role != enums.UserRoleUser {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := sessions.opened[claims.ID]; got != profile.ID {
		t.Fatalf("expected session for jti %s", claims.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	password := "Arepa123"
	profile := newProfile(t, password, enums.UserStatusApproved)
	noHash := &models.Profile{ID: uuid.New(), Email: "nohash@example.com", Status: enums.UserStatusApproved}

	cases := []struct {
		name  string
		repo  *models.Profile
		email string
		pass  string
	}{
		{name: "unknown user", repo: nil, email: "ghost@example.com", pass: password},
		{name: "wrong password", repo: profile, email: profile.Email, pass: "Arepa999"},
		{name: "no password hash", repo: noHash, email: noHash.Email, pass: password},
		{name: "blank email", repo: profile, email: "  ", pass: password},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, sessions := buildTestService(t, tc.repo)
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.pass})
			if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if len(sessions.opened) != 0 {
				t.Fatalf("no session expected")
			}
		})
	}
}

func TestLoginRequiresApproval(t *testing.T) {
	password := "Arepa123"
	for _, status := range []enums.UserStatus{enums.UserStatusPending, enums.UserStatusRejected} {
		profile := newProfile(t, password, status)
		svc, _ := buildTestService(t, profile)

		_, err := svc.Login(context.Background(), LoginRequest{Email: profile.Email, Password: password})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden for %s, got %v", status, err)
		}
		details, ok := typed.Details().(map[string]any)
		if !ok || details["status"] != status {
			t.Fatalf("expected status detail %s, got %#v", status, typed.Details())
		}
	}
}

func TestLoginSessionFailure(t *testing.T) {
	password := "Arepa123"
	profile := newProfile(t, password, enums.UserStatusApproved)
	svc, sessions := buildTestService(t, profile)
	sessions.openErr = errors.New("redis down")

	_, err := svc.Login(context.Background(), LoginRequest{Email: profile.Email, Password: password})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions := buildTestService(t, nil)
	sessions.opened["jti-1"] = uuid.New()

	if err := svc.Logout(context.Background(), "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.opened["jti-1"]; ok {
		t.Fatalf("expected session to be revoked")
	}
	if err := svc.Logout(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for empty jti, got %v", err)
	}
}

func buildTestService(t *testing.T, profile *models.Profile) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{opened: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{profile: profile},
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func newProfile(t *testing.T, password string, status enums.UserStatus) *models.Profile {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{BcryptCost: 4})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.Profile{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		FullName:     "Ana",
		PasswordHash: &hash,
		Role:         enums.UserRoleUser,
		Status:       status,
	}
}

type stubUserRepo struct {
	profile *models.Profile
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if s.profile == nil || s.profile.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

type stubSessionManager struct {
	opened  map[string]uuid.UUID
	openErr error
}

func (s *stubSessionManager) Open(ctx context.Context, accessID string, userID uuid.UUID) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opened[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.opened, accessID)
	return nil
}
