package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/internal/users"
	pkgAuth "github.com/4245877/liteforest-backend/pkg/auth"
	"github.com/4245877/liteforest-backend/pkg/auth/session"
	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/enums"
	pkgerrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "liteforest-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type memoryUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (r *memoryUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, exists := r.byEmail[dto.Email]; exists {
		return nil, errors.New(`duplicate key value violates unique constraint "ux_users_email"`)
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type memorySessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newMemorySessionManager() *memorySessionManager {
	return &memorySessionManager{sessions: map[string]string{}}
}

func (m *memorySessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	m.sessions[accessID] = token
	return token, nil
}

func (m *memorySessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := m.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.sessions, oldAccessID)
	newAccessID := session.NewAccessID()
	token := "refresh-" + newAccessID
	m.sessions[newAccessID] = token
	return newAccessID, token, nil
}

func (m *memorySessionManager) Revoke(ctx context.Context, accessID string) error {
	m.revoked = append(m.revoked, accessID)
	delete(m.sessions, accessID)
	return nil
}

func newAuthService(t *testing.T, repo *memoryUserRepo, sessions *memorySessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, repo *memoryUserRepo, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "L",
		Role:         enums.UserRoleCustomer,
		IsActive:     active,
	}
	repo.byEmail[email] = user
	repo.byID[user.ID] = user
	return user
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestRegisterIssuesSession(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	sessions := newMemorySessionManager()
	svc := newAuthService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:     " Ada@Example.COM ",
		Password:  "correct horse",
		FirstName: "Ada",
		LastName:  "L",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", resp.User.Email)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Errorf("role = %s, want customer", resp.User.Role)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parsing issued token: %v", err)
	}
	if _, ok := sessions.sessions[claims.ID]; !ok {
		t.Fatal("session not stored under the token jti")
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email:    "ada@example.com",
		Password: "another",
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	sessions := newMemorySessionManager()
	svc := newAuthService(t, repo, sessions)
	seedUser(t, repo, "ada@example.com", "correct horse", true)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Ada@Example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	seedUser(t, repo, "off@example.com", "correct horse", false)
	_, err = svc.Login(context.Background(), LoginRequest{Email: "off@example.com", Password: "correct horse"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	sessions := newMemorySessionManager()
	svc := newAuthService(t, repo, sessions)
	seedUser(t, repo, "ada@example.com", "correct horse", true)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The old pair is dead after rotation.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: "garbage", RefreshToken: "garbage"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	sessions := newMemorySessionManager()
	svc := newAuthService(t, repo, sessions)

	if err := svc.Logout(context.Background(), "some-access-id"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "some-access-id" {
		t.Fatalf("revoked = %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}
