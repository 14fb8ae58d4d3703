package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type fakeAuthRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken
	audits       []models.AuditLog
	revoked      int
}

func newFakeAuthRepo(users ...*models.User) *fakeAuthRepo {
	repo := &fakeAuthRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
	}
	for _, u := range users {
		repo.usersByEmail[u.Email] = u
		repo.usersByID[u.ID] = u
	}
	return repo
}

func (f *fakeAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.usersByEmail[email]
	return ok, nil
}

func (f *fakeAuthRepo) ExistsByRollNo(_ context.Context, classID, rollNo, excludeID string) (bool, error) {
	for _, u := range f.usersByID {
		if u.ID == excludeID || u.Role != models.RoleStudent {
			continue
		}
		if u.ClassID != nil && *u.ClassID == classID && u.RollNo != nil && *u.RollNo == rollNo {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAuthRepo) Create(_ context.Context, user *models.User) error {
	f.usersByEmail[user.Email] = user
	f.usersByID[user.ID] = user
	return nil
}

func (f *fakeAuthRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeAuthRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	if u, ok := f.usersByID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
			f.revoked++
		}
	}
	return nil
}

func (f *fakeAuthRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, *log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "classmark-test",
		DemoEnabled:        true,
	}
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u-1",
		Email:        "teacher@school.test",
		PasswordHash: string(hash),
		FullName:     "Taylor",
		Role:         models.RoleTeacher,
		ClassID:      strPtr("FY"),
		Subject:      strPtr("Math"),
		Active:       true,
	}
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	repo := newFakeAuthRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, models.RoleTeacher, result.User.Role)
	require.NotNil(t, result.Profile)
	require.Equal(t, "FY", result.Profile.ClassID)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, models.RoleTeacher, claims.Role)
	require.False(t, claims.Demo)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeAuthRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "wrong",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t)
	user.Active = false
	repo := newFakeAuthRepo(user)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "secret1",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestDemoLoginSynthesizesSession(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	result, err := svc.DemoLogin(context.Background(), models.DemoLoginRequest{Role: models.RoleStudent})
	require.NoError(t, err)
	require.Equal(t, "demo-student", result.User.ID)
	require.Equal(t, "student@test.com", result.User.Email)
	require.NotNil(t, result.Profile)
	require.Empty(t, result.RefreshToken, "demo sessions do not persist refresh tokens")

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.Demo)

	profile, err := svc.ResolveProfile(context.Background(), claims)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, models.RoleStudent, profile.Role)
}

func TestDemoLoginDisabled(t *testing.T) {
	cfg := testAuthConfig()
	cfg.DemoEnabled = false
	svc := NewAuthService(newFakeAuthRepo(), nil, nil, cfg)

	_, err := svc.DemoLogin(context.Background(), models.DemoLoginRequest{Role: models.RoleAdmin})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := NewAuthService(newFakeAuthRepo(), nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "new@school.test",
		Password: "abc",
		FullName: "New Student",
		ClassID:  "FY",
		RollNo:   "3",
		Gender:   "female",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrWeakPassword.Code, appErr.Code)
}

func TestRegisterDuplicateRollNo(t *testing.T) {
	existing := activeUser(t)
	existing.Role = models.RoleStudent
	existing.RollNo = strPtr("3")
	repo := newFakeAuthRepo(existing)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "new@school.test",
		Password: "secret1",
		FullName: "New Student",
		ClassID:  "FY",
		RollNo:   "3",
		Gender:   "male",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Contains(t, appErr.Message, "roll number 3")
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newFakeAuthRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "secret1",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken, "refresh tokens rotate on use")
	require.True(t, repo.tokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err, "a used refresh token is dead")
}

func TestLogoutNeverFails(t *testing.T) {
	repo := newFakeAuthRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u-1", "", ""))
	require.True(t, repo.tokens[login.RefreshToken].Revoked)

	// Unknown tokens, mismatched owners and empty tokens all still succeed.
	require.NoError(t, svc.Logout(context.Background(), "garbage", "u-1", "", ""))
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "someone-else", "", ""))
	require.NoError(t, svc.Logout(context.Background(), "", "u-1", "", ""))
}

func TestResolveProfileDegradesOnMissingUser(t *testing.T) {
	svc := NewAuthService(newFakeAuthRepo(), nil, nil, testAuthConfig())

	profile, err := svc.ResolveProfile(context.Background(), &models.JWTClaims{UserID: "ghost"})
	require.NoError(t, err)
	require.Nil(t, profile, "a missing profile is not an error, the session degrades")
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newFakeAuthRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "secret1",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "secret1",
		NewPassword: "secret2",
	})
	require.NoError(t, err)
	require.True(t, repo.tokens[login.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.test",
		Password: "secret2",
	})
	require.NoError(t, err)
}
