package services

import (
	"context"
	"strings"
	"testing"

	"procure-backend/internal/auth"
	"procure-backend/internal/config"
	"procure-backend/internal/models"
	"procure-backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	nextID int
	users  map[int]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: make(map[int]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, u *models.User) error {
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserStore) ListPending(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		if !u.IsApproved && u.Role != models.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) ListAdmins(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		if u.Role == models.RoleAdmin && u.IsApproved {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) SetApproval(ctx context.Context, id int, approved bool) error {
	u, ok := f.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.IsApproved = approved
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func newTestUserService() (*UserService, *fakeUserStore) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "test"

	store := newFakeUserStore()
	return NewUserService(store, auth.NewJWTManager(cfg), nil, ""), store
}

func TestRegister(t *testing.T) {
	svc, store := newTestUserService()

	user, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:       "Vendor One",
		Email:      "Vendor@Example.com",
		Password:   "secret123",
		Role:       models.RoleVendor,
		Department: "Electrical",
	})
	require.NoError(t, err)

	assert.False(t, user.IsApproved)
	assert.Equal(t, "vendor@example.com", user.Email)

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService()

	req := &models.RegisterRequest{
		Name:     "Customer",
		Email:    "dup@example.com",
		Password: "secret123",
		Role:     models.RoleCustomer,
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	svc, _ := newTestUserService()

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:     "Sneaky",
		Email:    "sneaky@example.com",
		Password: "secret123",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestLoginRejectsUnapproved(t *testing.T) {
	svc, _ := newTestUserService()

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:     "Customer",
		Email:    "pending@example.com",
		Password: "secret123",
		Role:     models.RoleCustomer,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &models.LoginRequest{
		Email:    "pending@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))
}

func TestLoginAfterApproval(t *testing.T) {
	svc, _ := newTestUserService()

	user, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:     "Customer",
		Email:    "ready@example.com",
		Password: "secret123",
		Role:     models.RoleCustomer,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), user.ID))

	resp, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "ready@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.User.IsApproved)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestUserService()

	user, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:     "Customer",
		Email:    "c@example.com",
		Password: "secret123",
		Role:     models.RoleCustomer,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), user.ID))

	_, err = svc.Login(context.Background(), &models.LoginRequest{
		Email:    "c@example.com",
		Password: "wrongpass",
	})
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))
}

func TestApproveAndRejectUser(t *testing.T) {
	svc, store := newTestUserService()

	user, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:       "Vendor",
		Email:      "v@example.com",
		Password:   "secret123",
		Role:       models.RoleVendor,
		Department: "Plumbing",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), user.ID))

	err = svc.Approve(context.Background(), user.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	// Approved users cannot be rejected.
	err = svc.Reject(context.Background(), user.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	other, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:       "Vendor Two",
		Email:      "v2@example.com",
		Password:   "secret123",
		Role:       models.RoleVendor,
		Department: "Plumbing",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), other.ID))
	_, err = store.GetByID(context.Background(), other.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
