package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type mockJWT struct {
	mock.Mock
}

func (m *mockJWT) GenerateToken(userID int64, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

func TestRegister_CreatesCustomer(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, new(mockJWT))
	ctx := context.Background()

	repo.On("ExistsByEmail", ctx, "Ana@Mail.com").Return(false, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
		return u.Email == "ana@mail.com" && u.Role == RoleCustomer && u.PasswordHash != "secret-pass"
	})).Return(nil)

	user, err := svc.Register(ctx, RegisterRequest{FirstName: "Ana", Email: "Ana@Mail.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-pass")))
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, new(mockJWT))
	ctx := context.Background()

	repo.On("ExistsByEmail", ctx, "ana@mail.com").Return(true, nil)

	_, err := svc.Register(ctx, RegisterRequest{Email: "ana@mail.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	repo := new(mockUserRepo)
	jwt := new(mockJWT)
	svc := NewService(repo, jwt)
	ctx := context.Background()

	hash, err := HashPassword("secret-pass")
	require.NoError(t, err)
	repo.On("GetByEmail", ctx, "staff@tours.local").Return(&User{ID: 3, Email: "staff@tours.local", PasswordHash: hash, Role: RoleStaff}, nil)
	jwt.On("GenerateToken", int64(3), "staff").Return("token-123", nil)

	result, err := svc.Login(ctx, LoginRequest{Email: "staff@tours.local", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "token-123", result.AccessToken)
	assert.True(t, result.User.Role.IsStaff())
}

func TestLogin_WrongPasswordOrUnknownUser(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, new(mockJWT))
	ctx := context.Background()

	hash, _ := HashPassword("right-pass")
	repo.On("GetByEmail", ctx, "a@mail.com").Return(&User{ID: 1, PasswordHash: hash, Role: RoleCustomer}, nil)
	repo.On("GetByEmail", ctx, "ghost@mail.com").Return(nil, ErrUserNotFound)

	_, err := svc.Login(ctx, LoginRequest{Email: "a@mail.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "ghost@mail.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_RepositoryFailure(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, new(mockJWT))
	ctx := context.Background()

	boom := errors.New("db down")
	repo.On("GetByEmail", ctx, "a@mail.com").Return(nil, boom)

	_, err := svc.Login(ctx, LoginRequest{Email: "a@mail.com", Password: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestRole_Exhaustive(t *testing.T) {
	r, err := ParseRole("staff")
	require.NoError(t, err)
	assert.True(t, r.IsStaff())
	assert.Equal(t, "admin", r.UserType())

	r, err = ParseRole("customer")
	require.NoError(t, err)
	assert.False(t, r.IsStaff())
	assert.Equal(t, "user", r.UserType())

	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.False(t, Role("superuser").IsStaff())
}
