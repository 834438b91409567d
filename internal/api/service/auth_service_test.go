package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/auth"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameAndEmail(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) BumpCodeEpoch(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error) {
	args := m.Called(ctx, search, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

// MockMailClient mocks the mailer.Client interface
type MockMailClient struct {
	mock.Mock
}

func (m *MockMailClient) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	args := m.Called(ctx, email, username, code)
	return args.Error(0)
}

const testJWTSecret = "test-secret-test-secret-test-secret!"

func newTestAuthService(userRepo repository.UserRepository, mail *MockMailClient) AuthService {
	codes := auth.NewGenerator(testJWTSecret, 15*time.Minute)
	return NewAuthService(userRepo, codes, mail, testJWTSecret, time.Hour, slog.Default())
}

func TestSignup_CreatesNewUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMail := new(MockMailClient)
	svc := newTestAuthService(mockRepo, mockMail)

	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "alice", "alice@example.com").Return(nil, repository.ErrNotFound)
	mockRepo.On("FindByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
	mockRepo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, repository.ErrNotFound)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
	mockMail.On("SendConfirmationCode", mock.Anything, "alice@example.com", "alice", mock.AnythingOfType("string")).Return(nil).Maybe()

	user, err := svc.Signup(context.Background(), "alice", "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	mockRepo.AssertExpectations(t)
}

func TestSignup_UsernameTooShort(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	_, err := svc.Signup(context.Background(), "ab", "ab@example.com")
	assert.ErrorIs(t, err, ErrUsernameTooShort)

	// Three characters is the shortest accepted username.
	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "abc", "abc@example.com").
		Return(&models.User{Username: "abc", Email: "abc@example.com"}, nil)
	_, err = svc.Signup(context.Background(), "abc", "abc@example.com")
	assert.NoError(t, err)
}

func TestSignup_IdempotentForSamePair(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMail := new(MockMailClient)
	svc := newTestAuthService(mockRepo, mockMail)

	existing := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "alice", "alice@example.com").Return(existing, nil)
	mockMail.On("SendConfirmationCode", mock.Anything, "alice@example.com", "alice", mock.AnythingOfType("string")).Return(nil).Maybe()

	user, err := svc.Signup(context.Background(), "alice", "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_UsernameTakenByOtherEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "alice", "other@example.com").Return(nil, repository.ErrNotFound)
	mockRepo.On("FindByUsername", mock.Anything, "alice").
		Return(&models.User{Username: "alice", Email: "alice@example.com"}, nil)

	_, err := svc.Signup(context.Background(), "alice", "other@example.com")
	assert.ErrorIs(t, err, ErrNameInUse)
}

func TestSignup_EmailTakenByOtherUsername(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "newname", "alice@example.com").Return(nil, repository.ErrNotFound)
	mockRepo.On("FindByUsername", mock.Anything, "newname").Return(nil, repository.ErrNotFound)
	mockRepo.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(&models.User{Username: "alice", Email: "alice@example.com"}, nil)

	_, err := svc.Signup(context.Background(), "newname", "alice@example.com")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignup_LostRaceSamePairStillSucceeds(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMail := new(MockMailClient)
	svc := newTestAuthService(mockRepo, mockMail)

	winner := &models.User{ID: "winner-id", Username: "alice", Email: "alice@example.com"}
	// First lookup misses, insert loses the race, re-lookup finds the winner.
	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "alice", "alice@example.com").Return(nil, repository.ErrNotFound).Once()
	mockRepo.On("FindByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
	mockRepo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, repository.ErrNotFound)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(repository.ErrDuplicate)
	mockRepo.On("FindByUsernameAndEmail", mock.Anything, "alice", "alice@example.com").Return(winner, nil).Once()
	mockMail.On("SendConfirmationCode", mock.Anything, "alice@example.com", "alice", mock.AnythingOfType("string")).Return(nil).Maybe()

	user, err := svc.Signup(context.Background(), "alice", "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "winner-id", user.ID)
}

func TestExchangeCode_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	user := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
	codes := auth.NewGenerator(testJWTSecret, 15*time.Minute)
	code := codes.Issue(user)

	mockRepo.On("FindByUsername", mock.Anything, "alice").Return(user, nil)
	mockRepo.On("BumpCodeEpoch", mock.Anything, "user-1").Return(nil)

	token, err := svc.ExchangeCode(context.Background(), "alice", code)

	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
	mockRepo.AssertExpectations(t)
}

func TestExchangeCode_UnknownUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	mockRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	_, err := svc.ExchangeCode(context.Background(), "ghost", "deadbeef-feed")

	// Unknown user must stay distinguishable from a wrong code.
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExchangeCode_WrongCode(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	user := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	mockRepo.On("FindByUsername", mock.Anything, "alice").Return(user, nil)

	_, err := svc.ExchangeCode(context.Background(), "alice", "deadbeef-wrongsig")

	assert.ErrorIs(t, err, ErrInvalidCode)
	mockRepo.AssertNotCalled(t, "BumpCodeEpoch", mock.Anything, mock.Anything)
}

func TestExchangeCode_EpochMismatch(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newTestAuthService(mockRepo, new(MockMailClient))

	// Code was minted for epoch 0, but the stored user has moved on.
	stale := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com", CodeEpoch: 0}
	codes := auth.NewGenerator(testJWTSecret, 15*time.Minute)
	code := codes.Issue(stale)

	current := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com", CodeEpoch: 1}
	mockRepo.On("FindByUsername", mock.Anything, "alice").Return(current, nil)

	_, err := svc.ExchangeCode(context.Background(), "alice", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestAuthService(new(MockUserRepository), new(MockMailClient))

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
