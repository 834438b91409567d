package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/service"
)

// MockUserService mocks the UserService interface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error) {
	args := m.Called(ctx, search, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserService) Update(ctx context.Context, username string, patch dto.UpdateUserDTO, allowRole bool) (*models.User, error) {
	args := m.Called(ctx, username, patch, allowRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func newUserRouter(svc service.UserService, actor *models.User) *gin.Engine {
	router := setupRouter()
	// Stands in for the required-auth middleware mounted on /me in main.
	requireAuth := func(c *gin.Context) {
		if middleware.ActorFromContext(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		c.Next()
	}
	group := router.Group("/users", withActor(actor))
	NewUserHandler(svc).RegisterRoutes(group, requireAuth)
	return router
}

func TestMe_AnonymousUnauthorized(t *testing.T) {
	mockSvc := new(MockUserService)
	router := newUserRouter(mockSvc, nil)

	req, _ := http.NewRequest("GET", "/users/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_ReturnsStoredProfile(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	stored := &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", Bio: "hi", Role: models.RoleUser}
	mockSvc.On("GetByID", mock.Anything, "u1").Return(stored, nil)

	req, _ := http.NewRequest("GET", "/users/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "alice", response.Username)
	assert.Equal(t, "hi", response.Bio)
}

func TestUpdateMe_RoleNeverEscalates(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	role := models.RoleAdmin
	bio := "new bio"
	patch := dto.UpdateUserDTO{Bio: &bio, Role: &role}

	// The handler must pass allowRole=false for the self-service path.
	mockSvc.On("Update", mock.Anything, "alice", patch, false).
		Return(&models.User{ID: "u1", Username: "alice", Bio: bio, Role: models.RoleUser}, nil)

	body, _ := json.Marshal(patch)
	req, _ := http.NewRequest("PATCH", "/users/me", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, models.RoleUser, response.Role)
	mockSvc.AssertExpectations(t)
}

func TestUserUpdateEndpoint_AdminMaySetRole(t *testing.T) {
	mockSvc := new(MockUserService)
	admin := &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin}
	router := newUserRouter(mockSvc, admin)

	role := models.RoleModerator
	patch := dto.UpdateUserDTO{Role: &role}
	mockSvc.On("Update", mock.Anything, "alice", patch, true).
		Return(&models.User{ID: "u1", Username: "alice", Role: models.RoleModerator}, nil)

	body, _ := json.Marshal(patch)
	req, _ := http.NewRequest("PATCH", "/users/alice", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestUserList_PlainUserForbidden(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	req, _ := http.NewRequest("GET", "/users/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserGetEndpoint_OtherProfileForbidden(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u2", Username: "bob", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	req, _ := http.NewRequest("GET", "/users/alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

// A non-admin probing profile paths gets the same 403 for existing and
// absent usernames; the store is never consulted, so responses cannot leak
// which usernames are registered.
func TestUserGetEndpoint_AbsentUsernameNotRevealed(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u2", Username: "bob", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	req, _ := http.NewRequest("GET", "/users/no-such-user", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestUserUpdateEndpoint_OtherProfileForbiddenBeforeLookup(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u2", Username: "bob", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	bio := "hi"
	body, _ := json.Marshal(dto.UpdateUserDTO{Bio: &bio})
	req, _ := http.NewRequest("PATCH", "/users/no-such-user", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	mockSvc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserGetEndpoint_AnonymousUnauthorized(t *testing.T) {
	mockSvc := new(MockUserService)
	router := newUserRouter(mockSvc, nil)

	req, _ := http.NewRequest("GET", "/users/alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestUserGetEndpoint_OwnerReadsOwnProfile(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	stored := &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
	mockSvc.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)

	req, _ := http.NewRequest("GET", "/users/alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "alice@example.com", response.Email)
}

func TestUserDeleteEndpoint_AdminOnly(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
	router := newUserRouter(mockSvc, actor)

	// Even the owner may not delete their own account.
	req, _ := http.NewRequest("DELETE", "/users/alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
