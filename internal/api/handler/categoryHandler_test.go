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
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/api/service"
)

// MockCategoryService mocks the CategoryService interface
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error) {
	args := m.Called(ctx, search, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Category), args.Get(1).(int64), args.Error(2)
}

func (m *MockCategoryService) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryService) DeleteBySlug(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

func newCategoryRouter(svc service.CategoryService, actor *models.User) *gin.Engine {
	router := setupRouter()
	group := router.Group("/categories", withActor(actor))
	NewCategoryHandler(svc).RegisterRoutes(group)
	return router
}

func TestCategoryList_OpenToAnonymous(t *testing.T) {
	mockSvc := new(MockCategoryService)
	router := newCategoryRouter(mockSvc, nil)

	mockSvc.On("List", mock.Anything, "", 1, 20).
		Return([]models.Category{{ID: 1, Name: "Movies", Slug: "movie"}}, int64(1), nil)

	req, _ := http.NewRequest("GET", "/categories/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"movie"`)
}

func TestCategoryList_SearchPassedThrough(t *testing.T) {
	mockSvc := new(MockCategoryService)
	router := newCategoryRouter(mockSvc, nil)

	mockSvc.On("List", mock.Anything, "mov", 1, 20).Return([]models.Category{}, int64(0), nil)

	req, _ := http.NewRequest("GET", "/categories/?search=mov", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestCategoryCreate_BadSlugRejectedAtBinding(t *testing.T) {
	mockSvc := new(MockCategoryService)
	admin := &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin}
	router := newCategoryRouter(mockSvc, admin)

	body, _ := json.Marshal(dto.CreateCategoryDTO{Name: "Bad", Slug: "no spaces!"})
	req, _ := http.NewRequest("POST", "/categories/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCategoryCreate_DuplicateSlugConflict(t *testing.T) {
	mockSvc := new(MockCategoryService)
	admin := &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin}
	router := newCategoryRouter(mockSvc, admin)

	mockSvc.On("Create", mock.Anything, mock.AnythingOfType("*models.Category")).
		Return(repository.ErrDuplicate)

	body, _ := json.Marshal(dto.CreateCategoryDTO{Name: "Movies", Slug: "movie"})
	req, _ := http.NewRequest("POST", "/categories/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCategoryDelete_AdminSucceeds(t *testing.T) {
	mockSvc := new(MockCategoryService)
	admin := &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin}
	router := newCategoryRouter(mockSvc, admin)

	mockSvc.On("DeleteBySlug", mock.Anything, "movie").Return(nil)

	req, _ := http.NewRequest("DELETE", "/categories/movie", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCategoryDelete_UnknownSlug(t *testing.T) {
	mockSvc := new(MockCategoryService)
	admin := &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin}
	router := newCategoryRouter(mockSvc, admin)

	mockSvc.On("DeleteBySlug", mock.Anything, "ghost").Return(repository.ErrNotFound)

	req, _ := http.NewRequest("DELETE", "/categories/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryDelete_PlainUserForbidden(t *testing.T) {
	mockSvc := new(MockCategoryService)
	actor := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
	router := newCategoryRouter(mockSvc, actor)

	req, _ := http.NewRequest("DELETE", "/categories/movie", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "DeleteBySlug", mock.Anything, mock.Anything)
}
