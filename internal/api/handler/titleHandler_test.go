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

// MockTitleService mocks the TitleService interface
type MockTitleService struct {
	mock.Mock
}

func (m *MockTitleService) List(ctx context.Context, filter repository.TitleFilter, page, pageSize int) ([]service.TitleWithRating, int64, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]service.TitleWithRating), args.Get(1).(int64), args.Error(2)
}

func (m *MockTitleService) GetByID(ctx context.Context, id int64) (*service.TitleWithRating, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TitleWithRating), args.Error(1)
}

func (m *MockTitleService) Create(ctx context.Context, in dto.CreateTitleDTO) (*service.TitleWithRating, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TitleWithRating), args.Error(1)
}

func (m *MockTitleService) Update(ctx context.Context, id int64, in dto.UpdateTitleDTO) (*service.TitleWithRating, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TitleWithRating), args.Error(1)
}

func (m *MockTitleService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	dto.RegisterValidators()
	return gin.New()
}

// withActor stands in for the auth middleware in tests.
func withActor(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u != nil {
			c.Set("actor", u)
		}
		c.Next()
	}
}

func newTitleRouter(svc service.TitleService, actor *models.User) *gin.Engine {
	router := setupRouter()
	group := router.Group("/titles", withActor(actor))
	NewTitleHandler(svc).RegisterRoutes(group)
	return router
}

func floatPtr(v float64) *float64 { return &v }

func TestTitleGet_UnratedRendersNull(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, nil)

	mockSvc.On("GetByID", mock.Anything, int64(1)).
		Return(&service.TitleWithRating{Title: models.Title{ID: 1, Name: "Dune", Year: 2021}}, nil)

	req, _ := http.NewRequest("GET", "/titles/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.JSONEq(t, "null", string(response["rating"]))
}

func TestTitleGet_RatedRendersMean(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, nil)

	mockSvc.On("GetByID", mock.Anything, int64(1)).
		Return(&service.TitleWithRating{
			Title:  models.Title{ID: 1, Name: "Dune", Year: 2021},
			Rating: floatPtr(4.5),
		}, nil)

	req, _ := http.NewRequest("GET", "/titles/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Rating *float64 `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Rating)
	assert.Equal(t, 4.5, *response.Rating)
}

func TestTitleGet_NotFound(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, nil)

	mockSvc.On("GetByID", mock.Anything, int64(404)).Return(nil, repository.ErrNotFound)

	req, _ := http.NewRequest("GET", "/titles/404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTitleList_InvalidYearParam(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, nil)

	req, _ := http.NewRequest("GET", "/titles/?year=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTitleCreate_AnonymousUnauthorized(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, nil)

	body, _ := json.Marshal(dto.CreateTitleDTO{Name: "Dune", Year: 2021, Category: "movie"})
	req, _ := http.NewRequest("POST", "/titles/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTitleCreate_PlainUserForbidden(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, &models.User{ID: "u1", Username: "alice", Role: models.RoleUser})

	body, _ := json.Marshal(dto.CreateTitleDTO{Name: "Dune", Year: 2021, Category: "movie"})
	req, _ := http.NewRequest("POST", "/titles/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTitleCreate_AdminSucceeds(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin})

	in := dto.CreateTitleDTO{Name: "Dune", Year: 2021, Category: "movie"}
	mockSvc.On("Create", mock.Anything, in).
		Return(&service.TitleWithRating{Title: models.Title{ID: 7, Name: "Dune", Year: 2021}}, nil)

	body, _ := json.Marshal(in)
	req, _ := http.NewRequest("POST", "/titles/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestTitleCreate_InvalidYearFromService(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin})

	in := dto.CreateTitleDTO{Name: "Future", Year: 3000, Category: "movie"}
	mockSvc.On("Create", mock.Anything, in).Return(nil, service.ErrInvalidYear)

	body, _ := json.Marshal(in)
	req, _ := http.NewRequest("POST", "/titles/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTitleDelete_AdminSucceeds(t *testing.T) {
	mockSvc := new(MockTitleService)
	router := newTitleRouter(mockSvc, &models.User{ID: "a1", Username: "root", Role: models.RoleAdmin})

	mockSvc.On("Delete", mock.Anything, int64(7)).Return(nil)

	req, _ := http.NewRequest("DELETE", "/titles/7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
