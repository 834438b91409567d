package handler

import (
	"context"
	"net/http"
	"time"

	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/policy"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// RegisterRoutes mounts the profile routes. requireAuth guards the /me pair;
// the named-user routes stay on the group's optional auth so the policy
// layer decides between 401 and 403.
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/me", requireAuth, h.Me)
	rg.PATCH("/me", requireAuth, h.UpdateMe)

	rg.GET("/", h.List)
	rg.POST("/", h.Create)
	rg.GET("/:username", h.Get)
	rg.PATCH("/:username", h.Update)
	rg.DELETE("/:username", h.Delete)
}

// accountNamed is the authorization view of the profile addressed by
// username. No lookup happens here: an actor who may not read the profile
// gets the same answer whether or not the row exists.
func accountNamed(actor *models.User, username string) policy.Resource {
	res := policy.Resource{Kind: policy.KindUserAccount}
	if actor != nil && actor.Username == username {
		res.OwnerID = actor.ID
	}
	return res
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		respondError(c, policy.ErrUnauthenticated)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// The token only carries identity; load the stored profile.
	user, err := h.svc.GetByID(ctx, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(*user))
}

// UpdateMe handles PATCH /users/me. A client-submitted role change is
// silently dropped, not errored: the stored role always wins here.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		respondError(c, policy.ErrUnauthenticated)
		return
	}

	if err := policy.Authorize(actor, policy.ActionUpdate, policy.AccountOf(actor)); err != nil {
		respondError(c, err)
		return
	}

	var patch dto.UpdateUserDTO
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.svc.Update(ctx, actor.Username, patch, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(*user))
}

// List handles GET /users with optional ?search= on username. Admin only.
func (h *UserHandler) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.KindUserAccount}); err != nil {
		respondError(c, err)
		return
	}

	page, pageSize := parsePagination(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.svc.List(ctx, c.Query("search"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, dto.UserFromModel(u))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       resp,
		"pagination": dto.NewPagination(page, pageSize, total),
	})
}

// Create handles POST /users. Admin only; unlike signup this may set any
// field including role.
func (h *UserHandler) Create(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionCreate, policy.Resource{Kind: policy.KindUserAccount}); err != nil {
		respondError(c, err)
		return
	}

	var in dto.CreateUserDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user := in.ToModel()
	if err := h.svc.Create(ctx, &user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.UserFromModel(user))
}

func (h *UserHandler) Get(c *gin.Context) {
	username := c.Param("username")
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionRead, accountNamed(actor, username)); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.svc.GetByUsername(ctx, username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(*user))
}

func (h *UserHandler) Update(c *gin.Context) {
	username := c.Param("username")
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionUpdate, accountNamed(actor, username)); err != nil {
		respondError(c, err)
		return
	}

	var patch dto.UpdateUserDTO
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Only an admin actor may change roles through this path.
	user, err := h.svc.Update(ctx, username, patch, actor.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(*user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionDelete, policy.Resource{Kind: policy.KindUserAccount}); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
