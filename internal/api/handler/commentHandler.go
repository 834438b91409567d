package handler

import (
	"context"
	"net/http"
	"time"

	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/policy"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc service.CommentService
}

func NewCommentHandler(svc service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// RegisterRoutes mounts comments under their parent review:
// /titles/:title_id/reviews/:review_id/comments/:comment_id.
func (h *CommentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:title_id/reviews/:review_id/comments", h.List)
	rg.GET("/:title_id/reviews/:review_id/comments/:comment_id", h.Get)
	rg.POST("/:title_id/reviews/:review_id/comments", h.Create)
	rg.PATCH("/:title_id/reviews/:review_id/comments/:comment_id", h.Update)
	rg.DELETE("/:title_id/reviews/:review_id/comments/:comment_id", h.Delete)
}

// nestedIDs pulls the title/review pair every comment route carries.
func nestedIDs(c *gin.Context) (titleID, reviewID int64, ok bool) {
	titleID, ok = parseID(c, "title_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return 0, 0, false
	}
	reviewID, ok = parseID(c, "review_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
		return 0, 0, false
	}
	return titleID, reviewID, true
}

func (h *CommentHandler) List(c *gin.Context) {
	titleID, reviewID, ok := nestedIDs(c)
	if !ok {
		return
	}

	page, pageSize := parsePagination(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comments, total, err := h.svc.ListByReview(ctx, titleID, reviewID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		resp = append(resp, dto.CommentFromModel(comment))
	}
	c.JSON(http.StatusOK, dto.PaginatedCommentResponse{
		Data:       resp,
		Pagination: dto.NewPagination(page, pageSize, total),
	})
}

func (h *CommentHandler) Get(c *gin.Context) {
	titleID, reviewID, ok := nestedIDs(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comment, err := h.svc.GetByID(ctx, titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CommentFromModel(*comment))
}

func (h *CommentHandler) Create(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionCreate, policy.Resource{Kind: policy.KindComment}); err != nil {
		respondError(c, err)
		return
	}

	titleID, reviewID, ok := nestedIDs(c)
	if !ok {
		return
	}

	var in dto.CreateCommentDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comment, err := h.svc.Create(ctx, titleID, reviewID, actor.ID, in.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CommentFromModel(*comment))
}

func (h *CommentHandler) Update(c *gin.Context) {
	titleID, reviewID, ok := nestedIDs(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comment, err := h.svc.GetByID(ctx, titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.CommentOf(comment)); err != nil {
		respondError(c, err)
		return
	}

	var in dto.UpdateCommentDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.Update(ctx, comment, in.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CommentFromModel(*updated))
}

func (h *CommentHandler) Delete(c *gin.Context) {
	titleID, reviewID, ok := nestedIDs(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comment, err := h.svc.GetByID(ctx, titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionDelete, policy.CommentOf(comment)); err != nil {
		respondError(c, err)
		return
	}

	if err := h.svc.Delete(ctx, comment.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
