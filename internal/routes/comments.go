package routes

import (
	"strings"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/storage"
)

// CommentRoutes mounts the per-event comment thread endpoints.
func CommentRoutes(r *gin.RouterGroup) {
	r.GET("/events/:id/comments", func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		id, err := parseIDParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ev, _, err := requireEventAccess(c, principal, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		comments, err := provider.ListComments(c.Request.Context(), ev.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, comments)
	})

	r.POST("/events/:id/comments", func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		id, err := parseIDParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ev, _, err := requireEventAccess(c, principal, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.Content = strings.TrimSpace(req.Content)
		if req.Content == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		comment, err := provider.CreateComment(c.Request.Context(), storage.EventComment{
			EventID: ev.ID,
			UserID:  principal.UserID,
			Content: req.Content,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		Created(c, comment)
	})

	r.DELETE("/events/:id/comments/:commentId", func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		id, err := parseIDParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		commentID, err := parseIDParam(c, "commentId")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ev, _, err := requireEventAccess(c, principal, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx := c.Request.Context()

		comment, err := provider.GetComment(ctx, commentID)
		if err != nil {
			AbortWithError(c, ErrCommentNotFound)
			return
		}
		// Only the author may delete their own comment.
		if comment.EventID != ev.ID || comment.UserID != principal.UserID {
			AbortWithError(c, ErrForbidden)
			return
		}

		if err := provider.DeleteComment(ctx, comment.ID); err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, gin.H{"deleted": comment.ID})
	})
}
