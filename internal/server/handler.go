package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recipestack/authgate/internal/authz"
	"github.com/recipestack/authgate/internal/observability"
)

// AuthorizeRequest is the request body the enforcement layer sends.
type AuthorizeRequest struct {
	MethodARN          string `json:"methodArn" binding:"required"`
	AuthorizationToken string `json:"authorizationToken"`
}

// handleAuthorize runs the decision pipeline for one request. The caller
// sees either a decision document or an opaque unauthorized message, never
// internal error text.
func (s *Server) handleAuthorize(c *gin.Context) {
	var req AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Bad request"})
		return
	}

	decision, err := s.service.Authorize(c.Request.Context(), req.MethodARN, req.AuthorizationToken)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		// A builder defect, not an authorization outcome.
		s.logger.WithContext(c.Request.Context()).Error("decision construction failed",
			observability.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
