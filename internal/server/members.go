package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/outlinehq/outliner/internal/organization/domain"
)

func (s *Server) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	members, err := s.organizationSvc.ListMembers(c.Request.Context(), userID, c.Query("orgId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) InviteMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req inviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.organizationSvc.InviteMember(c.Request.Context(), userID, c.Query("orgId"), organizationdomain.InviteMemberRequest{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == organizationdomain.OutcomeInvited {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (s *Server) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	err := s.organizationSvc.RemoveMember(c.Request.Context(), userID, c.Query("orgId"), c.Param("memberId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
