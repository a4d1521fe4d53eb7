package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetInvitation is unauthenticated: recipients open the invite link before
// they have an account.
func (s *Server) GetInvitation(c *gin.Context) {
	details, err := s.organizationSvc.GetInvitationDetails(c.Request.Context(), c.Param("invitationId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

type joinOrganizationRequest struct {
	InvitationID string `json:"invitationId"`
}

func (s *Server) JoinOrganization(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req joinOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.organizationSvc.AcceptInvitation(c.Request.Context(), userID, req.InvitationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
