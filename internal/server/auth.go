package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/outlinehq/outliner/internal/auth/domain"
)

type userView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

func newUserView(user *authdomain.User) userView {
	return userView{
		ID:            user.ID.String(),
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	}
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Sign-up establishes a session immediately.
	login, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     result.User.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, login.RawToken, login.ExpiresAt)

	resp := gin.H{
		"user":      newUserView(result.User),
		"emailSent": result.EmailSent,
	}
	if result.EmailError != "" {
		resp["emailError"] = result.EmailError
	}
	c.JSON(http.StatusCreated, resp)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	login, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, login.RawToken, login.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"user": newUserView(login.User)})
}

func (s *Server) SignOut(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		// An already dead session still clears the cookie.
		_ = s.authsvc.Logout(c.Request.Context(), token)
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) Session(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserView(user)})
}

func (s *Server) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		AbortWithError(c, newValidationError("token", "invalid_token", "token is required"))
		return
	}

	user, err := s.authsvc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserView(user)})
}
