package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mangavault/internal/auth"
	"mangavault/internal/user"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

func (d *Deps) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "username (3-30 alphanumeric), email and password (8+ chars) required")
		return
	}

	u, err := user.Create(c.Request.Context(), d.DB, req.Username, req.Email, req.Password)
	if err != nil {
		d.fail(c, err)
		return
	}

	token, err := auth.SignJWT(d.JWTSecret, u.ID, u.Username, u.Role, TokenTTL)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": u})
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

func (d *Deps) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "login and password required")
		return
	}

	u, err := user.VerifyLogin(c.Request.Context(), d.DB, req.Login, req.Password)
	if err != nil {
		d.fail(c, err)
		return
	}

	token, err := auth.SignJWT(d.JWTSecret, u.ID, u.Username, u.Role, TokenTTL)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}
