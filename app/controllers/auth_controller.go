package controllers

import (
	"encoding/json"
	"net/http"
)

// AuthController 注册、登录与个人资料
type AuthController struct {
	BaseController
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register POST /api/auth/register
func (c *AuthController) Register() {
	var req registerRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := registry.Users.Register(req.Email, req.Password)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"id":    user.UserID,
			"email": user.Email,
		},
	})
}

// Login POST /api/auth/login
func (c *AuthController) Login() {
	var req loginRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := registry.Users.Authenticate(req.Email, req.Password)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	token, err := registry.JWT.GenerateToken(user.UserID, user.Email)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Profile GET /api/auth/profile
func (c *AuthController) Profile() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	user, err := registry.Users.GetByID(userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"id":    user.UserID,
		"email": user.Email,
		"role":  user.Role,
	})
}
