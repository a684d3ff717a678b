package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/bkplatform/backend-go/internal/services"
)

// KnowledgeController 基于已上传文档的问答
type KnowledgeController struct {
	BaseController
}

// Ask POST /api/knowledge/ask
func (c *KnowledgeController) Ask() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.AskRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := registry.Knowledge.Ask(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}
