package controllers

import (
	"io"
	"net/http"
	"strconv"
)

// DocumentController 文档上传、查询与删除
type DocumentController struct {
	BaseController
}

// Upload POST /api/documents/upload (multipart表单，字段名file)
func (c *DocumentController) Upload() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := registry.Documents.Upload(c.Ctx.Request.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// List GET /api/documents?q=过滤文件名
func (c *DocumentController) List() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	docs, err := registry.Documents.List(userID, c.GetString("q"))
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

// Get GET /api/documents/:id
func (c *DocumentController) Get() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	documentID, ok := c.pathID()
	if !ok {
		return
	}

	doc, err := registry.Documents.Get(userID, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(doc)
}

// Delete DELETE /api/documents/:id
func (c *DocumentController) Delete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	documentID, ok := c.pathID()
	if !ok {
		return
	}

	if err := registry.Documents.Delete(c.Ctx.Request.Context(), userID, documentID); err != nil {
		c.JSONAppError(err)
		return
	}
	c.Ctx.Output.SetStatus(http.StatusNoContent)
}

func (c *DocumentController) pathID() (uint, bool) {
	id, err := strconv.ParseUint(c.Ctx.Input.Param(":id"), 10, 32)
	if err != nil || id == 0 {
		c.JSONError(http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return uint(id), true
}
