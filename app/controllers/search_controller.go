package controllers

import (
	"github.com/bkplatform/backend-go/internal/services"
)

// SearchController 文档级关键词检索
type SearchController struct {
	BaseController
}

// Search GET /api/search?q=...&doc_limit=&chunks_per_doc=&require_all_terms=
func (c *SearchController) Search() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	docLimit, _ := c.GetInt("doc_limit", 0)
	chunksPerDoc, _ := c.GetInt("chunks_per_doc", 0)
	requireAll, _ := c.GetBool("require_all_terms", false)

	req := services.SearchRequest{
		Query:           c.GetString("q"),
		DocLimit:        docLimit,
		ChunksPerDoc:    chunksPerDoc,
		RequireAllTerms: requireAll,
	}

	result, err := registry.Search.Search(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}
