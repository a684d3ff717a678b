package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bkplatform/backend-go/internal/config"
	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/knowledge"
	"github.com/bkplatform/backend-go/internal/logger"
	"github.com/bkplatform/backend-go/internal/metrics"
)

const searchCacheTTL = 60 * time.Second

// SearchRequest 关键词搜索请求
type SearchRequest struct {
	Query           string `json:"q"`
	DocLimit        int    `json:"doc_limit"`
	ChunksPerDoc    int    `json:"chunks_per_doc"`
	RequireAllTerms bool   `json:"require_all_terms"`
}

// SearchResult 按文档分组的搜索结果
type SearchResult struct {
	Query     string                    `json:"query"`
	Documents []knowledge.DocumentGroup `json:"documents"`
}

// SearchService 关键词优先的分组语义搜索
type SearchService struct {
	retriever *knowledge.Retriever
	activity  *ActivityService
	cache     *redis.Client
	cfg       config.RetrievalConfig
}

func NewSearchService(retriever *knowledge.Retriever, activity *ActivityService, cache *redis.Client, cfg config.RetrievalConfig) *SearchService {
	return &SearchService{
		retriever: retriever,
		activity:  activity,
		cache:     cache,
		cfg:       cfg,
	}
}

// Search 执行分组搜索。结果按(用户,请求)缓存一小段时间。
func (s *SearchService) Search(ctx context.Context, userID uint, req SearchRequest) (*SearchResult, error) {
	if len(req.Query) < 2 {
		return nil, apperrors.NewValidationError("query must be at least 2 characters")
	}
	if req.DocLimit <= 0 || req.DocLimit > 200 {
		req.DocLimit = s.cfg.DefaultDocLimit
	}
	if req.ChunksPerDoc <= 0 || req.ChunksPerDoc > 20 {
		req.ChunksPerDoc = s.cfg.DefaultChunksPerDoc
	}

	cacheKey := s.cacheKey(userID, req)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	groups, err := s.retriever.RetrieveGrouped(ctx, req.Query, userID, knowledge.GroupedOptions{
		Overfetch:       s.cfg.SearchOverfetch,
		DocLimit:        req.DocLimit,
		ChunksPerDoc:    req.ChunksPerDoc,
		RequireAllTerms: req.RequireAllTerms,
		MinTokenLen:     s.cfg.SearchMinTokenLen,
	})
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []knowledge.DocumentGroup{}
	}

	result := &SearchResult{Query: req.Query, Documents: groups}
	s.toCache(ctx, cacheKey, result)
	s.activity.LogSearch(userID, req.Query)
	metrics.SearchesTotal.Inc()
	return result, nil
}

func (s *SearchService) cacheKey(userID uint, req SearchRequest) string {
	raw := fmt.Sprintf("%d|%s|%d|%d|%t", userID, req.Query, req.DocLimit, req.ChunksPerDoc, req.RequireAllTerms)
	sum := sha256.Sum256([]byte(raw))
	return "search:" + hex.EncodeToString(sum[:16])
}

func (s *SearchService) fromCache(ctx context.Context, key string) *SearchResult {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var result SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *SearchService) toCache(ctx context.Context, key string, result *SearchResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, searchCacheTTL).Err(); err != nil {
		logger.Debug("搜索结果缓存写入失败", zap.Error(err))
	}
}
