package services

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bkplatform/backend-go/internal/config"
	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/kafka"
	"github.com/bkplatform/backend-go/internal/knowledge"
	"github.com/bkplatform/backend-go/internal/llm"
	"github.com/bkplatform/backend-go/internal/logger"
	"github.com/bkplatform/backend-go/internal/metrics"
)

// AskRequest 问答请求
type AskRequest struct {
	Question         string `json:"question" validate:"required,min=2"`
	K                int    `json:"k" validate:"gte=1,lte=20"`
	MaxContextTokens int    `json:"max_context_tokens" validate:"gte=200,lte=4000"`
	MaxAnswerChars   int    `json:"max_answer_chars" validate:"gte=30,lte=600"`
	RequireAllTerms  bool   `json:"require_all_terms"`
	Phrase           string `json:"phrase"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
}

// AskResult 问答响应
type AskResult struct {
	Answer    string               `json:"answer"`
	Citations []knowledge.Citation `json:"citations"`
	Outcome   string               `json:"outcome"`
}

// KnowledgeService 有据问答服务
type KnowledgeService struct {
	retriever *knowledge.Retriever
	activity  *ActivityService
	llmCfg    config.LLMConfig
	retCfg    config.RetrievalConfig
	qaCfg     config.QAConfig
	validate  *validator.Validate

	// 可注入，测试时替换
	selectGateway func(config.LLMConfig, string, string) (llm.Gateway, error)
}

func NewKnowledgeService(retriever *knowledge.Retriever, activity *ActivityService, llmCfg config.LLMConfig, retCfg config.RetrievalConfig, qaCfg config.QAConfig) *KnowledgeService {
	return &KnowledgeService{
		retriever:     retriever,
		activity:      activity,
		llmCfg:        llmCfg,
		retCfg:        retCfg,
		qaCfg:         qaCfg,
		validate:      validator.New(),
		selectGateway: llm.Select,
	}
}

// applyDefaults 未填字段取默认值，再走验证
func (s *KnowledgeService) applyDefaults(req *AskRequest) {
	if req.K == 0 {
		req.K = s.qaCfg.DefaultTopK
	}
	if req.MaxContextTokens == 0 {
		req.MaxContextTokens = s.qaCfg.DefaultContextTokens
	}
	if req.MaxAnswerChars == 0 {
		req.MaxAnswerChars = s.qaCfg.DefaultMaxAnswerChars
	}
}

// Ask 基于用户文档回答问题。
// 闸门没放行任何候选时直接拒答，不触发模型调用；
// 回答与拒答都是正常返回，error只代表基础设施故障。
func (s *KnowledgeService) Ask(ctx context.Context, userID uint, req AskRequest) (*AskResult, error) {
	s.applyDefaults(&req)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	gateway, err := s.selectGateway(s.llmCfg, req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	candidates, err := s.retriever.Retrieve(ctx, req.Question, userID, knowledge.RetrieveOptions{
		K:               req.K,
		OverfetchFactor: s.retCfg.AskOverfetchFactor,
		OverfetchFloor:  s.retCfg.AskOverfetchFloor,
		RequireAllTerms: req.RequireAllTerms,
		Phrase:          req.Phrase,
		MinTokenLen:     s.retCfg.AskMinTokenLen,
	})
	if err != nil {
		return nil, err
	}

	synthesizer := knowledge.NewSynthesizer(gateway)
	answer, err := synthesizer.Synthesize(ctx, req.Question, candidates, req.MaxContextTokens, req.MaxAnswerChars)
	if err != nil {
		metrics.LLMErrors.WithLabelValues(gateway.Name()).Inc()
		return nil, err
	}

	s.activity.LogSearch(userID, req.Question)
	metrics.QuestionsTotal.WithLabelValues(string(answer.Outcome)).Inc()
	kafka.PublishAudit(kafka.AuditEvent{
		Event:   kafka.EventQuestionAsked,
		UserID:  userID,
		Query:   req.Question,
		Outcome: string(answer.Outcome),
	})
	logger.Info("问答完成",
		zap.Uint("user_id", userID),
		zap.String("outcome", string(answer.Outcome)),
		zap.Int("candidates", len(candidates)),
		zap.String("provider", gateway.Name()))

	return &AskResult{
		Answer:    answer.Text,
		Citations: answer.Citations,
		Outcome:   string(answer.Outcome),
	}, nil
}
