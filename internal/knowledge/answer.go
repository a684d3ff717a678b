package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bkplatform/backend-go/internal/llm"
)

// RefusalAnswer 证据不足时的固定回答，逐字节精确，绝不改写
const RefusalAnswer = "Not found in the provided documents."

// systemPrompt 严格限定模型只依据上下文作答
const systemPrompt = "You are a retrieval QA assistant.\n" +
	"Follow ALL rules:\n" +
	"1) Use ONLY the provided context. If the context does not contain the answer, reply exactly: " +
	"'Not found in the provided documents.'\n" +
	"2) Do NOT repeat or paraphrase the question.\n" +
	"3) Do NOT repeat or paraphrase the context.\n" +
	"4) Answer with a single short sentence or phrase. No preamble, no extra commentary.\n"

// Outcome 一次问答的结局
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeRefused  Outcome = "refused"
)

// Citation 回答引用的分块
type Citation struct {
	DocumentID uint    `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// Answer 合成结果
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Outcome   Outcome    `json:"-"`
}

var (
	questionEcho = regexp.MustCompile(`(?s)^Question:.*?\n\n`)
	contextEcho  = regexp.MustCompile(`(?s)^Context:.*`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Synthesizer 有据回答合成器：要么给出有引用支撑的回答，要么精确拒答
type Synthesizer struct {
	gateway llm.Gateway
}

func NewSynthesizer(gateway llm.Gateway) *Synthesizer {
	return &Synthesizer{gateway: gateway}
}

// Refusal 不带引用的拒答结果
func Refusal() Answer {
	return Answer{
		Text:      RefusalAnswer,
		Citations: []Citation{},
		Outcome:   OutcomeRefused,
	}
}

// Synthesize 基于候选上下文回答问题。
// 候选为空时直接拒答，不发起任何模型调用；
// 模型输出经过回显剥离与长度压缩，仍不合格则强制拒答。
// 引用覆盖全部候选，即使上下文预算没有容纳所有块。
func (s *Synthesizer) Synthesize(ctx context.Context, question string, candidates []Candidate, contextTokens, maxAnswerChars int) (Answer, error) {
	if len(candidates) == 0 {
		return Refusal(), nil
	}

	contextText := BuildContext(candidates, contextTokens)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", question, contextText)},
	}

	raw, err := s.gateway.Complete(ctx, messages)
	if err != nil {
		return Answer{}, err
	}

	answer := postProcess(strings.TrimSpace(raw), maxAnswerChars)
	lower := strings.ToLower(answer)
	if answer == "" || strings.HasPrefix(lower, "question:") || strings.HasPrefix(lower, "context:") {
		answer = RefusalAnswer
	}

	result := Answer{
		Text:      answer,
		Citations: buildCitations(candidates),
		Outcome:   OutcomeAnswered,
	}
	if answer == RefusalAnswer {
		result.Outcome = OutcomeRefused
	}
	return result, nil
}

// postProcess 剥离问题/上下文回显，压成单行并硬性截断
func postProcess(answer string, maxChars int) string {
	answer = strings.TrimSpace(questionEcho.ReplaceAllString(answer, ""))
	answer = strings.TrimSpace(contextEcho.ReplaceAllString(answer, ""))
	answer = strings.TrimSpace(whitespace.ReplaceAllString(answer, " "))

	if maxChars > 0 {
		runes := []rune(answer)
		if len(runes) > maxChars {
			answer = strings.TrimRight(string(runes[:maxChars-1]), " ") + "…"
		}
	}
	return answer
}

func buildCitations(candidates []Candidate) []Citation {
	citations := make([]Citation, 0, len(candidates))
	for _, c := range candidates {
		citations = append(citations, Citation{
			DocumentID: c.DocumentID,
			Filename:   c.Filename,
			ChunkIndex: c.ChunkIndex,
			Score:      Round4(c.Score),
			Snippet:    Snippet(c.Content, 240),
		})
	}
	return citations
}
