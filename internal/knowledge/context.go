package knowledge

import (
	"fmt"
	"strings"
)

// charsPerToken 把token预算折算成字符预算的启发式系数。
// 不调用任何分词器，预算只是上界控制而非精确计量。
const charsPerToken = 4

// BuildContext 按候选给定顺序拼装提示词上下文，受token预算约束。
// 块要么整体进入要么整体不进，绝不截断块内文本；
// 首个块就超出预算时返回空串。
func BuildContext(candidates []Candidate, tokenBudget int) string {
	if tokenBudget <= 0 || len(candidates) == 0 {
		return ""
	}
	budgetChars := tokenBudget * charsPerToken

	var builder strings.Builder
	used := 0
	for _, c := range candidates {
		block := fmt.Sprintf("[%s #%d]\n%s\n---\n", c.Filename, c.ChunkIndex, c.Content)
		if used+len(block) > budgetChars {
			break
		}
		builder.WriteString(block)
		used += len(block)
	}
	return strings.TrimSpace(builder.String())
}
