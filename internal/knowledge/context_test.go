package knowledge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandidate(filename string, index int, content string) Candidate {
	return Candidate{Filename: filename, ChunkIndex: index, Content: content}
}

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil, 800))
	assert.Equal(t, "", BuildContext([]Candidate{makeCandidate("a.txt", 0, "text")}, 0))
}

func TestBuildContext_BlockFormat(t *testing.T) {
	got := BuildContext([]Candidate{makeCandidate("report.pdf", 3, "chunk body")}, 800)
	// 尾部的分隔线保留，结果整体去除首尾空白
	assert.Equal(t, "[report.pdf #3]\nchunk body\n---", got)
}

func TestBuildContext_BudgetBound(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("a.txt", 0, strings.Repeat("x", 100)),
		makeCandidate("a.txt", 1, strings.Repeat("y", 100)),
		makeCandidate("a.txt", 2, strings.Repeat("z", 100)),
	}
	// 预算50个token = 200字符，只装得下第一个块
	got := BuildContext(candidates, 50)
	assert.Contains(t, got, "xxx")
	assert.NotContains(t, got, "yyy")
	assert.LessOrEqual(t, len(got), 50*4)
}

// 块只会整体进入，绝不截断块内文本
func TestBuildContext_NoPartialBlocks(t *testing.T) {
	content := strings.Repeat("a", 150)
	candidates := []Candidate{
		makeCandidate("a.txt", 0, content),
		makeCandidate("a.txt", 1, strings.Repeat("b", 150)),
	}
	got := BuildContext(candidates, 50)
	require.Contains(t, got, content)
	assert.NotContains(t, got, "b")
}

func TestBuildContext_FirstBlockTooBig(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("a.txt", 0, strings.Repeat("a", 5000)),
	}
	// 首块就超预算时返回空串，而不是截断的半个块
	assert.Equal(t, "", BuildContext(candidates, 100))
}

func TestBuildContext_PreservesCandidateOrder(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("b.txt", 1, "second ranked"),
		makeCandidate("a.txt", 0, "first ranked"),
	}
	got := BuildContext(candidates, 800)
	first := strings.Index(got, "second ranked")
	second := strings.Index(got, "first ranked")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestBuildContext_MultipleBlocks(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 3; i++ {
		candidates = append(candidates, makeCandidate("doc.txt", i, fmt.Sprintf("block %d", i)))
	}
	got := BuildContext(candidates, 800)
	for i := 0; i < 3; i++ {
		assert.Contains(t, got, fmt.Sprintf("[doc.txt #%d]\nblock %d\n---", i, i))
	}
}
