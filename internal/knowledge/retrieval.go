package knowledge

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// Tokenize 提取不区分大小写的字母数字词元，丢弃短于minLen的词
func Tokenize(s string, minLen int) []string {
	if minLen < 1 {
		minLen = 1
	}
	words := wordPattern.FindAllString(s, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minLen {
			continue
		}
		tokens = append(tokens, strings.ToLower(w))
	}
	return tokens
}

func tokenSet(s string, minLen int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(s, minLen) {
		set[t] = struct{}{}
	}
	return set
}

// matchesGate 词法闸门：与相似度得分无关的纯关键词判定。
// 查询词元集合为空时不匹配任何候选（空集匹配空，而不是匹配一切）。
func matchesGate(text string, queryTokens map[string]struct{}, requireAllTerms bool, phrase string, minTokenLen int) bool {
	if len(queryTokens) == 0 {
		return false
	}
	textTokens := tokenSet(text, minTokenLen)
	if requireAllTerms {
		for t := range queryTokens {
			if _, ok := textTokens[t]; !ok {
				return false
			}
		}
	} else {
		found := false
		for t := range queryTokens {
			if _, ok := textTokens[t]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if phrase != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(phrase)) {
		return false
	}
	return true
}

// Candidate 一次查询范围内的检索候选，从不持久化
type Candidate struct {
	Content    string  `json:"content"`
	DocumentID uint    `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"` // 1 - 余弦距离，越大越相似
}

// RetrieveOptions 检索参数
type RetrieveOptions struct {
	K               int
	OverfetchFactor int // 候选池 = max(K*OverfetchFactor, OverfetchFloor)
	OverfetchFloor  int
	RequireAllTerms bool
	Phrase          string
	MinTokenLen     int
}

// GroupedOptions 按文档分组检索的参数
type GroupedOptions struct {
	Overfetch       int
	DocLimit        int
	ChunksPerDoc    int
	RequireAllTerms bool
	MinTokenLen     int
}

// DocumentSnippet 分组结果中的单个片段
type DocumentSnippet struct {
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// DocumentGroup 分组结果中的单个文档
type DocumentGroup struct {
	DocumentID   uint              `json:"document_id"`
	Filename     string            `json:"filename"`
	BestScore    float64           `json:"best_score"`
	TotalMatches int               `json:"total_matches"`
	Snippets     []DocumentSnippet `json:"snippets"`
}

// Retriever 检索网关：向量近邻过采样 + 词法闸门 + 排序截断
type Retriever struct {
	embedder Embedder
	vectors  VectorStore
}

func NewRetriever(embedder Embedder, vectors VectorStore) *Retriever {
	return &Retriever{embedder: embedder, vectors: vectors}
}

// Retrieve 返回通过词法闸门的前K个候选，按得分降序、同分保持索引返回顺序。
// 没有候选通过闸门时返回空切片，这是正常结果而非错误。
func (r *Retriever) Retrieve(ctx context.Context, query string, ownerID uint, opts RetrieveOptions) ([]Candidate, error) {
	candidates, err := r.gatedPool(ctx, query, ownerID, opts.RequireAllTerms, opts.Phrase, opts.MinTokenLen, overfetchSize(opts))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if opts.K > 0 && len(candidates) > opts.K {
		candidates = candidates[:opts.K]
	}
	return candidates, nil
}

// RetrieveGrouped 按文档分桶：文档按其最佳候选得分排序，
// 每个文档保留得分最高的若干片段。不设相似度阈值，进入结果的唯一条件是通过闸门。
func (r *Retriever) RetrieveGrouped(ctx context.Context, query string, ownerID uint, opts GroupedOptions) ([]DocumentGroup, error) {
	overfetch := opts.Overfetch
	if overfetch <= 0 {
		overfetch = 500
	}
	candidates, err := r.gatedPool(ctx, query, ownerID, opts.RequireAllTerms, "", opts.MinTokenLen, overfetch)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// 按文档分桶，保留首次出现的顺序以便稳定排序
	buckets := make(map[uint][]Candidate)
	var docOrder []uint
	for _, c := range candidates {
		if _, seen := buckets[c.DocumentID]; !seen {
			docOrder = append(docOrder, c.DocumentID)
		}
		buckets[c.DocumentID] = append(buckets[c.DocumentID], c)
	}

	chunksPerDoc := opts.ChunksPerDoc
	if chunksPerDoc <= 0 {
		chunksPerDoc = 3
	}

	groups := make([]DocumentGroup, 0, len(docOrder))
	for _, docID := range docOrder {
		items := buckets[docID]
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Score > items[j].Score
		})

		group := DocumentGroup{
			DocumentID:   docID,
			Filename:     items[0].Filename,
			BestScore:    Round4(items[0].Score),
			TotalMatches: len(items),
		}
		top := items
		if len(top) > chunksPerDoc {
			top = top[:chunksPerDoc]
		}
		for _, item := range top {
			group.Snippets = append(group.Snippets, DocumentSnippet{
				ChunkIndex: item.ChunkIndex,
				Score:      Round4(item.Score),
				Snippet:    Snippet(item.Content, 300),
			})
		}
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].BestScore > groups[j].BestScore
	})
	if opts.DocLimit > 0 && len(groups) > opts.DocLimit {
		groups = groups[:opts.DocLimit]
	}
	return groups, nil
}

// gatedPool 取过采样候选池并应用词法闸门，结果保持索引返回顺序
func (r *Retriever) gatedPool(ctx context.Context, query string, ownerID uint, requireAllTerms bool, phrase string, minTokenLen int, poolSize int) ([]Candidate, error) {
	embeddings, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	res, err := r.vectors.Query(ctx, embeddings[0], poolSize, ownerID)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenSet(query, minTokenLen)
	candidates := make([]Candidate, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		text := res.Texts[i]
		if !matchesGate(text, queryTokens, requireAllTerms, phrase, minTokenLen) {
			continue
		}
		candidates = append(candidates, Candidate{
			Content:    text,
			DocumentID: res.Metas[i].DocumentID,
			Filename:   res.Metas[i].Filename,
			ChunkIndex: res.Metas[i].ChunkIndex,
			Score:      1.0 - res.Distances[i],
		})
	}
	return candidates, nil
}

func overfetchSize(opts RetrieveOptions) int {
	factor := opts.OverfetchFactor
	if factor <= 0 {
		factor = 4
	}
	floor := opts.OverfetchFloor
	if floor <= 0 {
		floor = 20
	}
	size := opts.K * factor
	if size < floor {
		size = floor
	}
	return size
}

// Round4 得分保留4位小数
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Snippet 截取文本前max个字符，截断时追加省略号
func Snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
