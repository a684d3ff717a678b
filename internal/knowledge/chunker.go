package knowledge

import (
	"fmt"
	"strings"
)

// Chunk 表示分块后的文本片段
type Chunk struct {
	Index int
	Text  string
}

// Chunker 滑动窗口文本分块器
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器。要求 0 <= overlap < chunkSize，否则窗口无法推进。
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, chunkSize)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}, nil
}

// Split 将文本切分为多个chunk。
// 窗口为 [start, start+chunkSize)，下一个窗口从 end-overlap 开始，
// 每个chunk与前一个chunk的尾部重叠overlap个字符。末尾不足一个窗口时照常输出。
// 纯函数：相同输入必得相同输出。
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	n := len(runes)
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
		if end == n {
			break
		}
		start = end - c.chunkOverlap
	}

	return chunks
}

// ChunkSize 返回窗口大小
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap 返回窗口重叠大小
func (c *Chunker) Overlap() int {
	return c.chunkOverlap
}
