package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/models"
)

// memChunkStore 内存分块存储，可注入失败
type memChunkStore struct {
	saved []models.DocumentChunk
	err   error
}

func (s *memChunkStore) SaveChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, chunks...)
	return nil
}

// countingEmbedder 统计嵌入调用
type countingEmbedder struct {
	stubEmbedder
	batches int
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches++
	return e.stubEmbedder.EmbedBatch(ctx, texts)
}

func newTestIngestor(t *testing.T, embedder Embedder, vectors VectorStore, chunkStore ChunkStore) *Ingestor {
	t.Helper()
	chunker, err := NewChunker(10, 3)
	require.NoError(t, err)
	return NewIngestor(chunker, embedder, vectors, chunkStore)
}

func TestIngest_EmptyText(t *testing.T) {
	embedder := &countingEmbedder{stubEmbedder: stubEmbedder{vector: []float32{1}}}
	store := NewMemoryVectorStore()
	chunkStore := &memChunkStore{}
	ing := newTestIngestor(t, embedder, store, chunkStore)

	n, err := ing.Ingest(context.Background(), "   \n  ", 1, 1, "empty.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, chunkStore.saved)
	assert.Equal(t, 0, embedder.batches)
}

func TestIngest_PersistsChunksAndVectors(t *testing.T) {
	embedder := &countingEmbedder{stubEmbedder: stubEmbedder{vector: []float32{1, 0}}}
	store := NewMemoryVectorStore()
	chunkStore := &memChunkStore{}
	ing := newTestIngestor(t, embedder, store, chunkStore)

	text := strings.Repeat("abcdefg", 5) // 35字符 → 多个窗口
	n, err := ing.Ingest(context.Background(), text, 42, 7, "doc.txt")
	require.NoError(t, err)
	assert.Greater(t, n, 1)

	// 分块行带租户与位置
	require.Len(t, chunkStore.saved, n)
	for i, row := range chunkStore.saved {
		assert.Equal(t, uint(42), row.DocumentID)
		assert.Equal(t, uint(7), row.OwnerID)
		assert.Equal(t, i, row.Position)
		assert.NotEmpty(t, row.Content)
	}

	// 全部分块单批嵌入
	assert.Equal(t, 1, embedder.batches)

	// 向量以确定性ID写入，按租户可查
	res, err := store.Query(context.Background(), []float32{1, 0}, n, 7)
	require.NoError(t, err)
	assert.Equal(t, n, res.Len())

	// 其他租户查不到
	other, err := store.Query(context.Background(), []float32{1, 0}, n, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
}

func TestIngest_Reingest_Idempotent(t *testing.T) {
	embedder := &countingEmbedder{stubEmbedder: stubEmbedder{vector: []float32{1}}}
	store := NewMemoryVectorStore()
	ing := newTestIngestor(t, embedder, store, &memChunkStore{})

	text := "hello world again"
	n1, err := ing.Ingest(context.Background(), text, 1, 1, "a.txt")
	require.NoError(t, err)
	n2, err := ing.Ingest(context.Background(), text, 1, 1, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	// 重复摄取按ID覆盖，向量不会翻倍
	res, err := store.Query(context.Background(), []float32{1}, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, n1, res.Len())
}

func TestIngest_DBFailureAbortsBeforeEmbedding(t *testing.T) {
	embedder := &countingEmbedder{stubEmbedder: stubEmbedder{vector: []float32{1}}}
	store := NewMemoryVectorStore()
	chunkStore := &memChunkStore{err: errors.New("connection refused")}
	ing := newTestIngestor(t, embedder, store, chunkStore)

	_, err := ing.Ingest(context.Background(), "some document text", 1, 1, "a.txt")
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeDatabaseError, appErr.Code)

	// 落库失败后不做任何向量计算
	assert.Equal(t, 0, embedder.batches)
	res, err := store.Query(context.Background(), []float32{1}, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestChunkVectorID(t *testing.T) {
	assert.Equal(t, "doc42_chunk0", ChunkVectorID(42, 0))
	assert.Equal(t, "doc1_chunk17", ChunkVectorID(1, 17))
}

func TestMemoryVectorStore_DeleteDocument(t *testing.T) {
	store := NewMemoryVectorStore()
	records := []VectorRecord{
		{ID: "doc1_chunk0", Text: "a", Embedding: []float32{1}, Meta: VectorMetadata{DocumentID: 1, OwnerID: 1}},
		{ID: "doc2_chunk0", Text: "b", Embedding: []float32{1}, Meta: VectorMetadata{DocumentID: 2, OwnerID: 1}},
	}
	require.NoError(t, store.Upsert(context.Background(), records))

	require.NoError(t, store.DeleteDocument(context.Background(), 1, 1))
	res, err := store.Query(context.Background(), []float32{1}, 10, 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, uint(2), res.Metas[0].DocumentID)
}
