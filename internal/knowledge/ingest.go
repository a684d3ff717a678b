package knowledge

import (
	"context"

	"gorm.io/gorm"

	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/models"
)

// ChunkStore 分块行的持久化存储
type ChunkStore interface {
	SaveChunks(ctx context.Context, chunks []models.DocumentChunk) error
}

// GormChunkStore 基于gorm的分块存储，单事务批量写入
type GormChunkStore struct {
	db *gorm.DB
}

func NewGormChunkStore(db *gorm.DB) *GormChunkStore {
	return &GormChunkStore{db: db}
}

func (s *GormChunkStore) SaveChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&chunks).Error
}

// Ingestor 文档摄取流水线：分块 → 落库 → 向量化 → 写入向量索引
type Ingestor struct {
	chunker    *Chunker
	embedder   Embedder
	vectors    VectorStore
	chunkStore ChunkStore
}

func NewIngestor(chunker *Chunker, embedder Embedder, vectors VectorStore, chunkStore ChunkStore) *Ingestor {
	return &Ingestor{
		chunker:    chunker,
		embedder:   embedder,
		vectors:    vectors,
		chunkStore: chunkStore,
	}
}

// Ingest 摄取一个文档的全部文本，返回写入的分块数量。
// 空白文本直接返回0，不产生任何写入。
// 分块行先以单批落库；落库失败时不做任何向量计算。
// 落库之后的嵌入或索引失败会留下"已持久化但不可检索"的中间态，
// 向量ID按(document, position)确定生成，重跑摄取即可覆盖修复。
func (p *Ingestor) Ingest(ctx context.Context, text string, documentID, ownerID uint, filename string) (int, error) {
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	rows := make([]models.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, models.DocumentChunk{
			DocumentID: documentID,
			OwnerID:    ownerID,
			Position:   chunk.Index,
			Content:    chunk.Text,
		})
	}
	if err := p.chunkStore.SaveChunks(ctx, rows); err != nil {
		return 0, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to persist document chunks").WithCause(err)
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	records := make([]VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, VectorRecord{
			ID:        ChunkVectorID(documentID, chunk.Index),
			Text:      chunk.Text,
			Embedding: embeddings[i],
			Meta: VectorMetadata{
				DocumentID: documentID,
				ChunkIndex: chunk.Index,
				OwnerID:    ownerID,
				Filename:   filename,
			},
		})
	}
	if err := p.vectors.Upsert(ctx, records); err != nil {
		return 0, apperrors.NewExternalError("vector index", err)
	}

	return len(chunks), nil
}
