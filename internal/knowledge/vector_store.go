package knowledge

import (
	"context"
	"fmt"
)

// VectorMetadata 向量记录的有名元数据字段
type VectorMetadata struct {
	DocumentID uint   `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	OwnerID    uint   `json:"owner_id"`
	Filename   string `json:"filename"`
}

// VectorRecord 向量索引中的一条记录，按ID幂等覆盖写入
type VectorRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Meta      VectorMetadata
}

// VectorQueryResult 近邻查询结果，三个切片按位对齐。
// Distances为余弦距离（[0,2]），相似度 = 1 - distance。
type VectorQueryResult struct {
	Texts     []string
	Metas     []VectorMetadata
	Distances []float64
}

// Len 返回结果条数
func (r VectorQueryResult) Len() int {
	return len(r.Texts)
}

// VectorStore 向量存储抽象。
// 所有租户共享一个命名空间，隔离完全依赖Query请求自带的ownerID等值过滤；
// 不能在查询期按owner过滤的实现不是合法的后端。
type VectorStore interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	Query(ctx context.Context, embedding []float32, k int, ownerID uint) (VectorQueryResult, error)
	// DeleteDocument 删除一个文档的全部向量。
	// 当前版本文档删除路径有意不调用它（残留向量是已知并记录的限制），保留接口供后续启用。
	DeleteDocument(ctx context.Context, ownerID, documentID uint) error
	Ready() bool
}

// ChunkVectorID 生成chunk在向量索引中的确定性ID，重复摄取按ID覆盖
func ChunkVectorID(documentID uint, position int) string {
	return fmt.Sprintf("doc%d_chunk%d", documentID, position)
}
