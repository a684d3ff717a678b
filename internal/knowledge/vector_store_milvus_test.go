package knowledge

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 主索引与退回索引都要能赋给CreateIndex使用的索引接口
func TestMilvusIndexFallbackTypes(t *testing.T) {
	var index entity.Index

	hnsw, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	require.NoError(t, err)
	index = hnsw
	assert.Equal(t, entity.HNSW, index.IndexType())

	ivf, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
	require.NoError(t, err)
	index = ivf
	assert.Equal(t, entity.IvfFlat, index.IndexType())
}
