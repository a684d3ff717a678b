package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/bkplatform/backend-go/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	VectorSize int
	UseTLS     bool
	Timeout    time.Duration
}

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
}

// NewMilvusVectorStore 创建Milvus向量存储。
// 全部租户共用一个集合，查询期通过owner_id表达式过滤实现隔离。
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "bk_chunks"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	store := &milvusVectorStore{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
	}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if hasCollection {
		return s.loadCollection(ctx)
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "document chunk vectors, owner scoped",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "owner_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "filename",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorSize),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	var index entity.Index
	index, err = entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err != nil {
		// HNSW不可用时退回IVF_FLAT
		index, err = entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
		logger.Warn(fmt.Sprintf("failed to create index for collection %s: %v", s.collection, err))
	}

	return s.loadCollection(ctx)
}

func (s *milvusVectorStore) loadCollection(ctx context.Context) error {
	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

func (s *milvusVectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	ownerIDs := make([]int64, 0, len(records))
	documentIDs := make([]int64, 0, len(records))
	chunkIndexes := make([]int64, 0, len(records))
	filenames := make([]string, 0, len(records))
	contents := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))

	for _, rec := range records {
		if len(rec.Embedding) != s.vectorSize {
			return fmt.Errorf("embedding for %s has %d dimensions, collection expects %d",
				rec.ID, len(rec.Embedding), s.vectorSize)
		}
		ids = append(ids, rec.ID)
		ownerIDs = append(ownerIDs, int64(rec.Meta.OwnerID))
		documentIDs = append(documentIDs, int64(rec.Meta.DocumentID))
		chunkIndexes = append(chunkIndexes, int64(rec.Meta.ChunkIndex))
		filenames = append(filenames, rec.Meta.Filename)
		contents = append(contents, rec.Text)
		vectors = append(vectors, rec.Embedding)
	}

	_, err := s.milvusClient.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnInt64("owner_id", ownerIDs),
		entity.NewColumnInt64("document_id", documentIDs),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnFloatVector("vector", s.vectorSize, vectors),
	)
	if err != nil {
		return fmt.Errorf("milvus upsert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn(fmt.Sprintf("failed to flush collection %s: %v", s.collection, err))
	}
	return nil
}

func (s *milvusVectorStore) DeleteDocument(ctx context.Context, ownerID, documentID uint) error {
	expr := fmt.Sprintf("owner_id == %d && document_id == %d", ownerID, documentID)
	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("milvus delete failed: %w", err)
	}
	return nil
}

func (s *milvusVectorStore) Query(ctx context.Context, embedding []float32, k int, ownerID uint) (VectorQueryResult, error) {
	var result VectorQueryResult
	if len(embedding) == 0 {
		return result, nil
	}
	if k <= 0 {
		k = 10
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	// 租户过滤必须是查询请求的一部分，绝不事后过滤
	expr := fmt.Sprintf("owner_id == %d", ownerID)

	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		expr,
		[]string{"owner_id", "document_id", "chunk_index", "filename", "content"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"vector",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return result, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(searchResults) == 0 {
		return result, nil
	}
	hit := searchResults[0]
	if hit.Err != nil {
		return result, fmt.Errorf("milvus search error: %w", hit.Err)
	}
	if hit.ResultCount == 0 {
		return result, nil
	}

	var ownerIDs, documentIDs, chunkIndexes []int64
	var filenames, contents []string
	for _, field := range hit.Fields {
		switch field.Name() {
		case "owner_id":
			if col, ok := field.(*entity.ColumnInt64); ok {
				ownerIDs = col.Data()
			}
		case "document_id":
			if col, ok := field.(*entity.ColumnInt64); ok {
				documentIDs = col.Data()
			}
		case "chunk_index":
			if col, ok := field.(*entity.ColumnInt64); ok {
				chunkIndexes = col.Data()
			}
		case "filename":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				filenames = col.Data()
			}
		case "content":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		}
	}

	for i := 0; i < hit.ResultCount; i++ {
		meta := VectorMetadata{}
		if i < len(ownerIDs) {
			meta.OwnerID = uint(ownerIDs[i])
		}
		if i < len(documentIDs) {
			meta.DocumentID = uint(documentIDs[i])
		}
		if i < len(chunkIndexes) {
			meta.ChunkIndex = int(chunkIndexes[i])
		}
		if i < len(filenames) {
			meta.Filename = filenames[i]
		}
		content := ""
		if i < len(contents) {
			content = contents[i]
		}
		// COSINE指标下milvus返回相似度得分，换算为余弦距离
		distance := 1.0
		if i < len(hit.Scores) {
			distance = 1.0 - float64(hit.Scores[i])
		}

		result.Texts = append(result.Texts, content)
		result.Metas = append(result.Metas, meta)
		result.Distances = append(result.Distances, distance)
	}

	return result, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
