package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bkplatform/backend-go/internal/config"
	"github.com/bkplatform/backend-go/internal/knowledge"
	"github.com/bkplatform/backend-go/internal/llm"
)

// newMockDB 基于sqlmock的gorm连接
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

// fakeEmbedder 固定向量
type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }
func (f *fakeEmbedder) Ready() bool     { return true }

// fakeGateway 固定回复并统计调用
type fakeGateway struct {
	reply string
	calls int
}

func (g *fakeGateway) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	g.calls++
	return g.reply, nil
}

func (g *fakeGateway) Name() string { return "fake" }

// fakeObjectStore 内存对象存储
type fakeObjectStore struct {
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.objects[key] = data
	return nil
}

func (s *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.objects[key], nil
}

func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStore) Ready() bool { return true }

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		SearchOverfetch:     500,
		AskOverfetchFactor:  4,
		AskOverfetchFloor:   20,
		SearchMinTokenLen:   3,
		AskMinTokenLen:      2,
		DefaultDocLimit:     50,
		DefaultChunksPerDoc: 3,
	}
}

func testQAConfig() config.QAConfig {
	return config.QAConfig{
		DefaultTopK:           8,
		DefaultContextTokens:  800,
		DefaultMaxAnswerChars: 140,
	}
}

// seedVectors 向内存向量存储写入预置分块
func seedVectors(t *testing.T, store knowledge.VectorStore, ownerID, documentID uint, contents ...string) {
	t.Helper()
	records := make([]knowledge.VectorRecord, 0, len(contents))
	for i, content := range contents {
		records = append(records, knowledge.VectorRecord{
			ID:        knowledge.ChunkVectorID(documentID, i),
			Text:      content,
			Embedding: []float32{1, 0},
			Meta: knowledge.VectorMetadata{
				DocumentID: documentID,
				ChunkIndex: i,
				OwnerID:    ownerID,
				Filename:   "seed.txt",
			},
		})
	}
	require.NoError(t, store.Upsert(context.Background(), records))
}

var tablePK = map[string]string{
	"users":           "user_id",
	"documents":       "document_id",
	"document_chunks": "chunk_id",
	"search_queries":  "query_id",
	"user_activities": "activity_id",
}

// expectInsert 期望一条INSERT（gorm postgres走事务 + RETURNING主键）
func expectInsert(mock sqlmock.Sqlmock, table string, returnID int64) {
	pk := tablePK[table]
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "` + table + `"`).
		WillReturnRows(sqlmock.NewRows([]string{pk}).AddRow(returnID))
	mock.ExpectCommit()
}
