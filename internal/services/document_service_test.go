package services

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/knowledge"
)

func newDocumentService(t *testing.T, mockSetup func(sqlmock.Sqlmock)) (*DocumentService, *fakeObjectStore, *knowledge.MemoryVectorStore) {
	t.Helper()
	db, mock := newMockDB(t)
	if mockSetup != nil {
		mockSetup(mock)
	}

	chunker, err := knowledge.NewChunker(1000, 200)
	require.NoError(t, err)
	vectors := knowledge.NewMemoryVectorStore()
	ingestor := knowledge.NewIngestor(chunker, &fakeEmbedder{vector: []float32{1, 0}}, vectors, knowledge.NewGormChunkStore(db))
	store := newFakeObjectStore()

	svc := NewDocumentService(db, store, ingestor, NewActivityService(db), 1024)
	return svc, store, vectors
}

func TestUpload_EmptyFile(t *testing.T) {
	svc, _, _ := newDocumentService(t, nil)

	_, err := svc.Upload(context.Background(), 1, "empty.txt", "text/plain", nil)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, appErr.Code)
}

func TestUpload_FileTooLarge(t *testing.T) {
	svc, _, _ := newDocumentService(t, nil)

	_, err := svc.Upload(context.Background(), 1, "big.txt", "text/plain", []byte(strings.Repeat("x", 2048)))
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, appErr.Code)
}

func TestUpload_TextDocument(t *testing.T) {
	svc, store, vectors := newDocumentService(t, func(mock sqlmock.Sqlmock) {
		expectInsert(mock, "documents", 7)       // 文档行
		expectInsert(mock, "document_chunks", 1) // 分块行
		expectInsert(mock, "user_activities", 1) // 行为日志
	})

	got, err := svc.Upload(context.Background(), 1, "notes.txt", "text/plain", []byte("the quarterly budget is 4.2 million"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", got.Filename)
	assert.Equal(t, 1, got.IngestedChunks)

	// 原始字节进入对象存储
	assert.Len(t, store.objects, 1)

	// 分块进入向量索引且租户可查
	res, err := vectors.Query(context.Background(), []float32{1, 0}, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
}

func TestUpload_BinaryWithoutText(t *testing.T) {
	svc, store, vectors := newDocumentService(t, func(mock sqlmock.Sqlmock) {
		expectInsert(mock, "documents", 7)
		expectInsert(mock, "user_activities", 1)
	})

	// 提取不到文本：文件保存、建档，但不摄取
	got, err := svc.Upload(context.Background(), 1, "image.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	assert.Equal(t, 0, got.IngestedChunks)
	assert.Len(t, store.objects, 1)

	res, err := vectors.Query(context.Background(), []float32{1, 0}, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}
