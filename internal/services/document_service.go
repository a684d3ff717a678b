package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/extract"
	"github.com/bkplatform/backend-go/internal/kafka"
	"github.com/bkplatform/backend-go/internal/knowledge"
	"github.com/bkplatform/backend-go/internal/logger"
	"github.com/bkplatform/backend-go/internal/metrics"
	"github.com/bkplatform/backend-go/internal/models"
	"github.com/bkplatform/backend-go/internal/storage"
)

// DocumentService 文档上传、查询与删除
type DocumentService struct {
	db       *gorm.DB
	store    storage.ObjectStore
	ingestor *knowledge.Ingestor
	activity *ActivityService
	maxSize  int64
}

// UploadResult 上传响应
type UploadResult struct {
	DocumentID     uint   `json:"id"`
	Filename       string `json:"filename"`
	Size           int64  `json:"size"`
	MimeType       string `json:"mime_type"`
	IngestedChunks int    `json:"ingested_chunks"`
}

// DocumentSummary 列表项
type DocumentSummary struct {
	DocumentID uint      `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	CreateTime time.Time `json:"created_at"`
	HasText    bool      `json:"has_text"`
}

// DocumentDetail 详情，含首块预览
type DocumentDetail struct {
	DocumentID uint                    `json:"id"`
	Filename   string                  `json:"filename"`
	Size       int64                   `json:"size"`
	MimeType   string                  `json:"mime_type"`
	CreateTime time.Time               `json:"created_at"`
	Metadata   models.DocumentMetadata `json:"metadata"`
	Preview    *string                 `json:"preview"`
}

func NewDocumentService(db *gorm.DB, store storage.ObjectStore, ingestor *knowledge.Ingestor, activity *ActivityService, maxSize int64) *DocumentService {
	if maxSize <= 0 {
		maxSize = 100 * 1024 * 1024
	}
	return &DocumentService{
		db:       db,
		store:    store,
		ingestor: ingestor,
		activity: activity,
		maxSize:  maxSize,
	}
}

// objectKey 生成碰撞安全的对象key
func objectKey(userID uint, filename string) string {
	safe := strings.ReplaceAll(filename, "/", "_")
	return fmt.Sprintf("user%d/%d_%s", userID, time.Now().UnixNano(), safe)
}

// Upload 保存文件、建档、提取文本并摄取。
// 提取不到文本时文档照常保存，只是不进入检索。
func (s *DocumentService) Upload(ctx context.Context, userID uint, filename, mimeType string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("empty file")
	}
	if int64(len(data)) > s.maxSize {
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file too large (limit %d bytes)", s.maxSize))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := objectKey(userID, filename)
	if err := s.store.Put(ctx, key, data, mimeType); err != nil {
		return nil, apperrors.NewExternalError("object storage", err)
	}

	doc := &models.Document{
		OwnerID:  userID,
		Filename: filename,
		Path:     key,
		Size:     int64(len(data)),
		MimeType: mimeType,
		Metadata: models.DocumentMetadata{OriginalName: filename},
	}
	if err := s.db.Create(doc).Error; err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to create document").WithCause(err)
	}

	ingested := 0
	text := extract.FromBytes(data, filename, mimeType)
	if strings.TrimSpace(text) != "" {
		n, err := s.ingestor.Ingest(ctx, text, doc.DocumentID, userID, filename)
		if err != nil {
			return nil, err
		}
		ingested = n
		metrics.DocumentsIngested.Inc()
		metrics.ChunksIngested.Add(float64(n))
	}

	s.activity.LogActivity(userID, "document.upload", &doc.DocumentID)
	kafka.PublishAudit(kafka.AuditEvent{
		Event:      kafka.EventDocumentIngested,
		UserID:     userID,
		DocumentID: doc.DocumentID,
		Extra:      map[string]any{"chunks": ingested, "filename": filename},
	})

	return &UploadResult{
		DocumentID:     doc.DocumentID,
		Filename:       doc.Filename,
		Size:           doc.Size,
		MimeType:       doc.MimeType,
		IngestedChunks: ingested,
	}, nil
}

// List 列出当前用户的文档，可按文件名子串过滤
func (s *DocumentService) List(userID uint, filenameFilter string) ([]DocumentSummary, error) {
	query := s.db.Where("owner_id = ?", userID)
	if filenameFilter != "" {
		query = query.Where("filename ILIKE ?", "%"+filenameFilter+"%")
	}

	var docs []models.Document
	if err := query.Order("document_id DESC").Find(&docs).Error; err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list documents").WithCause(err)
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		var chunkCount int64
		if err := s.db.Model(&models.DocumentChunk{}).Where("document_id = ?", d.DocumentID).Count(&chunkCount).Error; err != nil {
			return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to count chunks").WithCause(err)
		}
		out = append(out, DocumentSummary{
			DocumentID: d.DocumentID,
			Filename:   d.Filename,
			Size:       d.Size,
			MimeType:   d.MimeType,
			CreateTime: d.CreateTime,
			HasText:    chunkCount > 0,
		})
	}
	return out, nil
}

// Get 取文档详情，预览为首块前500字符
func (s *DocumentService) Get(userID, documentID uint) (*DocumentDetail, error) {
	doc, err := s.ownedDocument(userID, documentID)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{
		DocumentID: doc.DocumentID,
		Filename:   doc.Filename,
		Size:       doc.Size,
		MimeType:   doc.MimeType,
		CreateTime: doc.CreateTime,
		Metadata:   doc.Metadata,
	}

	var first models.DocumentChunk
	err = s.db.Where("document_id = ?", doc.DocumentID).Order("position ASC").First(&first).Error
	if err == nil && first.Content != "" {
		preview := knowledge.Snippet(first.Content, 500)
		detail.Preview = &preview
	} else if err != nil && err != gorm.ErrRecordNotFound {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load preview").WithCause(err)
	}
	return detail, nil
}

// Delete 删除文档及其分块行。
// 向量索引里的记录暂不删除，已删除文档的分块仍可能出现在检索结果中，
// 这是当前版本已知的限制，后续会在这里接入向量删除。
func (s *DocumentService) Delete(ctx context.Context, userID, documentID uint) error {
	doc, err := s.ownedDocument(userID, documentID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.DocumentID).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Delete(doc).Error
	})
	if err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to delete document").WithCause(err)
	}

	if err := s.store.Delete(ctx, doc.Path); err != nil {
		logger.Warn("删除对象存储文件失败", zap.Error(err), zap.String("key", doc.Path))
	}
	logger.Warn("文档删除后向量索引中的记录仍然保留",
		zap.Uint("document_id", doc.DocumentID), zap.Uint("owner_id", userID))

	s.activity.LogActivity(userID, "document.delete", &doc.DocumentID)
	kafka.PublishAudit(kafka.AuditEvent{
		Event:      kafka.EventDocumentDeleted,
		UserID:     userID,
		DocumentID: doc.DocumentID,
	})
	return nil
}

func (s *DocumentService) ownedDocument(userID, documentID uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.Where("document_id = ? AND owner_id = ?", documentID, userID).First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("document")
		}
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to query document").WithCause(err)
	}
	return &doc, nil
}
