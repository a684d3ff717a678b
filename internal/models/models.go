package models

import "time"

// User 用户
type User struct {
	UserID       uint      `gorm:"primaryKey;column:user_id" json:"user_id"`
	Email        string    `gorm:"size:200;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;default:user" json:"role"`
	CreateTime   time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

func (User) TableName() string {
	return "users"
}

// DocumentMetadata 文档附加信息（有名字段，避免散落的无类型map）
type DocumentMetadata struct {
	OriginalName string `json:"original_name,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
}

// Document 用户上传的文档
type Document struct {
	DocumentID uint             `gorm:"primaryKey;column:document_id" json:"document_id"`
	OwnerID    uint             `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Owner      User             `gorm:"foreignKey:OwnerID" json:"-"`
	Filename   string           `gorm:"size:255;not null" json:"filename"`
	Path       string           `gorm:"size:512;not null" json:"-"`
	Size       int64            `gorm:"not null" json:"size"`
	MimeType   string           `gorm:"size:100" json:"mime_type"`
	Metadata   DocumentMetadata `gorm:"type:json;serializer:json" json:"metadata"`
	CreateTime time.Time        `gorm:"column:create_time;autoCreateTime" json:"create_time"`

	// 关系
	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 文档分块
// 同一文档的Position从0开始连续递增，内容创建后不可变，OwnerID与所属文档一致。
type DocumentChunk struct {
	ChunkID    uint      `gorm:"primaryKey;column:chunk_id" json:"chunk_id"`
	DocumentID uint      `gorm:"column:document_id;not null;uniqueIndex:idx_doc_position" json:"document_id"`
	Document   Document  `gorm:"foreignKey:DocumentID" json:"-"`
	OwnerID    uint      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Position   int       `gorm:"not null;uniqueIndex:idx_doc_position" json:"position"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreateTime time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// SearchQuery 查询日志（追加写入）
type SearchQuery struct {
	QueryID    uint      `gorm:"primaryKey;column:query_id" json:"query_id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Query      string    `gorm:"type:text;not null" json:"query"`
	CreateTime time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

func (SearchQuery) TableName() string {
	return "search_queries"
}

// UserActivity 用户行为记录（追加写入）
type UserActivity struct {
	ActivityID uint      `gorm:"primaryKey;column:activity_id" json:"activity_id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Action     string    `gorm:"size:64;not null" json:"action"`
	ResourceID *uint     `gorm:"column:resource_id" json:"resource_id,omitempty"`
	CreateTime time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
