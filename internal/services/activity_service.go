package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bkplatform/backend-go/internal/kafka"
	"github.com/bkplatform/backend-go/internal/logger"
	"github.com/bkplatform/backend-go/internal/models"
)

// ActivityService 用户行为与查询日志，追加写入。
// 日志落库失败只告警不阻断主流程。
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// LogActivity 记录一次用户行为
func (s *ActivityService) LogActivity(userID uint, action string, resourceID *uint) {
	activity := models.UserActivity{
		UserID:     userID,
		Action:     action,
		ResourceID: resourceID,
	}
	if err := s.db.Create(&activity).Error; err != nil {
		logger.Warn("行为日志写入失败", zap.Error(err), zap.String("action", action))
	}
}

// LogSearch 记录一次查询
func (s *ActivityService) LogSearch(userID uint, query string) {
	row := models.SearchQuery{
		UserID: userID,
		Query:  query,
	}
	if err := s.db.Create(&row).Error; err != nil {
		logger.Warn("查询日志写入失败", zap.Error(err))
	}
	kafka.PublishAudit(kafka.AuditEvent{
		Event:  kafka.EventSearchPerformed,
		UserID: userID,
		Query:  query,
	})
}
