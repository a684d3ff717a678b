package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/bkplatform/backend-go/internal/logger"
)

// 审计事件类型
const (
	EventDocumentIngested = "document.ingested"
	EventDocumentDeleted  = "document.deleted"
	EventSearchPerformed  = "search.performed"
	EventQuestionAsked    = "question.asked"
)

// AuditEvent 知识库审计事件
type AuditEvent struct {
	Event      string         `json:"event"`
	UserID     uint           `json:"user_id"`
	DocumentID uint           `json:"document_id,omitempty"`
	Query      string         `json:"query,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Producer Kafka审计事件生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

// SendEvent 发送审计事件
func (p *Producer) SendEvent(event *AuditEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d-%s", event.UserID, event.Event)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event"),
				Value: []byte(event.Event),
			},
			{
				Key:   []byte("user_id"),
				Value: []byte(fmt.Sprintf("%d", event.UserID)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka消息失败", zap.Error(err))
		return fmt.Errorf("发送消息失败: %w", err)
	}

	logger.Debug("Kafka审计事件发送成功",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event", event.Event))
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// PublishAudit 发送审计事件（便捷方法）。
// Kafka未配置时静默跳过，不影响主流程。
func PublishAudit(event AuditEvent) {
	producer := GetProducer()
	if producer == nil {
		return
	}
	if err := producer.SendEvent(&event); err != nil {
		logger.Warn("审计事件发送失败", zap.Error(err), zap.String("event", event.Event))
	}
}
