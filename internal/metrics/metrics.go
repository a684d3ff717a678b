package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	beego "github.com/beego/beego/v2/server/web"
)

var (
	// DocumentsIngested 成功摄取的文档总数
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bk",
		Subsystem: "knowledge",
		Name:      "documents_ingested_total",
		Help:      "Number of documents ingested into the index.",
	})

	// ChunksIngested 写入向量索引的分块总数
	ChunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bk",
		Subsystem: "knowledge",
		Name:      "chunks_ingested_total",
		Help:      "Number of chunks written to the vector index.",
	})

	// SearchesTotal 关键词搜索请求总数
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bk",
		Subsystem: "knowledge",
		Name:      "searches_total",
		Help:      "Number of grouped search requests served.",
	})

	// QuestionsTotal 问答请求总数，按结局区分回答与拒答
	QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bk",
		Subsystem: "knowledge",
		Name:      "questions_total",
		Help:      "Number of QA requests by outcome.",
	}, []string{"outcome"})

	// LLMErrors LLM调用失败数，按提供商区分
	LLMErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bk",
		Subsystem: "knowledge",
		Name:      "llm_errors_total",
		Help:      "Number of failed LLM gateway calls by provider.",
	}, []string{"provider"})
)

// RegisterHandler 在beego上挂载/metrics
func RegisterHandler() {
	beego.Handler("/metrics", promhttp.Handler())
}
