package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryVectorStore 内存向量存储，用于开发环境与测试。
// 保持记录的插入顺序，等距结果的排序是稳定的。
type MemoryVectorStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]VectorRecord
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		records: make(map[string]VectorRecord),
	}
}

func (s *MemoryVectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if _, exists := s.records[rec.ID]; !exists {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec
	}
	return nil
}

func (s *MemoryVectorStore) DeleteDocument(ctx context.Context, ownerID, documentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		rec := s.records[id]
		if rec.Meta.OwnerID == ownerID && rec.Meta.DocumentID == documentID {
			delete(s.records, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

func (s *MemoryVectorStore) Query(ctx context.Context, embedding []float32, k int, ownerID uint) (VectorQueryResult, error) {
	var result VectorQueryResult
	if len(embedding) == 0 {
		return result, nil
	}
	if k <= 0 {
		k = 10
	}

	s.mu.RLock()
	type scored struct {
		rec      VectorRecord
		distance float64
	}
	var candidates []scored
	for _, id := range s.order {
		rec := s.records[id]
		// 租户过滤是查询的一部分
		if rec.Meta.OwnerID != ownerID {
			continue
		}
		candidates = append(candidates, scored{
			rec:      rec,
			distance: 1.0 - cosineSimilarity(embedding, rec.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	for _, c := range candidates {
		result.Texts = append(result.Texts, c.rec.Text)
		result.Metas = append(result.Metas, c.rec.Meta)
		result.Distances = append(result.Distances, c.distance)
	}
	return result, nil
}

func (s *MemoryVectorStore) Ready() bool {
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) != len(b) {
		minLen := len(a)
		if len(b) < minLen {
			minLen = len(b)
		}
		a = a[:minLen]
		b = b[:minLen]
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
