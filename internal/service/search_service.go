package service

import (
	"context"
	"fmt"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/embedding"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/es"
)

// VectorSearcher 是检索服务对向量索引的最小依赖。
type VectorSearcher interface {
	Search(ctx context.Context, name string, vector []float32, k int) ([]model.RetrievedChunk, error)
}

// SearchService 定义了相似度检索的业务操作。
type SearchService interface {
	Retrieve(ctx context.Context, userID uint, query string, k int) ([]model.RetrievedChunk, error)
}

type searchService struct {
	embeddingClient embedding.Client
	index           VectorSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embeddingClient embedding.Client, index VectorSearcher) SearchService {
	return &searchService{embeddingClient: embeddingClient, index: index}
}

// Retrieve 对查询文本向量化后在用户自己的集合中执行 top-k 检索。
// 集合名由 userID 推导，用户永远检索不到别人的文档。
// 用户尚未索引任何文档时返回空结果。
func (s *searchService) Retrieve(ctx context.Context, userID uint, query string, k int) ([]model.RetrievedChunk, error) {
	vector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	chunks, err := s.index.Search(ctx, es.CollectionName(userID), vector, k)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	return chunks, nil
}
