// Package es 实现了向量索引客户端：每个用户对应一个独立的 Elasticsearch
// 索引（collection），支持按 ID 写入、kNN 相似度查询与按 ID 删除。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
)

// CollectionName 由 userID 确定性地推导出该用户的向量集合名。
func CollectionName(userID uint) string {
	return fmt.Sprintf("user_%d_docs", userID)
}

// Store 是基于 Elasticsearch dense_vector 的向量索引实现。
type Store struct {
	client *elasticsearch.Client
	dims   int
}

// NewStore 初始化 Elasticsearch 客户端。dims 是向量维度，
// 必须与 Embedding 模型的输出维度一致。
func NewStore(cfg config.ElasticsearchConfig, dims int) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Store{client: client, dims: dims}, nil
}

// EnsureCollection 检查集合（索引）是否存在，不存在则按固定 mapping 创建。
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	res, err := s.client.Indices.Exists([]string{name}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引 '%s' 是否存在时出错: %w", name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引 '%s' 时收到意外的状态码: %d", name, res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"file_id": { "type": "keyword" },
				"chunk_id": { "type": "integer" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, s.dims)

	createRes, err := s.client.Indices.Create(
		name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", name, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", name, createRes.String())
	}
	log.Infof("向量集合 '%s' 创建成功", name)
	return nil
}

// Upsert 以 vector_id 作为文档 ID 写入所有分块。
// 相同 ID 重复写入是覆盖语义，任务重放不会产生重复向量。
func (s *Store) Upsert(ctx context.Context, name string, docs []model.ChunkDocument) error {
	for _, doc := range docs {
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		req := esapi.IndexRequest{
			Index:      name,
			DocumentID: doc.VectorID,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("索引分块 %s 失败: %w", doc.VectorID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("索引分块 %s 时 Elasticsearch 返回错误: %s", doc.VectorID, res.Status())
		}
	}
	return nil
}

// Search 在集合中执行 top-k kNN 相似度查询，按相关性降序返回分块。
// 集合不存在（用户尚未索引任何文档）时返回空结果而非错误。
func (s *Store) Search(ctx context.Context, name string, vector []float32, k int) ([]model.RetrievedChunk, error) {
	numCandidates := k * 10
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
		},
		"size":    k,
		"_source": []string{"vector_id", "file_id", "chunk_id", "text_content"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(name),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.ChunkDocument `json:"_source"`
				Score  float64             `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	chunks := make([]model.RetrievedChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		chunks = append(chunks, model.RetrievedChunk{
			VectorID:    hit.Source.VectorID,
			FileID:      hit.Source.FileID,
			ChunkID:     hit.Source.ChunkID,
			TextContent: hit.Source.TextContent,
			Score:       hit.Score,
		})
	}
	return chunks, nil
}

// DeleteByIDs 按文档 ID 删除向量。单个 ID 不存在时忽略（删除是幂等的）。
func (s *Store) DeleteByIDs(ctx context.Context, name string, ids []string) error {
	for _, id := range ids {
		req := esapi.DeleteRequest{
			Index:      name,
			DocumentID: id,
			Refresh:    "true",
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("删除向量 %s 失败: %w", id, err)
		}
		res.Body.Close()
		if res.IsError() && res.StatusCode != http.StatusNotFound {
			return fmt.Errorf("删除向量 %s 时 Elasticsearch 返回错误: %s", id, res.Status())
		}
	}
	return nil
}
