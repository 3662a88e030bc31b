package model

// ChunkDocument 定义了存储在向量索引中的分块文档结构。
type ChunkDocument struct {
	// VectorID 形如 "{fileID}_{chunkID}"，在向量化之前即已确定，
	// 任务重放时写入相同的 ID，索引层天然幂等。
	VectorID    string    `json:"vector_id"`
	FileID      string    `json:"file_id"`
	ChunkID     int       `json:"chunk_id"`
	TextContent string    `json:"text_content"`
	Vector      []float32 `json:"vector,omitempty"`
	// ModelVersion 记录产生该向量的 Embedding 模型，用于排查向量空间不一致。
	ModelVersion string `json:"model_version,omitempty"`
}

// RetrievedChunk 是一次相似度查询返回的单个分块，按相关性降序排列。
type RetrievedChunk struct {
	VectorID    string  `json:"vectorId"`
	FileID      string  `json:"fileId"`
	ChunkID     int     `json:"chunkId"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}
