// Package tasks defines the structure for ingestion jobs that are sent to Kafka.
package tasks

// IngestJob 描述一次文件摄取任务。上传接口在文件落入暂存区后投递该消息，
// 由后台 worker 消费并完成 解析→分块→向量化→索引→元数据落库 的全流程。
// 队列语义为 at-least-once，FileID 取文件内容的 MD5，重复投递可安全重放。
type IngestJob struct {
	FileID         string `json:"file_id"`
	UserID         uint   `json:"user_id"`
	ObjectName     string `json:"object_name"`
	OriginalName   string `json:"original_name"`
	MimeType       string `json:"mime_type"`
	SizeBytes      int64  `json:"size_bytes"`
	CollectionName string `json:"collection_name"`
}
