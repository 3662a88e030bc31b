package model

import "time"

// FileRecord 是某个文件在元数据存储中的记录。
// 记录只在所有向量成功写入索引之后才会落库，因此
// 元数据的存在即意味着索引的存在，查询永远不会看到半成品。
type FileRecord struct {
	// ID 取文件内容的十六进制 MD5，在用户范围内唯一且稳定。
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	// StoredName 是摄取期间文件在暂存区中的对象路径，索引完成后对象即被删除。
	StoredName string `json:"storedName"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
	// CollectionName 由 userID 确定性推导，即该用户的向量集合名。
	CollectionName string `json:"collectionName"`
	// VectorIDs 按分块顺序记录每个向量的 ID。
	// 解析结果为空的文档会留下空列表，表示“已摄取、无可检索内容”。
	VectorIDs []string  `json:"vectorIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// UploadAck 是上传接口的即时响应。此时摄取尚未完成，
// 文件要等后台任务成功后才会出现在文件列表里。
type UploadAck struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
	Status       string `json:"status"`
}
