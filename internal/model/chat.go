package model

// ChatRecord 代表一次完整的问答交互。
// 每个用户的 ChatRecord 构成一个只追加的时间有序序列：
// 记录创建后不再修改，只会在“开启新对话”时被整体清空。
type ChatRecord struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	// RetrievedContext 是本次回答实际使用的检索分块。
	RetrievedContext []RetrievedChunk `json:"retrievedContext"`
	// Timestamp 为 UnixNano，按用户严格单调递增，同时充当记录的唯一标识。
	Timestamp int64 `json:"timestamp"`
}
