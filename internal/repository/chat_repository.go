package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
)

// ChatRepository 定义了对话历史的操作接口。
// 每个用户对应一个 Redis list（key 为 user:{id}:chats），只追加、不修改；
// “开启新对话”删除整个 key。Timestamp 按用户严格单调递增。
type ChatRepository interface {
	AppendChatRecord(ctx context.Context, userID uint, record model.ChatRecord) (model.ChatRecord, error)
	GetChatHistory(ctx context.Context, userID uint) ([]model.ChatRecord, error)
	GetRecentChatRecords(ctx context.Context, userID uint, n int) ([]model.ChatRecord, error)
	ClearChatHistory(ctx context.Context, userID uint) error
}

type redisChatRepository struct {
	redisClient *redis.Client
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(redisClient *redis.Client) ChatRepository {
	return &redisChatRepository{redisClient: redisClient}
}

func userChatsKey(userID uint) string {
	return fmt.Sprintf("user:%d:chats", userID)
}

// AppendChatRecord 在用户的历史尾部追加一条记录并返回落库后的记录。
// Timestamp 取当前 UnixNano，若与尾部记录的时间戳冲突则在其上递增，
// 保证时间戳既是排序键也是唯一标识。
func (r *redisChatRepository) AppendChatRecord(ctx context.Context, userID uint, record model.ChatRecord) (model.ChatRecord, error) {
	key := userChatsKey(userID)

	record.Timestamp = time.Now().UnixNano()
	if last, err := r.lastRecord(ctx, key); err != nil {
		return model.ChatRecord{}, err
	} else if last != nil && record.Timestamp <= last.Timestamp {
		record.Timestamp = last.Timestamp + 1
	}

	jsonData, err := json.Marshal(record)
	if err != nil {
		return model.ChatRecord{}, fmt.Errorf("failed to marshal chat record: %w", err)
	}
	if err := r.redisClient.RPush(ctx, key, jsonData).Err(); err != nil {
		return model.ChatRecord{}, fmt.Errorf("failed to append chat record: %w", err)
	}
	return record, nil
}

// GetChatHistory 返回用户的全部对话记录，按时间升序。
func (r *redisChatRepository) GetChatHistory(ctx context.Context, userID uint) ([]model.ChatRecord, error) {
	return r.rangeRecords(ctx, userChatsKey(userID), 0, -1)
}

// GetRecentChatRecords 返回最近的 n 条记录（仍按时间升序），
// 用于为 prompt 提供有界的历史窗口。
func (r *redisChatRepository) GetRecentChatRecords(ctx context.Context, userID uint, n int) ([]model.ChatRecord, error) {
	if n <= 0 {
		return []model.ChatRecord{}, nil
	}
	return r.rangeRecords(ctx, userChatsKey(userID), int64(-n), -1)
}

// ClearChatHistory 整体清空用户的对话历史。key 不存在时也是成功（幂等）。
func (r *redisChatRepository) ClearChatHistory(ctx context.Context, userID uint) error {
	if err := r.redisClient.Del(ctx, userChatsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func (r *redisChatRepository) rangeRecords(ctx context.Context, key string, start, stop int64) ([]model.ChatRecord, error) {
	items, err := r.redisClient.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	records := make([]model.ChatRecord, 0, len(items))
	for _, item := range items {
		var record model.ChatRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *redisChatRepository) lastRecord(ctx context.Context, key string) (*model.ChatRecord, error) {
	jsonData, err := r.redisClient.LIndex(ctx, key, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last chat record: %w", err)
	}
	var record model.ChatRecord
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat record: %w", err)
	}
	return &record, nil
}
