package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
)

// FileRepository 定义了文件元数据的操作接口。
// 每个用户对应一个 Redis hash（key 为 user:{id}:files，field 为文件 ID）：
// HSET 即“按 key 幂等 upsert”，任务重放不会产生重复记录；
// HDEL 即原子的按 key 删除，并发删除互不影响。
type FileRepository interface {
	UpsertUserFile(ctx context.Context, userID uint, record model.FileRecord) error
	GetUserFile(ctx context.Context, userID uint, fileID string) (*model.FileRecord, error)
	GetUserFiles(ctx context.Context, userID uint) ([]model.FileRecord, error)
	DeleteUserFile(ctx context.Context, userID uint, fileID string) (bool, error)
}

type redisFileRepository struct {
	redisClient *redis.Client
}

// NewFileRepository 创建一个新的 FileRepository 实例。
func NewFileRepository(redisClient *redis.Client) FileRepository {
	return &redisFileRepository{redisClient: redisClient}
}

func userFilesKey(userID uint) string {
	return fmt.Sprintf("user:%d:files", userID)
}

// UpsertUserFile 以文件 ID 为 field 写入（或覆盖）一条文件记录。
func (r *redisFileRepository) UpsertUserFile(ctx context.Context, userID uint, record model.FileRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal file record: %w", err)
	}
	if err := r.redisClient.HSet(ctx, userFilesKey(userID), record.ID, jsonData).Err(); err != nil {
		return fmt.Errorf("failed to upsert file record: %w", err)
	}
	return nil
}

// GetUserFile 读取单条文件记录，不存在时返回 (nil, nil)。
func (r *redisFileRepository) GetUserFile(ctx context.Context, userID uint, fileID string) (*model.FileRecord, error) {
	jsonData, err := r.redisClient.HGet(ctx, userFilesKey(userID), fileID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	var record model.FileRecord
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file record: %w", err)
	}
	return &record, nil
}

// GetUserFiles 返回用户的全部文件记录，按创建时间升序排列。
func (r *redisFileRepository) GetUserFiles(ctx context.Context, userID uint) ([]model.FileRecord, error) {
	entries, err := r.redisClient.HGetAll(ctx, userFilesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}

	records := make([]model.FileRecord, 0, len(entries))
	for _, jsonData := range entries {
		var record model.FileRecord
		if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal file record: %w", err)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// DeleteUserFile 原子地删除一条文件记录，返回记录是否存在。
func (r *redisFileRepository) DeleteUserFile(ctx context.Context, userID uint, fileID string) (bool, error) {
	removed, err := r.redisClient.HDel(ctx, userFilesKey(userID), fileID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete file record: %w", err)
	}
	return removed > 0, nil
}
