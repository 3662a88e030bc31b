package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/es"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/storage"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/tasks"
)

// ErrEmptyFile 表示上传的文件没有内容。
var ErrEmptyFile = errors.New("上传的文件内容为空")

// ObjectPutter 是上传服务对暂存区的最小依赖。
type ObjectPutter interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
}

// JobEnqueuer 把摄取任务投递到队列。Enqueue 返回即表示消息已被 broker 接受。
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job tasks.IngestJob) error
}

// UploadService 定义了文件上传的业务操作。
type UploadService interface {
	Upload(ctx context.Context, userID uint, fileName, contentType string, reader io.Reader) (*model.UploadAck, error)
}

type uploadService struct {
	store    ObjectPutter
	enqueuer JobEnqueuer
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(store ObjectPutter, enqueuer JobEnqueuer) UploadService {
	return &uploadService{store: store, enqueuer: enqueuer}
}

// Upload 实现上传的同步部分：读取文件内容、计算内容 MD5 作为文件 ID、
// 写入暂存区、投递摄取任务，然后立刻返回回执。
// 解析、向量化、索引全部由后台 worker 异步完成。
func (s *uploadService) Upload(ctx context.Context, userID uint, fileName, contentType string, reader io.Reader) (*model.UploadAck, error) {
	// 1. 读入内容并计算 MD5。文件 ID 由内容决定：
	// 同一份文件重复上传得到同一个 ID，整条摄取链路天然幂等。
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传内容失败: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	sum := md5.Sum(data)
	fileID := hex.EncodeToString(sum[:])

	// 2. 写入暂存区。对象路径按用户隔离，重复上传是覆盖写。
	objectName := storage.UploadObjectName(userID, fileID)
	if err := s.store.Put(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		log.Errorf("[UploadService] 写入暂存区失败, Object: %s, Error: %v", objectName, err)
		return nil, fmt.Errorf("写入暂存区失败: %w", err)
	}

	// 3. 投递摄取任务。必须在文件落入暂存区之后投递，
	// worker 拿到消息时文件一定已经可以下载。
	job := tasks.IngestJob{
		FileID:         fileID,
		UserID:         userID,
		ObjectName:     objectName,
		OriginalName:   fileName,
		MimeType:       contentType,
		SizeBytes:      int64(len(data)),
		CollectionName: es.CollectionName(userID),
	}
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		log.Errorf("[UploadService] 投递摄取任务失败, FileID: %s, Error: %v", fileID, err)
		return nil, fmt.Errorf("投递摄取任务失败: %w", err)
	}

	log.Infof("[UploadService] 文件已接收并进入摄取队列, FileID: %s, FileName: %s, UserID: %d", fileID, fileName, userID)
	return &model.UploadAck{
		ID:           fileID,
		OriginalName: fileName,
		MimeType:     contentType,
		SizeBytes:    int64(len(data)),
		Status:       "processing",
	}, nil
}
