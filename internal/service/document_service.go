package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/repository"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
)

// ErrFileNotFound 表示该用户名下不存在指定的文件。
var ErrFileNotFound = errors.New("文件不存在")

// VectorDeleter 是删除文件时对向量索引的最小依赖。
type VectorDeleter interface {
	DeleteByIDs(ctx context.Context, name string, ids []string) error
}

// DocumentService 定义了文件元数据的业务操作。
type DocumentService interface {
	ListFiles(ctx context.Context, userID uint) ([]model.FileRecord, error)
	DeleteFile(ctx context.Context, userID uint, fileID string) error
}

type documentService struct {
	fileRepo repository.FileRepository
	index    VectorDeleter
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(fileRepo repository.FileRepository, index VectorDeleter) DocumentService {
	return &documentService{fileRepo: fileRepo, index: index}
}

// ListFiles 返回用户已完成摄取的全部文件。
// 正在摄取中的文件不会出现在列表里，元数据要等向量落库后才写入。
func (s *documentService) ListFiles(ctx context.Context, userID uint) ([]model.FileRecord, error) {
	return s.fileRepo.GetUserFiles(ctx, userID)
}

// DeleteFile 删除一个文件：先清掉向量索引中的分块，再删元数据。
// 这个顺序保证不会出现“列表里有文件但向量已不存在”的状态；
// 反向的残留（向量在、元数据没了）只可能短暂出现在索引删除与元数据
// 删除之间，且对检索无害。最后的 HDEL 是原子的，并发删除同一文件
// 只有一方观察到记录存在，另一方得到 ErrFileNotFound。
func (s *documentService) DeleteFile(ctx context.Context, userID uint, fileID string) error {
	record, err := s.fileRepo.GetUserFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrFileNotFound
	}

	if len(record.VectorIDs) > 0 {
		if err := s.index.DeleteByIDs(ctx, record.CollectionName, record.VectorIDs); err != nil {
			log.Errorf("[DocumentService] 删除向量失败, FileID: %s, Error: %v", fileID, err)
			return fmt.Errorf("删除向量失败: %w", err)
		}
	}

	removed, err := s.fileRepo.DeleteUserFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFileNotFound
	}
	log.Infof("[DocumentService] 文件已删除, FileID: %s, UserID: %d, 向量数: %d", fileID, userID, len(record.VectorIDs))
	return nil
}
