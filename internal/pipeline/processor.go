// Package pipeline 定义了文件摄取的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/repository"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/embedding"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/tasks"
)

// ObjectStore 是暂存区的最小读写接口。
type ObjectStore interface {
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
	Remove(ctx context.Context, objectName string) error
}

// Parser 将原始文件解析为按页组织的纯文本。
type Parser interface {
	ExtractPages(ctx context.Context, fileReader io.Reader, fileName string) ([]string, error)
}

// VectorIndex 是向量索引的写入端接口。
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, docs []model.ChunkDocument) error
}

// Processor 封装了文件摄取的所有依赖和逻辑。
// 整个流程是幂等的：向量 ID 在向量化之前即由 FileID 与分块序号确定，
// 索引写入是按 ID 覆盖，元数据写入是按 key upsert，任务重放安全。
type Processor struct {
	store           ObjectStore
	parser          Parser
	embeddingClient embedding.Client
	index           VectorIndex
	fileRepo        repository.FileRepository
	embeddingModel  string
	ragCfg          config.RAGConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	store ObjectStore,
	parser Parser,
	embeddingClient embedding.Client,
	index VectorIndex,
	fileRepo repository.FileRepository,
	embeddingModel string,
	ragCfg config.RAGConfig,
) *Processor {
	return &Processor{
		store:           store,
		parser:          parser,
		embeddingClient: embeddingClient,
		index:           index,
		fileRepo:        fileRepo,
		embeddingModel:  embeddingModel,
		ragCfg:          ragCfg,
	}
}

func (p *Processor) callTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(p.ragCfg.UpstreamTimeoutSecond)*time.Second)
}

// Process 是文件摄取的主函数。返回错误表示本次尝试失败，
// 消息会被队列重新投递；暂存区中的原始文件此时保持不动，供下次重试使用。
func (p *Processor) Process(ctx context.Context, job tasks.IngestJob) error {
	log.Infof("[Processor] 开始处理文件, FileID: %s, FileName: %s, UserID: %d", job.FileID, job.OriginalName, job.UserID)

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从暂存区下载文件, Object: %s", job.ObjectName)
	object, err := p.store.Get(ctx, job.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从暂存区下载文件失败, Object: %s, Error: %v", job.ObjectName, err)
		return fmt.Errorf("从暂存区下载文件失败: %w", err)
	}
	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	object.Close()
	if err != nil {
		log.Errorf("[Processor] 读取暂存区对象流失败, Object: %s, Error: %v", job.ObjectName, err)
		return fmt.Errorf("读取暂存区对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d 字节", size)
	if size == 0 {
		log.Errorf("[Processor] 文件 '%s' 内容为空, 处理中止", job.OriginalName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 解析文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	parseCtx, cancel := p.callTimeout(ctx)
	pages, err := p.parser.ExtractPages(parseCtx, bytes.NewReader(buf.Bytes()), job.OriginalName)
	cancel()
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", job.OriginalName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 共 %d 页", len(pages))

	// 3. 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, chunkOverlap: %d", p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	chunks := SplitPages(pages, p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 解析结果为空不是失败：落一条空 VectorIDs 的记录，表示“已摄取、无可检索内容”，
	// 然后正常清理暂存文件。重试对这样的文件没有意义。
	if len(chunks) == 0 {
		log.Infof("[Processor] 文件 '%s' 无可检索内容, 跳过向量化", job.OriginalName)
		if err := p.saveRecord(ctx, job, nil); err != nil {
			return err
		}
		p.removeTransient(job.ObjectName)
		log.Infof("[Processor] 文件处理完成(空文档), FileID: %s", job.FileID)
		return nil
	}

	// 4. 在向量化之前确定所有向量 ID
	vectorIDs := make([]string, len(chunks))
	for i := range chunks {
		vectorIDs[i] = fmt.Sprintf("%s_%d", job.FileID, i)
	}

	// 5. 分批向量化
	log.Infof("[Processor] 步骤5: 开始向量化, 批大小: %d", p.ragCfg.EmbedBatchSize)
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.ragCfg.EmbedBatchSize {
		end := start + p.ragCfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		embedCtx, cancel := p.callTimeout(ctx)
		batch, err := p.embeddingClient.CreateEmbeddings(embedCtx, chunks[start:end])
		cancel()
		if err != nil {
			log.Errorf("[Processor] 分块 [%d, %d) 向量化失败, Error: %v", start, end, err)
			return fmt.Errorf("分块 [%d, %d) 向量化失败: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	log.Infof("[Processor] 步骤5: 向量化完成, 共 %d 个向量", len(vectors))

	// 6. 确保集合存在并写入向量
	log.Infof("[Processor] 步骤6: 写入向量集合 '%s'", job.CollectionName)
	ensureCtx, cancel := p.callTimeout(ctx)
	err = p.index.EnsureCollection(ensureCtx, job.CollectionName)
	cancel()
	if err != nil {
		log.Errorf("[Processor] 创建向量集合失败, Collection: %s, Error: %v", job.CollectionName, err)
		return fmt.Errorf("创建向量集合失败: %w", err)
	}

	docs := make([]model.ChunkDocument, len(chunks))
	for i, chunk := range chunks {
		docs[i] = model.ChunkDocument{
			VectorID:     vectorIDs[i],
			FileID:       job.FileID,
			ChunkID:      i,
			TextContent:  chunk,
			Vector:       vectors[i],
			ModelVersion: p.embeddingModel,
		}
	}
	upsertCtx, cancel := p.callTimeout(ctx)
	err = p.index.Upsert(upsertCtx, job.CollectionName, docs)
	cancel()
	if err != nil {
		log.Errorf("[Processor] 向量写入失败, Collection: %s, Error: %v", job.CollectionName, err)
		return fmt.Errorf("向量写入失败: %w", err)
	}
	log.Infof("[Processor] 步骤6: 向量写入完成, 共 %d 条", len(docs))

	// 7. 元数据落库。必须在向量全部写入之后执行，
	// 保证文件一旦出现在列表里，它的向量就一定可检索。
	log.Info("[Processor] 步骤7: 写入文件元数据")
	if err := p.saveRecord(ctx, job, vectorIDs); err != nil {
		return err
	}

	// 8. 删除暂存区中的原始文件。此时向量与元数据均已持久化，
	// 删除失败只会泄漏一个暂存对象，不影响正确性，降级为告警。
	log.Info("[Processor] 步骤8: 清理暂存文件")
	p.removeTransient(job.ObjectName)

	log.Infof("[Processor] 文件处理成功完成, FileID: %s, 分块数: %d", job.FileID, len(chunks))
	return nil
}

func (p *Processor) saveRecord(ctx context.Context, job tasks.IngestJob, vectorIDs []string) error {
	record := model.FileRecord{
		ID:             job.FileID,
		OriginalName:   job.OriginalName,
		StoredName:     job.ObjectName,
		MimeType:       job.MimeType,
		SizeBytes:      job.SizeBytes,
		CollectionName: job.CollectionName,
		VectorIDs:      vectorIDs,
		CreatedAt:      time.Now(),
	}
	if record.VectorIDs == nil {
		record.VectorIDs = []string{}
	}
	if err := p.fileRepo.UpsertUserFile(ctx, job.UserID, record); err != nil {
		log.Errorf("[Processor] 写入文件元数据失败, FileID: %s, Error: %v", job.FileID, err)
		return fmt.Errorf("写入文件元数据失败: %w", err)
	}
	return nil
}

// removeTransient 尽力删除暂存对象。使用独立的超时上下文，
// 避免任务上下文已取消时清理被连带跳过。
func (p *Processor) removeTransient(objectName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.store.Remove(ctx, objectName); err != nil {
		log.Warnf("[Processor] 删除暂存文件失败, Object: %s, Error: %v", objectName, err)
	}
}
