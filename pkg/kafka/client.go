// Package kafka 提供了文件摄取任务队列的生产者与消费者。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/tasks"
)

// JobProcessor defines the interface for any service that can process an
// ingestion job. This decouples the Kafka consumer from the concrete
// pipeline implementation.
type JobProcessor interface {
	Process(ctx context.Context, job tasks.IngestJob) error
}

// Producer 负责将摄取任务写入 Kafka。Enqueue 在消息被 broker 接受后返回。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 创建一个新的任务生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Enqueue 发送一个摄取任务。以 FileID 为 key，同一文件的重试落在同一分区。
func (p *Producer) Enqueue(ctx context.Context, job tasks.IngestJob) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.FileID),
		Value: jobBytes,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ObjectRemover 用于在任务永久失败时清理暂存区中的原始文件。
type ObjectRemover interface {
	Remove(ctx context.Context, objectName string) error
}

// Consumer 从队列拉取摄取任务并交给 processor 处理。
// 消费组保证同一条消息同一时刻只被一个 worker 持有；worker 崩溃后
// 未提交的 offset 会被重新投递（at-least-once）。
type Consumer struct {
	cfg         config.KafkaConfig
	rdb         *redis.Client
	store       ObjectRemover
	maxAttempts int
}

// NewConsumer 创建一个新的任务消费者。
// rdb 用于记录每个任务的失败次数，超过 maxAttempts 后不再重试；
// store 用于在重试预算耗尽后删除暂存文件，此后不会再有人消费它。
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, store ObjectRemover, maxAttempts int) *Consumer {
	return &Consumer{cfg: cfg, rdb: rdb, store: store, maxAttempts: maxAttempts}
}

// attemptsKey 按用户+文件区分失败计数：不同用户上传相同内容时
// 各自拥有独立的重试预算，互不干扰。
func (c *Consumer) attemptsKey(job tasks.IngestJob) string {
	return fmt.Sprintf("ingest:attempts:%d:%s", job.UserID, job.FileID)
}

// Run 启动消费循环，直到 ctx 被取消。
// 单个任务失败不影响其他任务；队列层面的错误记录日志后退避重试，
// 消费循环永远不会因为一条消息或一次连接故障而退出。
func (c *Consumer) Run(ctx context.Context, processor JobProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{c.cfg.Brokers},
		Topic:    c.cfg.Topic,
		GroupID:  c.cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者收到退出信号")
				return
			}
			log.Error("从 Kafka 读取消息失败，稍后重连", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		var job tasks.IngestJob
		if err := json.Unmarshal(m.Value, &job); err != nil {
			log.Errorf("无法解析摄取任务消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误属于永久性失败，直接提交避免阻塞队列
			c.commit(ctx, r, m)
			continue
		}

		log.Infof("开始处理摄取任务: FileID=%s, FileName=%s, UserID=%d", job.FileID, job.OriginalName, job.UserID)
		if err := processor.Process(ctx, job); err != nil {
			c.handleFailure(ctx, r, m, job, err)
		} else {
			log.Infof("摄取任务处理成功: FileID=%s", job.FileID)
			_ = c.rdb.Del(ctx, c.attemptsKey(job)).Err()
			c.commit(ctx, r, m)
		}
	}
}

// handleFailure 用 Redis 计数失败次数；未达上限时不提交 offset，
// 让 Kafka 重新投递；达到上限后记录永久失败并提交 offset 终止重试。
func (c *Consumer) handleFailure(ctx context.Context, r *kafka.Reader, m kafka.Message, job tasks.IngestJob, procErr error) {
	log.Errorf("处理摄取任务失败: FileID=%s, Error: %v", job.FileID, procErr)

	key := c.attemptsKey(job)
	attempts, incErr := c.rdb.Incr(ctx, key).Result()
	if incErr != nil {
		// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
		log.Errorf("记录任务失败次数出错: %v", incErr)
		return
	}
	_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()

	if c.finalizeFailure(job, attempts, procErr) {
		_ = c.rdb.Del(ctx, key).Err()
		c.commit(ctx, r, m)
	}
}

// finalizeFailure 判断重试预算是否已耗尽，是则执行终态清理并返回 true。
// offset 一旦提交就不会再有任何消费者拿到这个任务，暂存文件必须在
// 这里删除，否则会永久泄漏。
func (c *Consumer) finalizeFailure(job tasks.IngestJob, attempts int64, procErr error) bool {
	if int(attempts) < c.maxAttempts {
		return false
	}
	log.Errorf("摄取任务连续失败 %d 次，标记为永久失败: FileID=%s, FileName=%s, LastError: %v",
		attempts, job.FileID, job.OriginalName, procErr)
	c.removeTransient(job)
	return true
}

// removeTransient 尽力删除永久失败任务的暂存文件。删除失败只记告警：
// 向量与元数据都未落库，残留对象不影响正确性。
func (c *Consumer) removeTransient(job tasks.IngestJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.store.Remove(ctx, job.ObjectName); err != nil {
		log.Warnf("删除永久失败任务的暂存文件失败, Object: %s, Error: %v", job.ObjectName, err)
	}
}

func (c *Consumer) commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
