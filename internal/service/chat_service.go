package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/repository"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/llm"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
)

// systemPromptRules 约束模型只依据检索到的文档内容作答，
// 上下文里没有答案时明确说不知道，而不是编造。
const systemPromptRules = "You are a helpful assistant that answers questions about the user's documents. " +
	"Answer strictly based on the provided context. " +
	"If the context does not contain the answer, say that you don't know. Do not make up information."

const noContextText = "(no relevant context was retrieved for this question)"

// ChatService 定义了问答与对话历史的业务操作。
type ChatService interface {
	// Chat 执行一轮完整的 RAG 问答并返回落库后的记录。
	Chat(ctx context.Context, userID uint, query string) (model.ChatRecord, error)
	GetHistory(ctx context.Context, userID uint) ([]model.ChatRecord, error)
	StartNewChat(ctx context.Context, userID uint) error
}

type chatService struct {
	searchService SearchService
	llmClient     llm.Client
	chatRepo      repository.ChatRepository
	ragCfg        config.RAGConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(searchService SearchService, llmClient llm.Client, chatRepo repository.ChatRepository, ragCfg config.RAGConfig) ChatService {
	return &chatService{
		searchService: searchService,
		llmClient:     llmClient,
		chatRepo:      chatRepo,
		ragCfg:        ragCfg,
	}
}

// Chat 协调一轮问答：检索 → 组装 prompt → 生成 → 落库。
// 历史只在生成成功后追加，失败的问答不会留下记录。
func (s *chatService) Chat(ctx context.Context, userID uint, query string) (model.ChatRecord, error) {
	// 1. 在用户自己的集合中检索 top-k 上下文
	results, err := s.searchService.Retrieve(ctx, userID, query, s.ragCfg.TopK)
	if err != nil {
		return model.ChatRecord{}, fmt.Errorf("检索上下文失败: %w", err)
	}

	// 2. 读取有界的历史窗口。历史读取失败降级为无历史继续回答，
	// 不让一次 Redis 抖动挡住整个问答。
	history, err := s.chatRepo.GetRecentChatRecords(ctx, userID, s.ragCfg.HistoryWindow)
	if err != nil {
		log.Errorf("[ChatService] 读取对话历史失败, UserID: %d, Error: %v", userID, err)
		history = nil
	}

	// 3. 组装消息并调用 LLM
	messages := s.composeMessages(results, history, query)
	llmCtx, cancel := context.WithTimeout(ctx, time.Duration(s.ragCfg.UpstreamTimeoutSecond)*time.Second)
	answer, err := s.llmClient.Chat(llmCtx, messages, nil)
	cancel()
	if err != nil {
		return model.ChatRecord{}, fmt.Errorf("生成回答失败: %w", err)
	}

	// 4. 追加到对话历史
	record := model.ChatRecord{
		Query:            query,
		Response:         answer,
		RetrievedContext: results,
	}
	if record.RetrievedContext == nil {
		record.RetrievedContext = []model.RetrievedChunk{}
	}
	saved, err := s.chatRepo.AppendChatRecord(ctx, userID, record)
	if err != nil {
		return model.ChatRecord{}, fmt.Errorf("保存对话记录失败: %w", err)
	}
	log.Infof("[ChatService] 问答完成, UserID: %d, 检索分块数: %d", userID, len(results))
	return saved, nil
}

// GetHistory 返回用户的全部对话记录，按时间升序。
func (s *chatService) GetHistory(ctx context.Context, userID uint) ([]model.ChatRecord, error) {
	return s.chatRepo.GetChatHistory(ctx, userID)
}

// StartNewChat 清空用户的对话历史，开始一段全新的上下文。
func (s *chatService) StartNewChat(ctx context.Context, userID uint) error {
	return s.chatRepo.ClearChatHistory(ctx, userID)
}

// composeMessages 按 system → 历史 → 当前问题 的顺序组装消息。
// 每条历史记录展开成一对 user/assistant 消息，保持原始问答顺序。
func (s *chatService) composeMessages(results []model.RetrievedChunk, history []model.ChatRecord, query string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)*2+2)
	messages = append(messages, llm.Message{Role: "system", Content: s.buildSystemMessage(results)})
	for _, record := range history {
		messages = append(messages, llm.Message{Role: "user", Content: record.Query})
		messages = append(messages, llm.Message{Role: "assistant", Content: record.Response})
	}
	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}

// buildSystemMessage 把规则与检索到的上下文拼成 system 消息。
// 没有检索结果时明确告知模型，让它按规则回答“不知道”。
func (s *chatService) buildSystemMessage(results []model.RetrievedChunk) string {
	var sb strings.Builder
	sb.WriteString(systemPromptRules)
	sb.WriteString("\n\nContext:\n")
	if len(results) == 0 {
		sb.WriteString(noContextText)
		return sb.String()
	}
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, r.TextContent))
	}
	return sb.String()
}
