package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/service"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
)

// ChatHandler 负责处理问答与对话历史的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest 定义了问答 API 的请求体结构。
type ChatRequest struct {
	Query string `json:"query" binding:"required"`
}

// Chat 处理一轮问答请求，同步返回完整回答及其引用的分块。
func (h *ChatHandler) Chat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query 不能为空"})
		return
	}

	record, err := h.chatService.Chat(c.Request.Context(), user.ID, req.Query)
	if err != nil {
		log.Error("Chat: failed to answer query", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response": record.Response,
		"docs":     record.RetrievedContext,
	})
}

// GetChats 返回当前用户的全部对话记录，按时间升序。
func (h *ChatHandler) GetChats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	chats, err := h.chatService.GetHistory(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("GetChats: failed to load chat history", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartNewChat 清空当前用户的对话历史。历史为空时同样返回成功。
func (h *ChatHandler) StartNewChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.chatService.StartNewChat(c.Request.Context(), user.ID); err != nil {
		log.Error("StartNewChat: failed to clear chat history", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "New chat started"})
}
