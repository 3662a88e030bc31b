package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
)

type fakeChatService struct {
	record  model.ChatRecord
	history []model.ChatRecord
	err     error
	cleared bool
}

func (f *fakeChatService) Chat(ctx context.Context, userID uint, query string) (model.ChatRecord, error) {
	if f.err != nil {
		return model.ChatRecord{}, f.err
	}
	return f.record, nil
}

func (f *fakeChatService) GetHistory(ctx context.Context, userID uint) ([]model.ChatRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func (f *fakeChatService) StartNewChat(ctx context.Context, userID uint) error {
	f.cleared = true
	return f.err
}

// injectUser 模拟 AuthMiddleware，直接把测试用户塞进上下文。
func injectUser(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", user)
		c.Next()
	}
}

func newChatTestRouter(svc *fakeChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewChatHandler(svc)
	authed := r.Group("/", injectUser(&model.User{ID: 1, Username: "alice"}))
	authed.POST("/chat", h.Chat)
	authed.GET("/chats", h.GetChats)
	authed.POST("/start-new-chat", h.StartNewChat)
	return r
}

func TestChatEndpoint(t *testing.T) {
	svc := &fakeChatService{record: model.ChatRecord{
		Query:    "q",
		Response: "grounded answer",
		RetrievedContext: []model.RetrievedChunk{
			{VectorID: "f_0", TextContent: "chunk"},
		},
	}}
	r := newChatTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Response string                 `json:"response"`
		Docs     []model.RetrievedChunk `json:"docs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if resp.Response != "grounded answer" || len(resp.Docs) != 1 {
		t.Fatalf("响应内容错误: %+v", resp)
	}
}

func TestChatEndpointEmptyQuery(t *testing.T) {
	r := newChatTestRouter(&fakeChatService{})

	for _, body := range []string{`{}`, `{"query":""}`, `{"query":"   "}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: 期望 400, got %d", body, w.Code)
		}
	}
}

func TestChatEndpointServiceError(t *testing.T) {
	r := newChatTestRouter(&fakeChatService{err: errors.New("llm down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("期望 500, got %d", w.Code)
	}
}

func TestGetChatsEndpoint(t *testing.T) {
	svc := &fakeChatService{history: []model.ChatRecord{
		{Query: "q1", Response: "a1", Timestamp: 1},
		{Query: "q2", Response: "a2", Timestamp: 2},
	}}
	r := newChatTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200, got %d", w.Code)
	}
	var resp struct {
		Chats []model.ChatRecord `json:"chats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Chats) != 2 || resp.Chats[0].Query != "q1" {
		t.Fatalf("历史内容错误: %+v", resp.Chats)
	}
}

func TestStartNewChatEndpoint(t *testing.T) {
	svc := &fakeChatService{}
	r := newChatTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start-new-chat", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200, got %d", w.Code)
	}
	if !svc.cleared {
		t.Fatal("应调用 StartNewChat 清空历史")
	}
}
