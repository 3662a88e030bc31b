package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
)

func TestChatReturnsContent(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("意外的路径: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("解析请求失败: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "grounded answer"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "test-model"})
	answer, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "question"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat 失败: %v", err)
	}
	if answer != "grounded answer" {
		t.Fatalf("回答内容错误: %q", answer)
	}

	// 同步问答：非流式、关闭思考模式
	if gotReq["stream"] != false {
		t.Error("请求应为非流式")
	}
	if gotReq["enable_thinking"] != false {
		t.Error("请求应关闭思考模式")
	}
	msgs := gotReq["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("消息数量错误: %d", len(msgs))
	}
}

func TestChatGenerationParamsFromConfig(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	cfg := config.LLMConfig{BaseURL: srv.URL, Model: "m"}
	cfg.Generation.Temperature = 0.7
	cfg.Generation.MaxTokens = 100
	c := NewClient(cfg)
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "q"}}, nil); err != nil {
		t.Fatal(err)
	}
	if gotReq["temperature"] != 0.7 {
		t.Errorf("temperature 未传递: %v", gotReq["temperature"])
	}
	if gotReq["max_tokens"] != float64(100) {
		t.Errorf("max_tokens 未传递: %v", gotReq["max_tokens"])
	}
	if _, ok := gotReq["top_p"]; ok {
		t.Error("零值 top_p 不应出现在请求中")
	}
}

func TestChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "q"}}, nil); err == nil {
		t.Fatal("无 choices 应返回错误")
	}
}

func TestChatNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "q"}}, nil); err == nil {
		t.Fatal("非 200 响应应返回错误")
	}
}
