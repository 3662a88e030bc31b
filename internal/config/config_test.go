package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
server:
  port: "8080"
  mode: "debug"
database:
  redis:
    addr: "127.0.0.1:6379"
jwt:
  secret: "test"
  access_token_expire_hours: 1
  refresh_token_expire_days: 7
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port 解析错误: %s", cfg.Server.Port)
	}
	// 未配置的管线参数应有默认值
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("分块默认值错误: %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK != 3 {
		t.Errorf("topK 默认值错误: %d", cfg.RAG.TopK)
	}
	if cfg.RAG.HistoryWindow != 20 {
		t.Errorf("历史窗口默认值错误: %d", cfg.RAG.HistoryWindow)
	}
	if cfg.RAG.MaxJobAttempts != 3 {
		t.Errorf("重试次数默认值错误: %d", cfg.RAG.MaxJobAttempts)
	}
	if cfg.Embedding.Dimensions != 1024 {
		t.Errorf("向量维度默认值错误: %d", cfg.Embedding.Dimensions)
	}
}

func TestLoadInvalidOverlapFallsBack(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
rag:
  chunk_size: 100
  chunk_overlap: 200
`))
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	// overlap >= chunkSize 属于无效配置，回退到默认重叠
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		t.Fatalf("无效重叠应被修正: size=%d overlap=%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("不存在的配置文件应返回错误")
	}
}
