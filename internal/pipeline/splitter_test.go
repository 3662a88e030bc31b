package pipeline

import (
	"strings"
	"testing"
)

func TestSplitTextEmpty(t *testing.T) {
	if got := SplitText("", 100, 10); got != nil {
		t.Fatalf("空文本应返回 nil, got %v", got)
	}
}

func TestSplitTextShorterThanChunk(t *testing.T) {
	chunks := SplitText("hello", 100, 10)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("短文本应返回单个分块, got %v", chunks)
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := SplitText(text, 10, 3)
	// step = 7: [0,10) [7,17) [14,24) [21,25)
	if len(chunks) != 4 {
		t.Fatalf("期望 4 个分块, got %d", len(chunks))
	}
	for i, c := range chunks[:3] {
		if len(c) != 10 {
			t.Errorf("分块 %d 长度期望 10, got %d", i, len(c))
		}
	}
	if len(chunks[3]) != 4 {
		t.Errorf("末尾分块长度期望 4, got %d", len(chunks[3]))
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	text := strings.Repeat("abcdef", 100)
	a := SplitText(text, 50, 10)
	b := SplitText(text, 50, 10)
	if len(a) != len(b) {
		t.Fatalf("两次切分数量不一致: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("分块 %d 不一致", i)
		}
	}
}

func TestSplitTextInvalidOverlapFallsBack(t *testing.T) {
	text := strings.Repeat("x", 25)
	// overlap >= chunkSize 时退化为无重叠切分
	chunks := SplitText(text, 10, 10)
	if len(chunks) != 3 {
		t.Fatalf("期望 3 个分块, got %d", len(chunks))
	}
	if chunks[2] != strings.Repeat("x", 5) {
		t.Fatalf("末尾分块错误: %q", chunks[2])
	}
}

func TestSplitTextNonPositiveChunkSize(t *testing.T) {
	// chunkSize <= 0 时步长无法前进，必须直接返回 nil 而不是死循环
	for _, size := range []int{0, -1} {
		if got := SplitText("some text", size, 0); got != nil {
			t.Fatalf("chunkSize=%d 应返回 nil, got %v", size, got)
		}
		if got := SplitText("some text", size, size); got != nil {
			t.Fatalf("chunkSize=%d（退化分支）应返回 nil, got %v", size, got)
		}
		if got := SplitPages([]string{"a", "b"}, size, 0); got != nil {
			t.Fatalf("SplitPages chunkSize=%d 应返回 nil, got %v", size, got)
		}
	}
}

func TestSplitTextMultibyte(t *testing.T) {
	// 按 rune 切分，多字节字符不能被截断
	text := strings.Repeat("中文分块测试", 10)
	chunks := SplitText(text, 7, 2)
	for i, c := range chunks {
		if strings.Contains(c, "�") {
			t.Errorf("分块 %d 含有被截断的字符: %q", i, c)
		}
	}
	joined := strings.Join(SplitText(text, 7, 0), "")
	if joined != text {
		t.Fatal("无重叠切分后拼接应还原原文")
	}
}

func TestSplitPagesKeepsOrder(t *testing.T) {
	pages := []string{"first page", "second page", "third"}
	chunks := SplitPages(pages, 100, 10)
	if len(chunks) != 3 {
		t.Fatalf("期望每页一个分块, got %d", len(chunks))
	}
	if chunks[0] != "first page" || chunks[1] != "second page" || chunks[2] != "third" {
		t.Fatalf("分块顺序错误: %v", chunks)
	}
}

func TestSplitPagesEmpty(t *testing.T) {
	if got := SplitPages(nil, 100, 10); got != nil {
		t.Fatalf("无页面应返回 nil, got %v", got)
	}
}
