package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gauravrathore2u/ai-documentation-chat/pkg/tasks"
)

type fakePutter struct {
	objects map[string][]byte
	err     error
}

func (p *fakePutter) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if p.err != nil {
		return p.err
	}
	data, _ := io.ReadAll(reader)
	if p.objects == nil {
		p.objects = make(map[string][]byte)
	}
	p.objects[objectName] = data
	return nil
}

type fakeEnqueuer struct {
	jobs []tasks.IngestJob
	err  error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, job tasks.IngestJob) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func TestUploadAcceptsFile(t *testing.T) {
	putter := &fakePutter{}
	enqueuer := &fakeEnqueuer{}
	s := NewUploadService(putter, enqueuer)

	content := []byte("document body")
	ack, err := s.Upload(context.Background(), 7, "notes.pdf", "application/pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Upload 失败: %v", err)
	}

	sum := md5.Sum(content)
	wantID := hex.EncodeToString(sum[:])
	if ack.ID != wantID {
		t.Fatalf("文件 ID 应为内容 MD5, want %s, got %s", wantID, ack.ID)
	}
	if ack.Status != "processing" {
		t.Fatalf("回执状态错误: %s", ack.Status)
	}
	if ack.SizeBytes != int64(len(content)) {
		t.Fatalf("回执大小错误: %d", ack.SizeBytes)
	}

	// 文件落入按用户隔离的暂存路径
	wantObject := "uploads/7/" + wantID
	if _, ok := putter.objects[wantObject]; !ok {
		t.Fatalf("文件未写入期望的对象路径, objects: %v", putter.objects)
	}

	// 摄取任务已投递且携带完整上下文
	if len(enqueuer.jobs) != 1 {
		t.Fatalf("期望投递 1 个任务, got %d", len(enqueuer.jobs))
	}
	job := enqueuer.jobs[0]
	if job.FileID != wantID || job.UserID != 7 || job.ObjectName != wantObject {
		t.Fatalf("任务内容错误: %+v", job)
	}
	if job.CollectionName != "user_7_docs" {
		t.Fatalf("集合名错误: %s", job.CollectionName)
	}
}

func TestUploadSameContentSameID(t *testing.T) {
	s := NewUploadService(&fakePutter{}, &fakeEnqueuer{})
	a, err := s.Upload(context.Background(), 1, "a.txt", "text/plain", strings.NewReader("same content"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Upload(context.Background(), 1, "b.txt", "text/plain", strings.NewReader("same content"))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatalf("相同内容应得到相同 ID: %s vs %s", a.ID, b.ID)
	}
}

func TestUploadEmptyFileRejected(t *testing.T) {
	s := NewUploadService(&fakePutter{}, &fakeEnqueuer{})
	_, err := s.Upload(context.Background(), 1, "empty.txt", "text/plain", strings.NewReader(""))
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("空文件应返回 ErrEmptyFile, got %v", err)
	}
}

func TestUploadStoreFailureDoesNotEnqueue(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewUploadService(&fakePutter{err: errors.New("minio down")}, enqueuer)
	if _, err := s.Upload(context.Background(), 1, "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("暂存失败时 Upload 应返回错误")
	}
	// 文件没落地就不能投递任务，否则 worker 下载不到文件
	if len(enqueuer.jobs) != 0 {
		t.Fatal("暂存失败时不应投递任务")
	}
}

func TestUploadEnqueueFailureReturnsError(t *testing.T) {
	s := NewUploadService(&fakePutter{}, &fakeEnqueuer{err: errors.New("kafka down")})
	if _, err := s.Upload(context.Background(), 1, "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("投递失败时 Upload 应返回错误")
	}
}
