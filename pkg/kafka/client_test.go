package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/tasks"
)

type fakeObjectRemover struct {
	removed   []string
	removeErr error
}

func (f *fakeObjectRemover) Remove(_ context.Context, objectName string) error {
	f.removed = append(f.removed, objectName)
	return f.removeErr
}

func testJob() tasks.IngestJob {
	return tasks.IngestJob{
		FileID:       "abc123",
		UserID:       7,
		ObjectName:   "uploads/7/abc123",
		OriginalName: "report.pdf",
	}
}

func TestFinalizeFailureBelowBudgetKeepsObject(t *testing.T) {
	store := &fakeObjectRemover{}
	c := NewConsumer(config.KafkaConfig{}, nil, store, 3)

	if c.finalizeFailure(testJob(), 2, errors.New("parse error")) {
		t.Fatal("未达重试上限不应终结任务")
	}
	if len(store.removed) != 0 {
		t.Fatalf("未达上限时不应删除暂存文件, removed: %v", store.removed)
	}
}

func TestFinalizeFailureExhaustedBudgetRemovesObject(t *testing.T) {
	store := &fakeObjectRemover{}
	c := NewConsumer(config.KafkaConfig{}, nil, store, 3)

	job := testJob()
	if !c.finalizeFailure(job, 3, errors.New("parse error")) {
		t.Fatal("达到重试上限应终结任务")
	}
	if len(store.removed) != 1 || store.removed[0] != job.ObjectName {
		t.Fatalf("永久失败后应删除暂存文件 %s, removed: %v", job.ObjectName, store.removed)
	}
}

func TestFinalizeFailureRemoveErrorStillFinalizes(t *testing.T) {
	store := &fakeObjectRemover{removeErr: errors.New("connection refused")}
	c := NewConsumer(config.KafkaConfig{}, nil, store, 3)

	// 删除失败只记告警，任务仍然终结，offset 照常提交
	if !c.finalizeFailure(testJob(), 5, errors.New("embed error")) {
		t.Fatal("删除暂存文件失败不应阻止任务终结")
	}
}

func TestAttemptsKeyScopedByUser(t *testing.T) {
	c := NewConsumer(config.KafkaConfig{}, nil, &fakeObjectRemover{}, 3)

	a := testJob()
	b := testJob()
	b.UserID = 8
	b.ObjectName = "uploads/8/abc123"

	// 不同用户上传相同内容（FileID 相同）时，失败计数互不干扰
	if c.attemptsKey(a) == c.attemptsKey(b) {
		t.Fatalf("不同用户的失败计数 key 不应相同: %s", c.attemptsKey(a))
	}
	if c.attemptsKey(a) != c.attemptsKey(testJob()) {
		t.Fatal("同一任务的失败计数 key 应当稳定")
	}
}
