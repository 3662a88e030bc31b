package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
)

type fakeUploadService struct {
	ack     *model.UploadAck
	err     error
	gotName string
	gotBody string
}

func (f *fakeUploadService) Upload(ctx context.Context, userID uint, fileName, contentType string, reader io.Reader) (*model.UploadAck, error) {
	f.gotName = fileName
	data, _ := io.ReadAll(reader)
	f.gotBody = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return f.ack, nil
}

func newUploadTestRouter(svc *fakeUploadService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUploadHandler(svc)
	authed := r.Group("/", injectUser(&model.User{ID: 1, Username: "alice"}))
	authed.POST("/upload", h.Upload)
	return r
}

func multipartBody(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	svc := &fakeUploadService{ack: &model.UploadAck{
		ID:           "abc",
		OriginalName: "notes.pdf",
		Status:       "processing",
	}}
	r := newUploadTestRouter(svc)

	body, contentType := multipartBody(t, "file", "notes.pdf", "file content")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotName != "notes.pdf" || svc.gotBody != "file content" {
		t.Fatalf("上传内容传递错误: name=%s body=%q", svc.gotName, svc.gotBody)
	}

	var resp struct {
		Message string          `json:"message"`
		File    model.UploadAck `json:"file"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.File.ID != "abc" || resp.File.Status != "processing" {
		t.Fatalf("回执内容错误: %+v", resp.File)
	}
}

func TestUploadEndpointMissingFile(t *testing.T) {
	r := newUploadTestRouter(&fakeUploadService{})

	// 表单字段名不是 file
	body, contentType := multipartBody(t, "document", "notes.pdf", "x")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("缺少 file 字段应返回 400, got %d", w.Code)
	}
}
