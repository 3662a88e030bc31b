package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/service"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
)

// UploadHandler 负责处理文件上传的 API 请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload 处理文件上传请求。multipart 表单的 file 字段携带文件；
// 接口在文件进入暂存区并完成任务投递后立即返回，摄取异步进行。
func (h *UploadHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求中缺少文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Upload: failed to open uploaded file", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ack, err := h.uploadService.Upload(c.Request.Context(), user.ID, fileHeader.Filename, contentType, file)
	if err != nil {
		if errors.Is(err, service.ErrEmptyFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "上传的文件内容为空"})
			return
		}
		log.Error("Upload: failed to accept file", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded and queued for processing",
		"file":    ack,
	})
}
