package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gauravrathore2u/ai-documentation-chat/internal/service"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
)

// DocumentHandler 负责处理文件列表与删除的 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// ListFiles 返回当前用户已完成摄取的全部文件。
func (h *DocumentHandler) ListFiles(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	files, err := h.documentService.ListFiles(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("ListFiles: failed to list files", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// DeleteFile 删除当前用户的一个文件及其全部向量。
func (h *DocumentHandler) DeleteFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	fileID := c.Param("id")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件 ID"})
		return
	}

	if err := h.documentService.DeleteFile(c.Request.Context(), user.ID, fileID); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		log.Error("DeleteFile: failed to delete file", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}
