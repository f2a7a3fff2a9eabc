// internal/handlers/download.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type DownloadHandler struct {
	downloadService *services.DownloadService
	storageService  *services.StorageService
}

func NewDownloadHandler(downloadService *services.DownloadService, storageService *services.StorageService) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
		storageService:  storageService,
	}
}

// POST /downloads/files/:id
// Burns one download and returns a short-lived URL for the file.
func (h *DownloadHandler) RequestDownload(c *gin.Context) {
	fileID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	grant, err := h.downloadService.AuthorizeDownload(userID, fileID, c.ClientIP())
	if err != nil {
		if strings.Contains(err.Error(), "no download access") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		// Revoked, expired, or exhausted
		utils.ForbiddenResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"download": grant})
}

// GET /downloads
func (h *DownloadHandler) ListMyDownloads(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	accesses, err := h.downloadService.ListAccessForUser(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"downloads": accesses})
}

// GET /downloads/file?token=...
// Local-storage delivery path; verifies the HMAC token issued by
// RequestDownload when object storage is not configured.
func (h *DownloadHandler) ServeFile(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.BadRequestResponse(c, "Download token required", nil)
		return
	}

	file, err := h.downloadService.VerifyDownloadToken(token)
	if err != nil {
		utils.ForbiddenResponse(c, err.Error())
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+file.Name+"\"")
	c.File("uploads/" + file.StorageKey)
}
