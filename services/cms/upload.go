package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/middleware"
	"github.com/ablaqll/pmpk-website-sub000/shared/storage"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 20 << 20

var uploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// handleUpload stores one multipart file for a client the caller may act on
func (s *server) handleUpload(c *gin.Context) {
	if s.uploader == nil {
		utils.AppErrorResponse(c, apperrors.Unavailable("File storage is not configured", storage.ErrNotConfigured))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+1<<20)

	clientID, err := uuid.Parse(c.PostForm("clientId"))
	if err != nil {
		utils.AppErrorResponse(c, apperrors.Validation("clientId must be a UUID"))
		return
	}
	caller, err := s.auth.Refresh(c.Request.Context(), middleware.GetUserInfoFromContext(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if !caller.MayActOn(clientID) {
		utils.AppErrorResponse(c, apperrors.ErrForbidden)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.AppErrorResponse(c, apperrors.Validation("file is required"))
		return
	}
	if header.Size > maxUploadSize {
		utils.AppErrorResponse(c, apperrors.Validation(fmt.Sprintf("file exceeds %d MB", maxUploadSize>>20)))
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := uploadTypes[ext]
	if !ok {
		utils.AppErrorResponse(c, apperrors.Validation("file type "+ext+" is not allowed"))
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.AppErrorResponse(c, apperrors.Internal(err))
		return
	}
	defer file.Close()

	key := storage.ObjectKey(clientID, header.Filename)
	url, err := s.uploader.Upload(c.Request.Context(), key, contentType, file)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{"client_id": clientID, "user_id": caller.ID, "key": key}).Info("File uploaded")
	utils.CreatedResponse(c, "File uploaded", gin.H{"key": key, "url": url, "fileName": header.Filename})
}
