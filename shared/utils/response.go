package utils

import (
	"net/http"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// AppErrorResponse sends err with the status and code of its class.
// Internal causes are logged, never returned.
func AppErrorResponse(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.Code == apperrors.CodeInternal || appErr.Code == apperrors.CodeServiceUnavailable {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"code":  appErr.Code,
			"error": err,
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(appErr.Code), APIResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    string(appErr.Code),
	})
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	SuccessResponse(c, http.StatusCreated, message, data)
}

// OKResponse sends a 200 OK response
func OKResponse(c *gin.Context, message string, data interface{}) {
	SuccessResponse(c, http.StatusOK, message, data)
}
