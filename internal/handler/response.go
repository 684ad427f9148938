package handler

import (
	"errors"
	"net/http"

	"github.com/blues/cfc/internal/model"
	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
	})
}

// FailWithError 按错误类别映射HTTP状态码。
// 不可重试的本地错误归为客户端错误，账本侧失败归为网关错误。
func FailWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotEligible):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrDataIntegrity):
		ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrLedgerRejected), errors.Is(err, model.ErrLedgerUnavailable):
		ErrorResponse(c, http.StatusBadGateway, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
