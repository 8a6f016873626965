package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obra_catalog/pkg/errs"
)

// success 统一成功响应
func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

// fail 按错误类型映射状态码
func fail(c *gin.Context, err error) {
	status := errs.StatusCode(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
	})
}

// badRequest 参数绑定失败
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": "参数错误: " + err.Error(),
	})
}
