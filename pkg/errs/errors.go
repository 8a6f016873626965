package errs

import (
	"errors"
	"net/http"
)

// ==================== 错误分类 ====================

var (
	// ErrValidation 商品数据不合法 (缺少 id/name/price、变体价格不在选项内等)
	ErrValidation = errors.New("商品数据校验失败")
	// ErrProductNotFound 目标商品在基础目录、覆盖记录、用户商品中都不存在
	ErrProductNotFound = errors.New("商品不存在")
	// ErrExternalSearch 外部 (AI) 搜索失败，可降级到本地过滤
	ErrExternalSearch = errors.New("外部搜索失败")
	// ErrPersistence 持久化层失败，需要提示用户
	ErrPersistence = errors.New("数据保存失败")
	// ErrAIUnavailable 未配置 Gemini API Key 或 AI 服务不可用
	ErrAIUnavailable = errors.New("AI 服务不可用")
	// ErrCartNotFound 报价单 (购物车) 不存在
	ErrCartNotFound = errors.New("报价单不存在")
	// ErrCartLineNotFound 报价单行不存在
	ErrCartLineNotFound = errors.New("报价单行不存在")
	// ErrCompareLimit 对比列表已满
	ErrCompareLimit = errors.New("最多同时对比 4 件商品")
	// ErrInvalidImage 图片地址无法加载或不是图片
	ErrInvalidImage = errors.New("图片地址无效")
	// ErrJobNotFound 批量任务不存在
	ErrJobNotFound = errors.New("任务不存在")
	// ErrRateLimited 请求过于频繁
	ErrRateLimited = errors.New("请求过于频繁")
	// ErrBatchBusy 已有批量生图任务在执行
	ErrBatchBusy = errors.New("已有批量任务在执行")
	// ErrUnauthorized 用户名密码错误或 Token 无效
	ErrUnauthorized = errors.New("认证失败")
	// ErrUserDisabled 账号已禁用
	ErrUserDisabled = errors.New("账号已禁用")
)

var statusMap = map[error]int{
	ErrValidation:       http.StatusBadRequest,
	ErrProductNotFound:  http.StatusNotFound,
	ErrExternalSearch:   http.StatusBadGateway,
	ErrPersistence:      http.StatusInternalServerError,
	ErrAIUnavailable:    http.StatusServiceUnavailable,
	ErrCartNotFound:     http.StatusNotFound,
	ErrCartLineNotFound: http.StatusNotFound,
	ErrCompareLimit:     http.StatusConflict,
	ErrInvalidImage:     http.StatusBadRequest,
	ErrJobNotFound:      http.StatusNotFound,
	ErrRateLimited:      http.StatusTooManyRequests,
	ErrBatchBusy:        http.StatusConflict,
	ErrUnauthorized:     http.StatusUnauthorized,
	ErrUserDisabled:     http.StatusForbidden,
}

// StatusCode 根据错误链找到对应的 HTTP 状态码，未知错误一律 500
func StatusCode(err error) int {
	for target, code := range statusMap {
		if errors.Is(err, target) {
			return code
		}
	}
	return http.StatusInternalServerError
}
