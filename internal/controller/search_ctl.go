package controller

import (
	"github.com/gin-gonic/gin"

	"obra_catalog/internal/service"
)

type SearchController struct {
	searchService *service.SearchService
	productCtl    *ProductController
}

func NewSearchController(searchService *service.SearchService, productCtl *ProductController) *SearchController {
	return &SearchController{searchService: searchService, productCtl: productCtl}
}

// Search 本地过滤或 AI 语义搜索
// GET /api/search?category=&q=&mode=local|ai
// AI 搜索失败时退回本地过滤，响应里 fallback=true
func (ctrl *SearchController) Search(c *gin.Context) {
	mode := service.SearchMode(c.DefaultQuery("mode", string(service.SearchModeLocal)))

	res, err := ctrl.searchService.Search(c.Request.Context(), c.Query("category"), c.Query("q"), mode)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, gin.H{
		"products":    ctrl.productCtl.toRespList(res.Products),
		"mode":        res.Mode,
		"fallback":    res.Fallback,
		"matched_ids": res.MatchedIDs,
	})
}
