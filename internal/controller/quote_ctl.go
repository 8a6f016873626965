package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obra_catalog/internal/api/dto"
	"obra_catalog/internal/service"
)

type QuoteController struct {
	quoteService *service.QuoteService
}

func NewQuoteController(quoteService *service.QuoteService) *QuoteController {
	return &QuoteController{quoteService: quoteService}
}

// ==================== 报价单 ====================

// CreateCart 新建报价单
// POST /api/carts
func (ctrl *QuoteController) CreateCart(c *gin.Context) {
	success(c, ctrl.quoteService.CreateCart())
}

// GetCart 报价单内容
// GET /api/carts/:id
func (ctrl *QuoteController) GetCart(c *gin.Context) {
	view, err := ctrl.quoteService.GetCart(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, view)
}

// DeleteCart 删除报价单
// DELETE /api/carts/:id
func (ctrl *QuoteController) DeleteCart(c *gin.Context) {
	if err := ctrl.quoteService.DeleteCart(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}

// SetClient 保存客户信息
// PUT /api/carts/:id/client
func (ctrl *QuoteController) SetClient(c *gin.Context) {
	var req dto.ClientDetailsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := ctrl.quoteService.SetClient(c.Param("id"), service.ClientDetails(req))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, view)
}

// ==================== 明细 ====================

// AddItem 加入商品
// POST /api/carts/:id/items
func (ctrl *QuoteController) AddItem(c *gin.Context) {
	var req dto.AddCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, err := ctrl.quoteService.AddItem(c.Request.Context(), c.Param("id"), req.ProductID, req.Quantity, req.SelectedVariants)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, line)
}

// UpdateItem 调整数量，减到 0 删除
// PATCH /api/carts/:id/items/:key
func (ctrl *QuoteController) UpdateItem(c *gin.Context) {
	var req dto.UpdateCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := ctrl.quoteService.UpdateQty(c.Param("id"), c.Param("key"), req.Delta)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, view)
}

// RemoveItem 删除一行
// DELETE /api/carts/:id/items/:key
func (ctrl *QuoteController) RemoveItem(c *gin.Context) {
	view, err := ctrl.quoteService.RemoveItem(c.Param("id"), c.Param("key"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, view)
}

// ==================== 报价 ====================

func quoteOptions(c *gin.Context) service.QuoteOptions {
	return service.QuoteOptions{
		Discount: service.ParseAmount(c.Query("discount")),
		Delivery: service.ParseAmount(c.Query("delivery")),
	}
}

// GetQuote 报价汇总
// GET /api/carts/:id/quote?discount=&delivery=
func (ctrl *QuoteController) GetQuote(c *gin.Context) {
	q, err := ctrl.quoteService.GetQuote(c.Param("id"), quoteOptions(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, q)
}

// ExportQuoteCSV 导出报价明细
// GET /api/carts/:id/quote.csv
func (ctrl *QuoteController) ExportQuoteCSV(c *gin.Context) {
	cartID := c.Param("id")
	out, err := ctrl.quoteService.ExportCSV(cartID, quoteOptions(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="quote-`+cartID+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}
