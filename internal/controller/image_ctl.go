package controller

import (
	"github.com/gin-gonic/gin"

	"obra_catalog/internal/api/dto"
	"obra_catalog/internal/service"
)

type ImageController struct {
	imageService *service.ImageService
	batchService *service.BatchImageService
}

func NewImageController(imageService *service.ImageService, batchService *service.BatchImageService) *ImageController {
	return &ImageController{imageService: imageService, batchService: batchService}
}

// GetMissing 缺图商品
// GET /api/images/missing
func (ctrl *ImageController) GetMissing(c *gin.Context) {
	ids, err := ctrl.imageService.MissingImageIDs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	success(c, dto.MissingImagesResp{ProductIDs: ids, Total: len(ids)})
}

// StartBatch 启动批量生图
// POST /api/images/batch
func (ctrl *ImageController) StartBatch(c *gin.Context) {
	var req dto.StartBatchReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	ids := req.ProductIDs
	if len(ids) == 0 {
		missing, err := ctrl.imageService.MissingImageIDs(ctx)
		if err != nil {
			fail(c, err)
			return
		}
		ids = missing
	}

	jobID, err := ctrl.batchService.Start(ctx, ids)
	if err != nil {
		fail(c, err)
		return
	}

	job, err := ctrl.batchService.Status(jobID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dto.StartBatchResp{JobID: jobID, Total: job.Total})
}

// GetBatch 批量任务进度
// GET /api/images/batch/:id
func (ctrl *ImageController) GetBatch(c *gin.Context) {
	job, err := ctrl.batchService.Status(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, job)
}

// GetBatchProduct 单个商品的生图状态，成功状态过保留期后回到 idle
// GET /api/images/batch/:id/:productId
func (ctrl *ImageController) GetBatchProduct(c *gin.Context) {
	jobID, productID := c.Param("id"), c.Param("productId")
	st, err := ctrl.batchService.ProductStatus(jobID, productID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dto.BatchProductStatusResp{JobID: jobID, ProductID: productID, Status: string(st)})
}
