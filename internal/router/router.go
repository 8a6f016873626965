package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"obra_catalog/internal/controller"
	"obra_catalog/internal/middleware"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Product   *controller.ProductController
	Search    *controller.SearchController
	Quote     *controller.QuoteController
	Image     *controller.ImageController
	Assistant *controller.AssistantController
	Auth      *controller.AuthController
}

// InitRoutes 注册所有路由
// aiInterval 为 AI 接口的冷却时间，0 表示按调用类型取默认值
// 写接口需要登录，认证放在限流之前，未登录的请求不占用冷却
func InitRoutes(r *gin.Engine, ctl Controllers, limiter *middleware.RateLimiter, aiInterval time.Duration, tokens *middleware.TokenManager) {
	authRequired := middleware.JWTAuth(tokens)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"code": 0, "message": "ok"})
	})

	api := r.Group("/api")
	{
		// 登录
		auth := api.Group("/auth")
		{
			auth.POST("/login", ctl.Auth.Login)
			auth.POST("/refresh", ctl.Auth.Refresh)
		}

		// 商品
		products := api.Group("/products")
		{
			products.GET("", ctl.Product.GetProducts)
			products.POST("", authRequired, ctl.Product.SaveProduct)
			// 固定路径需要在 /:id 之前注册
			products.GET("/categories", ctl.Product.GetCategories)
			products.GET("/compare", ctl.Product.Compare)
			products.POST("/description/generate",
				middleware.AIRateLimit(limiter, middleware.AIKindDescription, aiInterval),
				ctl.Product.GenerateDescription)

			products.GET("/:id", ctl.Product.GetProduct)
			products.PATCH("/:id", authRequired, ctl.Product.PatchProduct)
			products.PUT("/:id/image", authRequired, ctl.Product.SetImage)
			products.POST("/:id/image/generate", authRequired,
				middleware.AIRateLimit(limiter, middleware.AIKindImage, aiInterval),
				ctl.Product.GenerateImage)
		}

		// 搜索，只有 mode=ai 计入冷却
		api.GET("/search",
			middleware.AIRateLimit(limiter, middleware.AIKindSearch, aiInterval),
			ctl.Search.Search)

		// 报价单
		carts := api.Group("/carts")
		{
			carts.POST("", ctl.Quote.CreateCart)
			carts.GET("/:id", ctl.Quote.GetCart)
			carts.DELETE("/:id", ctl.Quote.DeleteCart)
			carts.PUT("/:id/client", ctl.Quote.SetClient)
			carts.POST("/:id/items", ctl.Quote.AddItem)
			carts.PATCH("/:id/items/:key", ctl.Quote.UpdateItem)
			carts.DELETE("/:id/items/:key", ctl.Quote.RemoveItem)
			carts.GET("/:id/quote", ctl.Quote.GetQuote)
			carts.GET("/:id/quote.csv", ctl.Quote.ExportQuoteCSV)
		}

		// 图片
		images := api.Group("/images")
		{
			images.GET("/missing", ctl.Image.GetMissing)
			images.POST("/batch", authRequired,
				middleware.AIRateLimit(limiter, middleware.AIKindBatch, aiInterval),
				ctl.Image.StartBatch)
			images.GET("/batch/:id", ctl.Image.GetBatch)
			images.GET("/batch/:id/:productId", ctl.Image.GetBatchProduct)
		}

		// 目录助手
		api.POST("/chat",
			middleware.AIRateLimit(limiter, middleware.AIKindChat, aiInterval),
			ctl.Assistant.Chat)

		ai := api.Group("/ai")
		{
			ai.GET("/logs", ctl.Assistant.GetLogs)
			ai.GET("/usage", ctl.Assistant.GetUsage)
		}
	}
}
