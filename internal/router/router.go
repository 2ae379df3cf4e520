package router

import (
	"stockpos/internal/config"
	"stockpos/internal/handler"
	"stockpos/internal/infra"
	"stockpos/internal/middleware"
	"stockpos/internal/repository"
	"stockpos/internal/service"
	"stockpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: the dashboard is then never cached and no low stock jobs
// are queued.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.IsProduction(), cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute))

	// ── Infrastructure ───────────────────────────────────────────────────────
	var cache *infra.Cache
	var notifier service.LowStockNotifier
	if rdb != nil {
		cache = infra.NewCache(rdb)
		notifier = worker.NewDispatcher(rdb)
	}
	policy := service.SalePolicy{
		LowStockThreshold: cfg.LowStockThreshold,
		RequireActive:     cfg.SaleRequireActive,
		PageSize:          cfg.PageSize,
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	productSvc := service.NewProductService(tx, productRepo, categoryRepo, movementRepo, cache, policy)
	categorySvc := service.NewCategoryService(categoryRepo)
	saleSvc := service.NewSaleService(tx, productRepo, saleRepo, movementRepo, cache, notifier, policy)
	inventorySvc := service.NewInventoryService(tx, productRepo, movementRepo, cache, policy)
	reportSvc := service.NewReportService(productRepo, saleRepo, cache, cfg.DashboardCacheTTL(), policy)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc, cfg.CookieSecure)
	productsH := handler.NewProductsHandler(productSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	salesH := handler.NewSalesHandler(saleSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", middleware.LoginRateLimiter(), authH.Register)
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/logout", authH.Logout)
	}

	// Protected routes: every authenticated user may use every endpoint.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/auth/me", authH.Me)
		v1.GET("/dashboard", reportsH.Dashboard)

		products := v1.Group("/products")
		{
			products.GET("", productsH.List)
			products.POST("", productsH.Create)
			products.GET("/:id", productsH.Get)
			products.PUT("/:id", productsH.Update)
			products.DELETE("/:id", productsH.Delete)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", categoriesH.List)
			categories.POST("", categoriesH.Create)
			categories.PUT("/:id", categoriesH.Update)
			categories.DELETE("/:id", categoriesH.Delete)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", salesH.Create)
			sales.GET("", salesH.History)
			sales.GET("/products", salesH.SellableProducts)
		}

		inventory := v1.Group("/inventory")
		{
			inventory.POST("/products/:id/restock", inventoryH.Restock)
			inventory.GET("/movements", inventoryH.Movements)
			inventory.GET("/low-stock", inventoryH.LowStock)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/sales", reportsH.SalesReport)
			reports.GET("/sales.pdf", reportsH.ExportPDF)
			reports.GET("/sales.xlsx", reportsH.ExportXLSX)
		}

		// Dashboard chart feeds
		api := v1.Group("/api")
		{
			api.GET("/sales_data/:period", reportsH.SalesData)
			api.GET("/top_products", reportsH.TopProducts)
			api.GET("/recent_sales", reportsH.RecentSales)
			api.GET("/low_stock", inventoryH.LowStockTop)
		}

		v1.GET("/ops/alerts/dead-letters", handler.DeadLetters(rdb))
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
