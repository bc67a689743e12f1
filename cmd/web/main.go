package main

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"slopcel/custom/admin"
	"slopcel/custom/auth"
	"slopcel/custom/checkout"
	"slopcel/custom/content"
	"slopcel/custom/hof"
	"slopcel/custom/provider"
	"slopcel/custom/ratelimit"
	"slopcel/custom/util"
	"slopcel/model"
)

func main() {
	serverConfig := util.ServerConfig{}
	serverConfig.GetConf("./config/config.yaml")
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		serverConfig.Postgres.Host, serverConfig.Postgres.Port, serverConfig.Postgres.Username, serverConfig.Postgres.Password, serverConfig.Postgres.Database)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect database" + err.Error())
	}
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	// Auto migrate table schemas
	err = db.AutoMigrate(model.ALL_SLOPCEL_TABLES...)
	if err != nil {
		panic("failed to migrate database" + err.Error())
	}

	// Provider adapters
	stripeAdapter := provider.NewStripeAdapter(serverConfig.Stripe, serverConfig.Live_mode)
	paypalAdapter, err := provider.NewPaypalAdapter(serverConfig.Paypal, serverConfig.Live_mode)
	if err != nil {
		panic("failed to initialize paypal client" + err.Error())
	}
	dodoAdapter, err := provider.NewDodoAdapter(serverConfig.Dodo, serverConfig.Live_mode)
	if err != nil {
		panic("failed to initialize dodo client" + err.Error())
	}
	adapters := []provider.Adapter{stripeAdapter, paypalAdapter, dodoAdapter}

	// Initialize handler contexts
	allocator := hof.NewAllocator(db)
	checkoutCtx := checkout.HandlerContext{}
	checkoutCtx.InitialHandlerContext(db, adapters, allocator, serverConfig.Site_url)
	adminCtx := admin.HandlerContext{}
	adminCtx.InitialHandlerContext(db, allocator)
	contentCtx := content.HandlerContext{}
	contentCtx.InitialHandlerContext(db)

	limiter := ratelimit.NewLimiter()
	optionalAuth := auth.Middleware(serverConfig.Jwt_secret, false)
	requiredAuth := auth.Middleware(serverConfig.Jwt_secret, true)

	if serverConfig.Live_mode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Public checkout flow. Completion takes an optional session so a logged
	// in buyer gets linked immediately.
	router.POST("/api/checkout/create",
		ratelimit.Middleware(limiter, "checkout", ratelimit.Strict), optionalAuth, checkoutCtx.CreateCheckout)
	router.GET("/api/checkout/session-info",
		ratelimit.Middleware(limiter, "session-info", ratelimit.Relaxed), checkoutCtx.SessionInfo)
	router.POST("/api/checkout/complete",
		ratelimit.Middleware(limiter, "complete", ratelimit.Standard), optionalAuth, checkoutCtx.CompleteCheckout)
	router.POST("/api/webhooks/:provider", checkoutCtx.Webhook)

	// Public reads
	router.GET("/api/tiers",
		ratelimit.Middleware(limiter, "tiers", ratelimit.Relaxed), checkoutCtx.Tiers)
	router.GET("/api/hall-of-fame", checkoutCtx.HallOfFame)
	router.GET("/api/projects", contentCtx.ListProjects)
	router.GET("/api/ideas", contentCtx.ListIdeas)
	router.GET("/api/idea-categories", contentCtx.ListIdeaCategories)
	router.GET("/api/blog", contentCtx.ListBlogPosts)
	router.GET("/api/blog/:slug", contentCtx.GetBlogPost)

	// Authenticated order surface
	orders := router.Group("/api/orders", requiredAuth)
	orders.POST("/link-by-email", checkoutCtx.LinkByEmail)
	orders.GET("/mine", checkoutCtx.MyOrders)
	orders.POST("/:id/details", checkoutCtx.SubmitOrderDetails)

	// Admin surface
	adminGroup := router.Group("/api/admin", requiredAuth, auth.AdminOnly(serverConfig.Admin_emails))
	adminGroup.GET("/orders", adminCtx.ListOrders)
	adminGroup.PATCH("/orders/:id/status", adminCtx.UpdateOrderStatus)
	adminGroup.POST("/orders/:id/project", adminCtx.AssignProject)
	adminGroup.GET("/users", adminCtx.ListUsers)
	adminGroup.GET("/projects", contentCtx.AdminListProjects)
	adminGroup.POST("/projects", contentCtx.CreateProject)
	adminGroup.PUT("/projects/:id", contentCtx.UpdateProject)
	adminGroup.DELETE("/projects/:id", contentCtx.DeleteProject)
	adminGroup.POST("/idea-categories", contentCtx.CreateIdeaCategory)
	adminGroup.DELETE("/idea-categories/:id", contentCtx.DeleteIdeaCategory)
	adminGroup.POST("/ideas", contentCtx.CreateIdea)
	adminGroup.PUT("/ideas/:id", contentCtx.UpdateIdea)
	adminGroup.DELETE("/ideas/:id", contentCtx.DeleteIdea)
	adminGroup.POST("/blog", contentCtx.CreateBlogPost)
	adminGroup.PUT("/blog/:id", contentCtx.UpdateBlogPost)
	adminGroup.DELETE("/blog/:id", contentCtx.DeleteBlogPost)

	rlog.Infof("Listening on port %d (live mode: %t)", serverConfig.Server_port, serverConfig.Live_mode)
	if err := router.Run(fmt.Sprintf("0.0.0.0:%d", serverConfig.Server_port)); err != nil {
		rlog.Criticalf("Server exited: %s", err.Error())
	}
}
