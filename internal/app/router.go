package app

import (
	"reader_study_backend/docs"
	"reader_study_backend/internal/config"
	"reader_study_backend/internal/middleware"
	"reader_study_backend/internal/model"
	"reader_study_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 登录后路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.Profile)

		game := authGroup.Group("/game")
		{
			game.POST("/start", c.game.StartBlock)
			game.GET("/active", c.game.ActiveBlock)
			game.POST("/next", c.game.NextAssignment)
			game.GET("/progress", c.game.Progress)
			// latest 必须先于参数路由注册
			game.GET("/report/latest", c.game.LatestReport)
			game.GET("/report/:blockIndex", c.game.Report)
			game.GET("/reports", c.game.ListReports)
			game.GET("/report-available/:blockIndex", c.game.ReportAvailable)
		}

		authGroup.POST("/assessments", c.assessment.Submit)
		authGroup.GET("/assessments/assignment/:id", c.assessment.ForAssignment)

		authGroup.GET("/cases/:id", c.caseCtrl.GetCase)

		authGroup.GET("/diagnosis-terms", c.term.ListTerms)
		authGroup.GET("/diagnosis-terms/suggest", c.term.Suggest)
		authGroup.GET("/diagnosis-terms/:id/synonyms", c.term.ListSynonyms)
	}

	// 管理端路由
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/cases", c.caseCtrl.CreateCase)
		admin.POST("/cases/:id/images", c.caseCtrl.UploadImage)
		admin.POST("/ai-outputs", c.caseCtrl.AddAIOutput)
		admin.POST("/diagnosis-terms", c.term.CreateTerm)
		admin.POST("/diagnosis-terms/:id/synonyms", c.term.CreateSynonym)
	}
}
