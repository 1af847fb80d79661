package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reader_study_backend/internal/config"
	"reader_study_backend/internal/controller"
	"reader_study_backend/internal/repository"
	"reader_study_backend/internal/service"
	"reader_study_backend/pkg/database"
	"reader_study_backend/pkg/logger"
	"reader_study_backend/pkg/monitoring"
	"reader_study_backend/pkg/security"
	"reader_study_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user       *repository.UserRepository
	term       *repository.DiagnosisTermRepository
	caseRepo   *repository.CaseRepository
	assignment *repository.AssignmentRepository
	assessment *repository.AssessmentRepository
	feedback   *repository.BlockFeedbackRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	vocabulary *service.VocabularyService
	game       *service.GameService
	assessment *service.AssessmentService
	report     *service.ReportService
	caseSvc    *service.CaseService
}

type controllers struct {
	auth       *controller.AuthController
	game       *controller.GameController
	assessment *controller.AssessmentController
	caseCtrl   *controller.CaseController
	term       *controller.DiagnosisTermController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		term:       repository.NewDiagnosisTermRepository(db),
		caseRepo:   repository.NewCaseRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		feedback:   repository.NewBlockFeedbackRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.vocabulary = service.NewVocabularyService(repos.term, rdb)
	s.game = service.NewGameService(repos.assignment, repos.caseRepo, repos.assessment, repos.feedback, cfg, db)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.assignment, s.vocabulary, s.game, cfg, db)
	s.report = service.NewReportService(repos.feedback, repos.assignment, repos.assessment, repos.caseRepo, s.game)
	s.caseSvc = service.NewCaseService(repos.caseRepo, repos.assignment, repos.term, s.storage)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		game:       controller.NewGameController(s.game, s.report),
		assessment: controller.NewAssessmentController(s.assessment),
		caseCtrl:   controller.NewCaseController(s.caseSvc),
		term:       controller.NewDiagnosisTermController(s.vocabulary),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("reader-study", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
