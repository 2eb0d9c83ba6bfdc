package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kartikasari/ujianku/config"
	"github.com/kartikasari/ujianku/database"
	_ "github.com/kartikasari/ujianku/docs" // Swagger docs - auto-generated
	"github.com/kartikasari/ujianku/internal/controller/student"
	"github.com/kartikasari/ujianku/internal/controller/teacher"
	"github.com/kartikasari/ujianku/internal/logger"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
	"github.com/kartikasari/ujianku/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Ujianku Exam Engine API
// @version 1.0
// @description Exam delivery and grading engine: randomized question delivery, answer auto-save with retry, multi-type automatic grading, and audited grade adjustments.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		// Repositories layer
		fx.Provide(
			repository.NewExamRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewAnswerRepository,
			repository.NewQueueRepository,
			repository.NewAdjustmentRepository,
		),

		// Services layer
		fx.Provide(
			service.NewRandomizerService,
			service.NewAttemptService,
			service.NewAutoSaveService,
			service.NewGradingService,
			service.NewAdjustmentService,
			service.NewEssayReviewService,
			service.NewAnswerLookup,
		),

		// API controllers layer
		fx.Provide(
			student.NewExamController,
			teacher.NewGradingController,
			teacher.NewAdjustmentController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartQueueDrainer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Role", "X-School-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	examCtrl *student.ExamController,
	gradingCtrl *teacher.GradingController,
	adjustmentCtrl *teacher.AdjustmentController,
) {
	api := router.Group("/api/v1")
	{
		api.GET("/exams/:exam_id/questions", examCtrl.GetRandomizedQuestions)
		api.POST("/exams/:exam_id/attempts", examCtrl.StartAttempt)
		api.GET("/attempts/:attempt_id", examCtrl.GetAttemptDetails)
		api.POST("/attempts/:attempt_id/answers", examCtrl.SaveAnswer)
		api.POST("/attempts/:attempt_id/answers/batch", examCtrl.BatchSaveAnswers)
		api.GET("/attempts/:attempt_id/save-interval", examCtrl.GetSaveInterval)
	}

	teacherAPI := api.Group("/teacher")
	{
		teacherAPI.POST("/attempts/:attempt_id/grade", gradingCtrl.GradeAttempt)
		teacherAPI.POST("/answers/:answer_id/manual-grade", gradingCtrl.ManualGradeEssay)
		teacherAPI.GET("/answers/:answer_id/review-suggestion", gradingCtrl.GetReviewSuggestion)
		teacherAPI.GET("/exams/:exam_id/statistics", gradingCtrl.GetExamStatistics)

		teacherAPI.POST("/exams/:exam_id/adjustments", adjustmentCtrl.ApplyAdjustment)
		teacherAPI.POST("/exams/:exam_id/adjustments/bulk", adjustmentCtrl.BulkApplyAdjustments)
		teacherAPI.POST("/adjustments/:adjustment_id/revert", adjustmentCtrl.RevertAdjustment)
		teacherAPI.GET("/exams/:exam_id/adjustments/statistics", adjustmentCtrl.GetAdjustmentStatistics)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Exam engine server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// StartQueueDrainer runs the background retry processor: it drains queued
// answer saves on a timer and purges entries from abandoned attempts.
func StartQueueDrainer(lc fx.Lifecycle, cfg *config.Config, autoSave service.AutoSaveService) {
	interval := time.Duration(cfg.AutoSave.DrainIntervalSeconds) * time.Second
	purgeAge := time.Duration(cfg.AutoSave.PurgeAgeHours) * time.Hour
	stop := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				purgeTicker := time.NewTicker(time.Hour)
				defer ticker.Stop()
				defer purgeTicker.Stop()
				for {
					select {
					case <-ticker.C:
						if _, err := autoSave.ProcessQueuedAnswers(context.Background(), nil); err != nil {
							log.Error().Err(err).Msg("Queue drain pass failed")
						}
					case <-purgeTicker.C:
						if _, err := autoSave.PurgeQueue(context.Background(), purgeAge); err != nil {
							log.Error().Err(err).Msg("Queue purge failed")
						}
					case <-stop:
						return
					}
				}
			}()
			log.Info().Dur("interval", interval).Msg("Answer retry drainer started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Exam{},
		&model.QuestionGroup{},
		&model.Question{},
		&model.ExamAttempt{},
		&model.Answer{},
		&model.QueuedAnswer{},
		&model.GradeAdjustment{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
