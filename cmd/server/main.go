package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coupon-scheduler/internal/batch"
	"coupon-scheduler/internal/cache"
	"coupon-scheduler/internal/handler"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"
	"coupon-scheduler/internal/repository/memory"
	"coupon-scheduler/internal/service"
	"coupon-scheduler/pkg/config"
	"coupon-scheduler/pkg/database"

	"github.com/gin-gonic/gin"
)

// stores is the repository set the services run on.
type stores struct {
	tx            repository.Transactor
	coupons       repository.CouponRepository
	schedules     repository.ScheduleRepository
	issues        repository.IssueRepository
	acquisitions  repository.AcquisitionRepository
	notifications repository.NotificationRepository
	operators     repository.OperatorRepository
	close         func(ctx context.Context) error
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	loc, _ := cfg.Shop.Location()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()

	// Active-issue cache is optional
	var activeIssues cache.ActiveIssueCache = cache.Noop{}
	if cfg.Redis.URL != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Printf("[CACHE] Redis unavailable, serving active issues from storage: %v", err)
		} else {
			defer rdb.Close()
			activeIssues = cache.NewRedisActiveIssueCache(rdb, cfg.Redis.TTL)
			log.Println("[CACHE] Connected to Redis")
		}
	}

	// Initialize services
	authSvc := service.NewAuthService(st.operators, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	issueSvc := service.NewIssueService(st.tx, st.coupons, st.issues, st.acquisitions, st.notifications, activeIssues)
	scheduleSvc := service.NewScheduleService(st.schedules, st.coupons, loc)
	svc := handler.Services{
		Auth:          authSvc,
		Coupons:       service.NewCouponService(st.coupons, st.schedules, st.issues),
		Issues:        issueSvc,
		Schedules:     scheduleSvc,
		Notifications: service.NewNotificationService(st.notifications),
		Dashboard:     service.NewDashboardService(st.coupons, st.schedules, st.issues, st.acquisitions, st.notifications, loc),
	}

	err = authSvc.Bootstrap(ctx, service.BootstrapParams{
		ShopName: cfg.Admin.ShopName,
		ShopSlug: cfg.Admin.ShopSlug,
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		log.Fatalf("Failed to bootstrap operator: %v", err)
	}

	// Materialize schedules on a cron and right after every save
	materializer := batch.NewMaterializer(st.schedules, st.coupons, issueSvc, loc, cfg.Batch.LookaheadDays)
	scheduleSvc.OnSave(func(ctx context.Context, sched *model.Schedule) {
		if _, err := materializer.RunSchedule(ctx, sched); err != nil {
			log.Printf("[BATCH] Schedule %s not materialized on save: %v", sched.ID.Hex(), err)
		}
	})
	if cfg.Batch.Enabled {
		if err := materializer.Start(cfg.Batch.Spec); err != nil {
			log.Fatalf("Failed to start batch: %v", err)
		}
		go func() {
			runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := materializer.RunOnce(runCtx); err != nil {
				log.Printf("[BATCH] Startup run failed: %v", err)
			}
		}()
	}

	gin.SetMode(config.GetEnv(gin.EnvGinMode, gin.ReleaseMode))
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler.SetupRouter(svc, cfg.Server.CORSOrigins),
	}

	go func() {
		log.Printf("Server starting on port %s (storage=%s, tz=%s)", cfg.Server.Port, cfg.Server.Storage, loc)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[SHUTDOWN] Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SHUTDOWN] Server forced to shutdown: %v", err)
	}
	if err := materializer.Stop(shutdownCtx); err != nil {
		log.Printf("[SHUTDOWN] Batch did not finish: %v", err)
	}

	log.Println("[SHUTDOWN] Server exited")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Server.Storage == "memory" {
		log.Println("Using in-memory storage; data is lost on exit")
		m := memory.NewStore()
		return &stores{
			tx:            m,
			coupons:       m.Coupons(),
			schedules:     m.Schedules(),
			issues:        m.Issues(),
			acquisitions:  m.Acquisitions(),
			notifications: m.Notifications(),
			operators:     m.Operators(),
			close:         func(context.Context) error { return nil },
		}, nil
	}

	mongoDB, err := database.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB successfully")

	return &stores{
		tx:            database.NewUnitOfWork(mongoDB.Client),
		coupons:       repository.NewCouponRepository(mongoDB.Database),
		schedules:     repository.NewScheduleRepository(mongoDB.Database),
		issues:        repository.NewIssueRepository(mongoDB.Database),
		acquisitions:  repository.NewAcquisitionRepository(mongoDB.Database),
		notifications: repository.NewNotificationRepository(mongoDB.Database),
		operators:     repository.NewOperatorRepository(mongoDB.Database),
		close:         mongoDB.Disconnect,
	}, nil
}
