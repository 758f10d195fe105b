package app

import (
	"database/sql"

	"go-presence/internal/attendance"
	"go-presence/internal/employee"
	"go-presence/internal/messaging/kafka"
	"go-presence/internal/rbac"
	"go-presence/internal/shared/config"
	"go-presence/internal/shared/database"
	"go-presence/internal/shared/keylock"
	"go-presence/internal/shift"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	logger := zap.L()

	fallbackPolicy, err := shift.PolicyFromDefaults(cfg.Shift)
	if err != nil {
		return err
	}

	// --- Repositories ---
	attendanceRepo := attendance.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	shiftRepo := shift.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := rbac.NewEnforcer(cfg.RBACPolicyPath)
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(enforcer)

	// --- Services ---
	attendanceService := attendance.NewService(
		database.NewTxRunner(db),
		attendanceRepo,
		outboxRepo,
		employee.NewDirectory(employeeRepo, rdb),
		shift.NewProvider(shiftRepo, fallbackPolicy),
		keylock.NewRedisLocker(rdb, cfg.Punch.LockTTL),
		attendance.Options{WebCooldown: cfg.Punch.WebCooldown},
	)

	// --- Handlers ---
	attendanceHandler := attendance.NewHandler(attendanceService)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	routeCfg := attendance.RouteConfig{
		JWTSecret:   cfg.JWTSecret,
		DeviceRate:  rate.Limit(cfg.Punch.DeviceRate),
		DeviceBurst: cfg.Punch.DeviceBurst,
		UserRate:    rate.Limit(cfg.Punch.WebRate),
		UserBurst:   cfg.Punch.WebBurst,
		Logger:      logger.Named("http"),
	}

	attendance.RegisterDeviceRoutes(router, attendanceHandler, routeCfg)

	api := router.Group("/api/v1")
	{
		attendance.RegisterRoutes(api, attendanceHandler, rbacService, rdb, routeCfg)
		rbac.RegisterRoutes(api, rbacHandler, cfg.JWTSecret)
	}

	return nil
}
