package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"goaltrail/internal/api/auth"
	"goaltrail/internal/api/middleware"
	"goaltrail/internal/api/ownership"
	"goaltrail/internal/api/token"
	"goaltrail/internal/config"
	"goaltrail/internal/model"
	"goaltrail/internal/pkg/metrics"
	"goaltrail/internal/pkg/notify"
	"goaltrail/internal/pkg/revoke"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端（令牌吊销名单）、所有权解析器以及 Gin 路由引擎。
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	rdb      *redis.Client
	router   *gin.Engine
	tokens   *token.Service
	denylist *revoke.Denylist
	resolver *ownership.Resolver
	auth     *auth.Handler
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化令牌服务、所有权解析器与 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Goal{}, &model.Task{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	tokens := token.NewService(cfg.Security.JWTSecret, cfg.App.TokenTTL)
	denylist := revoke.NewDenylist(rdb)
	mailer := notify.NewEmailNotifier(&cfg.Email, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		rdb:      rdb,
		router:   r,
		tokens:   tokens,
		denylist: denylist,
		resolver: ownership.NewResolver(db),
		auth:     auth.NewHandler(db, tokens, denylist, mailer, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与 Redis 连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api/v1")

	api.POST("/users/signup", s.auth.Signup)
	api.POST("/users/signin", s.auth.Signin)

	authed := api.Group("/")
	authed.Use(middleware.AuthMiddleware(s.tokens, s.denylist))

	authed.GET("/users/", s.handleGetProfile)
	authed.POST("/users/signout", s.auth.Signout)

	authed.POST("/goals/", s.handleCreateGoal)
	authed.GET("/goals/", s.handleListGoals)
	authed.GET("/goals/:goalid", s.handleGetGoal)
	authed.PUT("/goals/:goalid", s.handleUpdateGoal)
	authed.DELETE("/goals/:goalid", s.handleDeleteGoal)

	authed.POST("/tasks/:goalid", s.handleCreateTask)
	authed.GET("/tasks/:goalid", s.handleListTasks)
	authed.GET("/tasks/:goalid/:taskid", s.handleGetTask)
	authed.PUT("/tasks/:goalid/:taskid", s.handleUpdateTask)
	authed.DELETE("/tasks/:goalid/:taskid", s.handleDeleteTask)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGetProfile 返回当前用户的资料。
//
// GET /users/
//
// 响应保持数组形状，沿用既有客户端的约定。
func (s *Server) handleGetProfile(c *gin.Context) {
	userID := middleware.UserID(c)

	var user model.User
	err := s.db.WithContext(c.Request.Context()).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		s.logger.Error("load profile failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, []model.User{user})
}
