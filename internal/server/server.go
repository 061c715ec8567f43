package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/config"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/handler"
	"tabletop-backend/internal/middleware"
)

// Deps 서버가 사용하는 외부 구성 요소
type Deps struct {
	DB       *gorm.DB
	Hub      *game.Hub
	Users    handler.UserStore
	Presence handler.Pinger // nil 이면 비활성
}

// Server Fiber 서버 래퍼
type Server struct {
	app            *fiber.App
	cfg            *config.Config
	jwtManager     *auth.JWTManager
	roomMiddleware *middleware.RoomMiddleware
	authHandler    *handler.AuthHandler
	roomHandler    *handler.RoomHandler
	gameWSHandler  *handler.GameWSHandler
	healthHandler  *handler.HealthHandler
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Tabletop Realtime Server",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384, // 16KB - 큰 헤더 허용
		WriteBufferSize:       16384,
		BodyLimit:             4 * 1024 * 1024,
		DisableStartupMessage: false,
	})

	// Auth 초기화
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	googleAuth := auth.NewGoogleAuthenticator(cfg.Auth.GoogleClientID)

	return &Server{
		app:            app,
		cfg:            cfg,
		jwtManager:     jwtManager,
		roomMiddleware: middleware.NewRoomMiddleware(deps.Hub),
		authHandler:    handler.NewAuthHandler(deps.Users, deps.Hub.Users(), jwtManager, googleAuth, cfg.Auth.SecureCookie),
		roomHandler:    handler.NewRoomHandler(deps.Hub),
		gameWSHandler:  handler.NewGameWSHandler(deps.Hub, jwtManager, cfg.WebSocket),
		healthHandler:  handler.NewHealthHandler(deps.DB, deps.Presence, deps.Hub.Sessions()),
	}
}

// App 테스트용 Fiber 앱
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// 로컬 에셋 파일 제공
	s.app.Static("/static/assets", s.cfg.Assets.Dir)
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (인증 엔드포인트용 - Brute Force 방지)
	authLimiter := limiter.New(limiter.Config{
		Max:        10,              // 최대 10회
		Expiration: 1 * time.Minute, // 1분당
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Auth 라우트 그룹
	authGroup := s.app.Group("/auth")
	authGroup.Post("/register", authLimiter, s.authHandler.Register)
	authGroup.Post("/login", authLimiter, s.authHandler.Login)
	authGroup.Post("/google", authLimiter, s.authHandler.GoogleLogin)
	authGroup.Post("/logout", auth.AuthMiddleware(s.jwtManager), s.authHandler.Logout)
	authGroup.Get("/me", auth.AuthMiddleware(s.jwtManager), s.authHandler.GetMe)

	// Room 라우트 그룹 (인증 필요)
	roomGroup := s.app.Group("/api/rooms", auth.AuthMiddleware(s.jwtManager))
	roomGroup.Get("", s.roomHandler.ListRooms)
	roomGroup.Post("", s.roomHandler.CreateRoom)
	roomGroup.Get("/:creator/:room", s.roomMiddleware.RequireMembership(), s.roomHandler.GetRoom)
	roomGroup.Get("/:creator/:room/invite", s.roomMiddleware.RequireOwnership(), s.roomHandler.GetInvite)

	// 초대 링크 (로그인 안 되어 있으면 로그인 페이지로)
	s.app.Get("/invite/:code", auth.OptionalAuthMiddleware(s.jwtManager), s.roomHandler.ClaimInvite)

	// WebSocket 게임 엔드포인트
	s.app.Get("/ws/game/:creator/:room", s.gameWSHandler.Upgrade, s.gameWSHandler.Handler())
}

// Start 서버 시작 (Graceful Shutdown 지원)
//
// 종료 신호를 받으면 새 연결을 막고 onShutdown 을 호출한 뒤 반환한다.
func (s *Server) Start(onShutdown func(ctx context.Context)) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if onShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			onShutdown(ctx)
		}
	}()

	log.Printf("🚀 Tabletop server starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/game/:creator/:room", s.cfg.Server.Port)

	if err := s.app.Listen(s.cfg.Server.Port); err != nil {
		return err
	}
	<-stopped
	return nil
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
