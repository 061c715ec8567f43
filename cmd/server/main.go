package main

import (
	"context"
	"log"
	"os"

	"tabletop-backend/internal/config"
	"tabletop-backend/internal/database"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/handler"
	"tabletop-backend/internal/presence"
	"tabletop-backend/internal/server"
	"tabletop-backend/internal/storage"
)

func main() {
	// 설정 로드
	cfg := config.Load()

	// 데이터베이스 연결
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}

	// Ping 테스트
	if err := database.Ping(db); err != nil {
		log.Fatalf("❌ Database ping failed: %v", err)
	}

	// 저장 포맷 버전 확인 (맞지 않으면 아무것도 읽지 않고 종료)
	if err := database.Prepare(db); err != nil {
		log.Printf("❌ Save check failed: %v", err)
		_ = database.Close(db)
		os.Exit(database.ExitCode(err))
	}
	defer database.Close(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := database.NewStore(db)

	// 사용자/방 복원
	directory := game.NewDirectory()
	users, err := store.ListUsers(ctx)
	if err != nil {
		log.Fatalf("❌ Loading users failed: %v", err)
	}
	for i := range users {
		directory.Put(users[i].Name, database.UserOptions(&users[i]))
	}
	rooms, err := store.LoadRooms(ctx)
	if err != nil {
		log.Fatalf("❌ Loading rooms failed: %v", err)
	}
	log.Printf("✅ Save loaded (%d users, %d rooms)", len(users), len(rooms))

	// 에셋 카탈로그 (S3 버킷이 설정되어 있으면 S3)
	var assets game.AssetCatalog = storage.NewLocalCatalog(cfg.Assets.Dir)
	if cfg.S3.BucketName != "" {
		s3Catalog, err := storage.NewS3Catalog(ctx, cfg.S3)
		if err != nil {
			log.Printf("⚠️ S3 catalog initialization failed: %v (using %s)", err, cfg.Assets.Dir)
		} else {
			assets = s3Catalog
			log.Printf("✅ S3 asset catalog (bucket: %s)", cfg.S3.BucketName)
		}
	}

	// 접속 현황 (선택적)
	var presenceManager *presence.Manager
	var gamePresence game.Presence
	var pinger handler.Pinger
	if cfg.Redis.Addr != "" {
		presenceManager = presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := presenceManager.Health(ctx); err != nil {
			log.Printf("⚠️ Redis unreachable at %s: %v (presence disabled)", cfg.Redis.Addr, err)
			_ = presenceManager.Close()
			presenceManager = nil
		} else {
			if err := presenceManager.Reset(ctx); err != nil {
				log.Printf("⚠️ [Presence] reset failed: %v", err)
			}
			gamePresence = presenceManager
			pinger = presenceManager
			log.Printf("✅ Presence tracking via Redis (%s)", cfg.Redis.Addr)
		}
	} else {
		log.Println("ℹ️ Presence tracking not configured")
	}

	// 비동기 저장 워커
	saver := game.NewSaver(store, cfg.Save.QueueSize, cfg.Save.Timeout)
	go saver.Run(ctx)

	hub := game.NewHub(game.Options{
		Users:    directory,
		Assets:   assets,
		Saves:    saver,
		Presence: gamePresence,
	})
	hub.LoadRooms(rooms)
	go game.RunPeriodic(ctx, cfg.Save.Interval, hub, saver)

	// 서버 생성 및 설정
	srv := server.New(cfg, server.Deps{
		DB:       db,
		Hub:      hub,
		Users:    store,
		Presence: pinger,
	})
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작 (종료 시 대기 중인 저장을 끝내고 전체 저장)
	err = srv.Start(func(shutdownCtx context.Context) {
		cancel()
		<-saver.Done()
		if err := game.Flush(shutdownCtx, hub, store); err != nil {
			log.Printf("❌ Final save incomplete: %v", err)
		} else {
			log.Println("💾 All rooms saved")
		}
		if presenceManager != nil {
			_ = presenceManager.Close()
		}
	})
	if err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
