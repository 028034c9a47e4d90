package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"relay-chat/config"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/presence"
	"relay-chat/internal/domain/user"
	"relay-chat/internal/engine"
	"relay-chat/internal/events"
	"relay-chat/internal/handler"
	"relay-chat/internal/redis"
	"relay-chat/internal/repository"
	"relay-chat/internal/server"
	"relay-chat/internal/services"
	"relay-chat/internal/storage"
	"relay-chat/internal/websocket"
	"relay-chat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(log)
	defer log.Sync()

	store, err := repository.Open(cfg.Store.Path)
	if err != nil {
		log.Errorf("open store: %s", err.Error())
		return
	}
	defer store.Close()

	messageRepo := repository.NewMessageRepository(store)
	typingRepo := repository.NewTypingRepository(store)
	userRepo := repository.NewUserRepository(store)

	bus := events.NewInProcBus()
	eng := engine.New(bus)

	messageSvc := services.NewMessageService(messageRepo, bus)
	typingSvc := services.NewTypingService(typingRepo, bus)
	authSvc := services.NewAuthService(userRepo, bus, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	pubs := engine.NewPublications(messageRepo, userRepo, typingSvc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var limiter *redis.RateLimiter
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Errorf("redis connect: %s", err.Error())
			return
		}
		defer client.Close()

		limiter = redis.NewRateLimiter(client, redis.DefaultRateLimitConfig())

		bridge := events.NewRedisBridge(client, bus)
		bridge.RegisterDecoder(events.CollectionMessages, func(data []byte) (events.Doc, error) {
			var m message.Message
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, err
			}
			return &m, nil
		})
		bridge.RegisterDecoder(events.CollectionTyping, func(data []byte) (events.Doc, error) {
			var t presence.TypingIndicator
			if err := json.Unmarshal(data, &t); err != nil {
				return nil, err
			}
			return &t, nil
		})
		bridge.RegisterDecoder(events.CollectionUsers, func(data []byte) (events.Doc, error) {
			var u user.User
			if err := json.Unmarshal(data, &u); err != nil {
				return nil, err
			}
			return &u, nil
		})
		if err := bridge.Start(); err != nil {
			log.Errorf("redis bridge: %s", err.Error())
			return
		}
		defer bridge.Stop()
		log.Infof("redis bridge and rate limiter enabled (%s)", cfg.Redis.Addr)
	}

	var uploadHandler *handler.UploadHandler
	if cfg.S3.Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3.Region,
			Bucket:     cfg.S3.Bucket,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			Endpoint:   cfg.S3.Endpoint,
			PresignTTL: cfg.S3.PresignTTL,
		})
		if err != nil {
			log.Errorf("s3 client: %s", err.Error())
			return
		}
		uploadHandler = handler.NewUploadHandler(services.NewUploadService(s3Client))
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	router := server.NewRouter(server.Deps{
		Auth:     authSvc,
		Messages: handler.NewMessageHandler(messageSvc),
		Typing:   handler.NewTypingHandler(typingSvc),
		AuthH:    handler.NewAuthHandler(authSvc),
		Uploads:  uploadHandler,
		WS:       websocket.NewHandler(authSvc, hub, eng, pubs),
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Infof("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server: %s", err.Error())
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %s", err.Error())
	}
	log.Infof("server stopped")
}
