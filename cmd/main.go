package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/api"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/cache"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/config"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/events"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/httpclient"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/logger"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/projects"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/repository"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/service"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	mongoClient, err := repository.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		zl.Fatalw("mongo connect", "err", err)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	hc := httpclient.NewClient(httpclient.ClientConfig{})
	idc := identity.NewClient(hc, cfg.Identity.BaseURL, cfg.Identity.HSSecret)
	pdc := projects.NewClient(hc, cfg.Projects.BaseURL)

	mirror := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl)
	defer mirror.Close()

	hub := ws.NewHub(ws.NewMemoryRegistry(), mirror, zl)

	chat := service.New(
		repository.NewConversationRepo(db),
		repository.NewMessageRepo(db),
		pdc,
		idc,
		cache.NewUnreadCache(rdb, cfg.Redis.Prefix),
		hub,
		zl,
	)

	timeouts := ws.Timeouts{
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		ReadDeadline:  cfg.ReadDeadline,
		MaxMessageLen: cfg.WS.MaxMessageSizeBytes,
	}
	wsrv := ws.NewServer(hub, idc, chat, timeouts, zl)
	app := api.NewServer(chat, wsrv, idc)

	errs := make(chan error, 1)
	go func() {
		addr := ":" + cfg.App.Port
		zl.Infow("starting messaging core", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zl.Fatalw("server error", "err", err)
	case s := <-sig:
		zl.Infow("signal received", "signal", s.String())
	}

	if err := app.Shutdown(); err != nil {
		zl.Warnw("fiber shutdown", "err", err)
	}
	zl.Info("shutdown complete")
}
