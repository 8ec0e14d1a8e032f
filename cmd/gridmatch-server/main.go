package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kapu/gridmatch/internal/account"
	"github.com/kapu/gridmatch/internal/admin"
	appcfg "github.com/kapu/gridmatch/internal/config"
	"github.com/kapu/gridmatch/internal/game"
	"github.com/kapu/gridmatch/internal/hub"
	"github.com/kapu/gridmatch/internal/msgcat"
	"github.com/kapu/gridmatch/internal/obslog"
	"github.com/kapu/gridmatch/internal/replay"
	"github.com/kapu/gridmatch/internal/results"
	"github.com/kapu/gridmatch/internal/transport"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := msgcat.New(os.Getenv("MESSAGE_DIR"))
	if err != nil {
		obslog.L().Fatal("message catalog error", zap.Error(err))
	}

	accounts, err := account.Open(cfg.AccountsFile)
	if err != nil {
		obslog.L().Fatal("account store error", zap.Error(err))
	}

	var replays replay.Store
	if cfg.RedisURL != "" {
		replays, err = replay.OpenRedisStore(cfg.RedisURL)
	} else {
		replays, err = replay.OpenFileStore(filepath.Join(cfg.DataDir, "replays"))
	}
	if err != nil {
		obslog.L().Fatal("replay store error", zap.Error(err))
	}
	defer replays.Close()

	var repo *results.Repository
	if cfg.DatabaseURL != "" {
		repo, err = results.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("results repository error", zap.Error(err))
		}
		defer repo.Close()
	}

	events := make(chan transport.Event, 256)
	registry := transport.NewRegistry()

	h := hub.New(hub.Options{
		Events:   events,
		Sender:   registry,
		Accounts: accounts,
		Rooms:    game.NewManager(),
		Replays:  replays,
		Results:  repo,
		Catalog:  cat,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	tcp := transport.NewTCPServer(cfg.ListenAddr, cfg.FrameEncoding, cfg.IdleTimeout, registry, events)
	if err := tcp.Start(); err != nil {
		obslog.L().Fatal("tcp start error", zap.Error(err))
	}

	var ws *transport.WSServer
	if cfg.WSAddr != "" {
		ws = transport.NewWSServer(cfg.WSAddr, cfg.IdleTimeout, registry, events)
		if err := ws.Start(); err != nil {
			obslog.L().Fatal("ws start error", zap.Error(err))
		}
	}

	var adm *admin.Server
	if cfg.AdminAddr != "" {
		adm = admin.NewServer(cfg.AdminAddr, h)
		adm.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutdown")

	if adm != nil {
		_ = adm.Close()
	}
	if ws != nil {
		_ = ws.Close()
	}
	_ = tcp.Close()
	cancel()
}
