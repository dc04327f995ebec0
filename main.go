package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"broadside/arena"
	"broadside/logging"
	"broadside/server"
)

// Broadside 入口：启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	var (
		addr      string
		tick      time.Duration
		buffer    time.Duration
		arenaPath string
		logCfg    = logging.DefaultConfig("server.log")
	)
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.DurationVar(&tick, "tick", 100*time.Millisecond, "world tick period")
	flag.DurationVar(&buffer, "buffer", 140*time.Millisecond, "client buffer delay advertised in /admin/config")
	flag.StringVar(&arenaPath, "arena", "", "Tiled TMX map with a ShipSpawn object layer (default: empty 2000x2000 sea)")
	flag.StringVar(&logCfg.Path, "log", logCfg.Path, "log file")
	flag.StringVar(&logCfg.Level, "log-level", logCfg.Level, "log level: debug, info, warn, error")
	flag.BoolVar(&logCfg.JSON, "log-json", false, "write JSON log lines")
	flag.BoolVar(&logCfg.Stderr, "log-stderr", false, "also log to stderr")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	defer logging.Sync()
	log := logging.Named("main")

	cfg := server.DefaultRoomConfig()
	cfg.Tuning.TickMs = tick.Milliseconds()
	cfg.Tuning.BufferDelayMs = buffer.Milliseconds()
	if err := cfg.Tuning.Validate(); err != nil {
		log.Fatalw("invalid flags", "err", err)
	}
	if arenaPath != "" {
		a, err := arena.Load(os.DirFS(filepath.Dir(arenaPath)), filepath.Base(arenaPath))
		if err != nil {
			log.Fatalw("load arena", "path", arenaPath, "err", err)
		}
		cfg.Arena = a
		log.Infow("arena loaded", "path", arenaPath, "width", a.Width, "height", a.Height, "spawns", len(a.Spawns))
	}

	rm := server.NewRoomManager(cfg)
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom(server.DefaultRoomID)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rm.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", rm.HandleAdminConfig)
	mux.HandleFunc("/metrics", rm.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("broadside listening", "addr", addr, "tick", tick, "buffer", cfg.Tuning.BufferDelay(), "maxHits", cfg.Tuning.MaxHits)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("listen", "err", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}
	rm.StopAll()
}
