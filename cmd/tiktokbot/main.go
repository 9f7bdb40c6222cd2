package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/dommurphy155/tiktokbot2/internal/adapters/browser"
	"github.com/dommurphy155/tiktokbot2/internal/adapters/sysmon"
	"github.com/dommurphy155/tiktokbot2/internal/adapters/telegram"
	"github.com/dommurphy155/tiktokbot2/internal/adapters/ytdlp"
	"github.com/dommurphy155/tiktokbot2/internal/config"
	"github.com/dommurphy155/tiktokbot2/internal/cookies"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
	"github.com/dommurphy155/tiktokbot2/internal/pipeline"
	"github.com/dommurphy155/tiktokbot2/internal/service"
)

func main() {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", "error", err)
	}

	fs := afero.NewOsFs()
	store, err := pipeline.NewArtifactStore(fs, cfg.OutputDir, logger)
	if err != nil {
		logger.Fatal("failed to prepare output directory", "dir", cfg.OutputDir, "error", err)
	}

	// yt-dlp wants the cookies in Netscape form; convert the JSON export
	// once at startup.
	if err := cookies.Convert(fs, cfg.CookiesFile, cfg.NetscapeCookiesFile); err != nil {
		logger.Fatal("cookie conversion failed", "error", err)
	}

	state := pipeline.NewState(store, pipeline.Options{
		QueueCapacity:   cfg.QueueCapacity,
		CacheCapacity:   cfg.CacheCapacity,
		HistoryCapacity: cfg.HistoryCapacity,
		SeenWindow:      cfg.SeenWindow,
		DiskQuotaBytes:  cfg.DiskQuotaBytes(),
		ReserveBytes:    cfg.DiskReserveBytes(),
		FreeSpace:       sysmon.FreeBytes,
	}, logger)

	recycler := pipeline.NewRecycler(cfg.RestartPreloads, cfg.MemSoftLimitMB, sysmon.NewProcessSampler())
	session := browser.NewSession(fs, cfg.CookiesFile, config.TikTokHomepage, logger)
	downloader := ytdlp.NewClient(fs, cfg.OutputDir, cfg.NetscapeCookiesFile, logger)

	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	if err != nil {
		logger.Fatal("telegram setup failed", "error", err)
	}

	orch := service.New(state, recycler, session, downloader, downloader, bot, session, cfg.QueueCapacity, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting TikTok downloader bot")
	if err := orch.Startup(ctx); err != nil {
		orch.Shutdown()
		logger.Fatal("startup failed", "error", err)
	}

	go orch.RunRefill(ctx)
	go orch.RunMaintenance(ctx, time.Duration(cfg.JanitorIntervalSec)*time.Second)

	// Blocks until the context is cancelled.
	bot.Run(ctx, orch)

	logger.Info("shutting down")
	orch.Shutdown()
	os.Exit(0)
}
