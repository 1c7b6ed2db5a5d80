package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"quantsig/internal/config"
	"quantsig/internal/gateway/binance"
	"quantsig/internal/logger"
	"quantsig/internal/report"
	"quantsig/internal/scheduler"
	"quantsig/internal/service"
	"quantsig/internal/store"
	qhttp "quantsig/internal/transport/http"
)

func main() {
	cfgPath := flag.String("config", "config.toml", "TOML 配置文件路径（不存在时使用默认值）")
	once := flag.Bool("once", false, "只刷新一轮并打印汇总表，不启动服务")
	snapshotURL := flag.String("snapshot-url", "", "抓取指定仪表盘地址的截图后退出")
	snapshotOut := flag.String("snapshot-out", "dashboard.png", "截图输出路径")
	flag.Parse()

	if *snapshotURL != "" {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := report.CaptureDashboard(ctx, report.SnapshotOptions{URL: *snapshotURL, OutPath: *snapshotOut}); err != nil {
			logger.Errorf("截图失败: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*cfgPath, *once); err != nil {
		logger.Errorf("启动失败: %v", err)
		os.Exit(1)
	}
}

func run(cfgPath string, once bool) error {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		logger.Warnf("配置文件 %s 不存在，使用默认配置", cfgPath)
		cfgPath = ""
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	profiles := config.NewProfileManager(cfg.Run.ProfilesPath)
	if err := profiles.Load(); err != nil {
		logger.Warnf("加载 profiles 失败，使用默认参数: %v", err)
	}

	source, err := binance.New(binance.Config{
		APIKey:      cfg.Binance.APIKey,
		SecretKey:   cfg.Binance.SecretKey,
		RESTBaseURL: cfg.Binance.RESTBaseURL,
		HTTPTimeout: cfg.Binance.HTTPTimeout(),
	})
	if err != nil {
		return fmt.Errorf("初始化数据源失败: %w", err)
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	signals, err := store.OpenSignalStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("打开信号库失败: %w", err)
	}
	defer signals.Close()

	svc := service.New(source, store.NewMemoryStore(), signals, profiles, service.Options{
		Interval:    cfg.Run.Interval,
		HistoryBars: cfg.Run.HistoryBars,
		MaxBars:     cfg.Store.MaxBars,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		if err := svc.RefreshAll(ctx, cfg.Run.Symbols); err != nil {
			logger.Warnf("部分 symbol 刷新失败: %v", err)
		}
		snaps := svc.Snapshots()
		if len(snaps) == 0 {
			return fmt.Errorf("没有任何 symbol 刷新成功")
		}
		fmt.Println(report.SummaryTable(snaps))
		return nil
	}

	refresh, ok := scheduler.ParseIntervalDuration(cfg.Run.Refresh)
	if !ok {
		return fmt.Errorf("refresh 周期非法: %q", cfg.Run.Refresh)
	}
	runner := scheduler.NewRunner("refresh", refresh, func(ctx context.Context) error {
		return svc.RefreshAll(ctx, cfg.Run.Symbols)
	})
	go runner.Run(ctx)

	srv, err := qhttp.NewServer(qhttp.Config{
		Addr:     cfg.Server.Addr,
		Svc:      svc,
		Profiles: profiles,
		Symbols:  cfg.Run.Symbols,
	})
	if err != nil {
		return err
	}
	logger.Infof("quantsig 启动：symbols=%v interval=%s refresh=%s addr=%s",
		cfg.Run.Symbols, cfg.Run.Interval, cfg.Run.Refresh, cfg.Server.Addr)
	return srv.Start(ctx)
}
