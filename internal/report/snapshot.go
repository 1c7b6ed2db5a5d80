package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"quantsig/internal/logger"
)

// SnapshotOptions 控制仪表盘截图。
type SnapshotOptions struct {
	URL     string
	OutPath string
	Timeout time.Duration
	Quality int
}

// CaptureDashboard 用无头浏览器打开仪表盘并截图保存。
// 需要本机可用的 Chrome/Chromium。
func CaptureDashboard(ctx context.Context, opts SnapshotOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("snapshot url 不能为空")
	}
	if opts.OutPath == "" {
		opts.OutPath = "dashboard.png"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	runCtx, cancelRun := chromedp.NewContext(allocCtx)
	defer cancelRun()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, opts.Timeout)
	defer cancelTimeout()

	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate(opts.URL),
		chromedp.Sleep(2*time.Second), // 等 echarts 完成首帧渲染
		chromedp.FullScreenshot(&buf, opts.Quality),
	)
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}
	if err := os.WriteFile(opts.OutPath, buf, 0644); err != nil {
		return fmt.Errorf("保存截图失败: %w", err)
	}
	logger.Infof("[report] 仪表盘截图已保存: %s (%d bytes)", opts.OutPath, len(buf))
	return nil
}
