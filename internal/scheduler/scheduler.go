package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"quantsig/internal/logger"
)

// ParseIntervalDuration 将 Binance 风格的周期（"1m"/"4h"/"1d"/"1w"）转成 time.Duration。
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	s := strings.ToLower(strings.TrimSpace(interval))
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Runner 周期性执行任务；首次立即执行一轮，之后按 interval 触发。
type Runner struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
}

func NewRunner(name string, interval time.Duration, task func(ctx context.Context) error) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{name: name, interval: interval, task: task}
}

// Run 阻塞运行直到 ctx 取消；任务报错只记录日志，不中断循环。
func (r *Runner) Run(ctx context.Context) {
	r.runOnce(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("[scheduler] %s 停止", r.name)
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if r.task == nil {
		return
	}
	start := time.Now()
	if err := r.task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warnf("[scheduler] %s 执行失败: %v", r.name, err)
		return
	}
	logger.Debugf("[scheduler] %s 完成，耗时 %s", r.name, time.Since(start).Round(time.Millisecond))
}
