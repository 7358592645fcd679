package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/John-Robertt/EDFKIT/internal/crawl"
)

var _ crawl.Observer = (*progressPrinter)(nil)

// progressPrinter 是 fetch 命令在交互终端下的进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：crawl 层只发事件，CLI 决定如何展示
type progressPrinter struct {
	w io.Writer

	mu         sync.Mutex
	startedAt  time.Time
	pages      int
	downloaded int
	skipped    int
	failed     int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, startedAt: time.Now()}
}

func (p *progressPrinter) OnPage(pageURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages++
	fmt.Fprintf(p.w, "[%s] 索引 %s\n", p.elapsed(), truncate(pageURL, 100))
}

func (p *progressPrinter) OnDownloaded(fileURL, dst string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded++
	fmt.Fprintf(p.w, "[%s] 下载 %s (%s)\n", p.elapsed(), truncate(dst, 100), formatBytes(size))
}

func (p *progressPrinter) OnSkipped(fileURL, dst string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped++
	fmt.Fprintf(p.w, "[%s] 跳过 %s（本地已完整）\n", p.elapsed(), truncate(dst, 100))
}

func (p *progressPrinter) OnError(fileURL string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed++
	fmt.Fprintf(p.w, "[%s] 失败 %s: %v\n", p.elapsed(), truncate(fileURL, 100), err)
}

func (p *progressPrinter) elapsed() string {
	return formatShortDuration(time.Since(p.startedAt))
}

func formatShortDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
