package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/findingfiles/internal/app/run"
	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/widget"
)

var (
	_ run.Observer    = (*progressUI)(nil)
	_ widget.Observer = (*progressUI)(nil)
)

// progressUI 是交互终端下的简洁进度输出。
//
// 所有过程信息写到 stderr，不污染 stdout 的报告输出。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
	ok        int
	fail      int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(total, workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	fmt.Fprintf(p.w, "[%s] 扫描 %d 个页面（workers=%d）\n", p.startedAt.Format("15:04:05"), total, workers)
}

func (p *progressUI) OnPageDone(idx, total int, page domain.PageReport, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if page.Error != "" {
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL: %s (%s)\n", idx, total, page.Source, truncate(page.Error, 160), formatShortDuration(dur))
	} else {
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] %s OK files=%d (%s)\n", idx, total, page.Source, len(page.Assets), formatShortDuration(dur))
	}
	if idx == total {
		fmt.Fprintf(p.w, "完成：ok=%d fail=%d elapsed=%s\n", p.ok, p.fail, formatElapsed(time.Since(p.startedAt)))
	}
}

func (p *progressUI) OnState(id string, st widget.State, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "挂件 %s: %s (%s)\n", shortID(id), strings.ToUpper(string(st)), formatShortDuration(elapsed))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// progressWriter 只在 stderr 是交互终端时启用进度输出。
func (a *app) progressWriter() (io.Writer, bool) {
	f, ok := a.stderr.(*os.File)
	if !ok || !isTTY(f) {
		return nil, false
	}
	return f, true
}
