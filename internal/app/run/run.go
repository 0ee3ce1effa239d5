// Package run 并发扫描一批本地 HTML 页面并汇总为 ScanReport。
package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/dom/htmldoc"
	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/finder"
)

type Options struct {
	Scan        *config.ScanOptions
	Concurrency int
	Logger      *slog.Logger
}

// Execute 按页面并发（worker pool）扫描 files。
// 单个页面失败只记入该页的 Error，不影响其他页面。
// ctx 取消后尚未扫描的页面以 ctx.Err() 记为失败，报告中不会丢页。
func Execute(ctx context.Context, files []domain.PageFile, opts Options, obs Observer) domain.ScanReport {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	rr := domain.ScanReport{
		StartedAt: time.Now(),
		Pages:     make([]domain.PageReport, 0, len(files)),
	}
	if obs != nil {
		obs.OnStart(len(files), workers)
	}

	type result struct {
		page domain.PageReport
		dur  time.Duration
	}

	jobs := make(chan domain.PageFile)
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				started := time.Now()
				var p domain.PageReport
				if err := ctx.Err(); err != nil {
					p = failed(f.RelPath, err)
				} else {
					p = ScanFile(ctx, f, opts.Scan)
				}
				if p.Error != "" {
					logger.Warn("页面扫描失败", "page", f.RelPath, "err", p.Error)
				}
				results <- result{page: p, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			jobs <- f
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		rr.Pages = append(rr.Pages, r.page)
		if obs != nil {
			obs.OnPageDone(done, len(files), r.page, r.dur)
		}
	}

	rr.FinishedAt = time.Now()
	rr.Finalize()
	return rr
}

// ScanFile 读取并扫描单个页面；错误写入返回值的 Error 字段。
func ScanFile(ctx context.Context, f domain.PageFile, scan *config.ScanOptions) domain.PageReport {
	fh, err := os.Open(f.AbsPath)
	if err != nil {
		return failed(f.RelPath, fmt.Errorf("打开页面失败：%w", err))
	}
	defer fh.Close()
	return ScanReader(ctx, f.RelPath, fh, scan)
}

// ScanReader 解析 r 中的 HTML 并扫描；source 只用于报告。
func ScanReader(ctx context.Context, source string, r io.Reader, scan *config.ScanOptions) domain.PageReport {
	doc, err := htmldoc.Parse(r)
	if err != nil {
		return failed(source, err)
	}
	return ScanDocument(ctx, source, doc, scan)
}

// ScanDocument 扫描任意 dom.Document（静态解析或真实浏览器）。
func ScanDocument(ctx context.Context, source string, doc dom.Document, scan *config.ScanOptions) domain.PageReport {
	assets, err := finder.Find(ctx, dom.Static(doc), scan)
	if err != nil {
		return failed(source, err)
	}
	return domain.PageReport{Source: source, Assets: assets}
}

func failed(source string, err error) domain.PageReport {
	return domain.PageReport{Source: source, Assets: []domain.Asset{}, Error: err.Error()}
}
