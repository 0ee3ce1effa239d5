package run

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/finder"
)

type recordObserver struct {
	mu sync.Mutex

	startTotal int
	workers    int
	idx        []int
}

func (o *recordObserver) OnStart(total, workers int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startTotal = total
	o.workers = workers
}

func (o *recordObserver) OnPageDone(idx, total int, page domain.PageReport, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.idx = append(o.idx, idx)
}

func page(t *testing.T, root, rel, html string) domain.PageFile {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, []byte(html), 0o644); err != nil {
		t.Fatalf("写入页面失败：%v", err)
	}
	return domain.PageFile{AbsPath: p, RelPath: rel}
}

func TestExecute_ScansAllPagesAndFinalizes(t *testing.T) {
	root := t.TempDir()
	files := []domain.PageFile{
		page(t, root, "b.html", `<html><head><script src="/js/app.js"></script></head></html>`),
		page(t, root, "a.html", `<html><head><link rel="stylesheet" href="a.css"></head><body><img src="x/y.png"></body></html>`),
		{AbsPath: filepath.Join(root, "missing.html"), RelPath: "missing.html"},
	}

	obs := &recordObserver{}
	rr := Execute(context.Background(), files, Options{Concurrency: 8}, obs)

	if obs.startTotal != 3 || obs.workers != 3 {
		t.Fatalf("OnStart(total=%d, workers=%d)", obs.startTotal, obs.workers)
	}
	if len(obs.idx) != 3 || obs.idx[2] != 3 {
		t.Fatalf("OnPageDone 序号=%v", obs.idx)
	}

	if len(rr.Pages) != 3 || rr.Pages[0].Source != "a.html" || rr.Pages[2].Source != "missing.html" {
		t.Fatalf("pages=%+v", rr.Pages)
	}
	if rr.Summary.Total != 3 || rr.Summary.Failed != 1 {
		t.Fatalf("summary=%+v", rr.Summary)
	}
	if rr.Pages[0].Assets[1].Name != "y.png" {
		t.Fatalf("assets=%+v", rr.Pages[0].Assets)
	}
	if rr.FinishedAt.Before(rr.StartedAt) {
		t.Fatalf("时间不正确")
	}
}

func TestExecute_CancelledContextReportsEveryPage(t *testing.T) {
	root := t.TempDir()
	files := []domain.PageFile{
		page(t, root, "a.html", `<link rel="stylesheet" href="a.css">`),
		page(t, root, "b.html", `<script src="b.js"></script>`),
		page(t, root, "c.html", `<img src="c.png">`),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := &recordObserver{}
	rr := Execute(ctx, files, Options{Concurrency: 2}, obs)

	if len(rr.Pages) != 3 || rr.Summary.Failed != 3 {
		t.Fatalf("取消后仍应报告全部页面：pages=%d summary=%+v", len(rr.Pages), rr.Summary)
	}
	for _, p := range rr.Pages {
		if !strings.Contains(p.Error, context.Canceled.Error()) {
			t.Fatalf("page %s error=%q", p.Source, p.Error)
		}
	}
	if len(obs.idx) != 3 {
		t.Fatalf("OnPageDone 次数=%d", len(obs.idx))
	}
}

func TestExecute_NoFiles(t *testing.T) {
	rr := Execute(context.Background(), nil, Options{}, nil)
	if len(rr.Pages) != 0 || rr.Summary.Pages != 0 {
		t.Fatalf("rr=%+v", rr)
	}
}

func TestScanReader_AppliesOptions(t *testing.T) {
	html := `<link rel="stylesheet" href="a.css"><script src="b.js"></script>`
	p := ScanReader(context.Background(), "-", strings.NewReader(html), &config.ScanOptions{IncludeCSS: config.Bool(false)})
	if p.Error != "" {
		t.Fatalf("不期望错误：%s", p.Error)
	}
	if len(p.Assets) != 1 || p.Assets[0].Kind != domain.KindScript {
		t.Fatalf("assets=%+v", p.Assets)
	}
}

func TestScanDocument_NilDocument(t *testing.T) {
	p := ScanDocument(context.Background(), "x", nil, nil)
	if p.Error != finder.ErrNoDocument.Error() {
		t.Fatalf("error=%q", p.Error)
	}
}
