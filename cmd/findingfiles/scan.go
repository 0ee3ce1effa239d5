package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/findingfiles/internal/app/run"
	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/dom/chromedoc"
	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/infra/httpx"
	"github.com/John-Robertt/findingfiles/internal/pages"
	"github.com/John-Robertt/findingfiles/internal/report"
)

type scanArgs struct {
	URL    string
	Static bool
	Copy   bool
}

func (a *app) newScanCmd() *cobra.Command {
	var sa scanArgs
	cmd := &cobra.Command{
		Use:   "scan [PATH...]",
		Short: "扫描页面并输出资源报告",
		Long: `扫描本地 HTML 文件或目录（默认当前目录；"-" 表示从 stdin 读取一个页面），
或用 --url 在真实浏览器中打开页面后扫描渲染后的 DOM。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd.Context(), args, sa)
		},
	}

	f := cmd.Flags()
	f.StringVar(&sa.URL, "url", "", "用 Chrome 打开该 URL 并扫描（需要本机安装 Chrome/Chromium）")
	f.BoolVar(&sa.Static, "static", false, "配合 --url：直接 HTTP 抓取 HTML 扫描，不启动浏览器（不执行页面脚本）")
	f.BoolVar(&sa.Copy, "copy", false, "同时把报告复制到剪贴板")
	f.StringP("format", "f", config.DefaultFormat, "输出格式：text|json|markdown")
	f.Int("concurrency", config.DefaultConcurrency, "并发扫描的页面数")
	f.StringSlice("exclude", nil, "额外排除的目录（相对扫描根目录）")
	f.String("proxy", "", "--static 抓取使用的 HTTP 代理 URL")

	_ = a.v.BindPFlag(config.KeyFormat, f.Lookup("format"))
	_ = a.v.BindPFlag(config.KeyConcurrency, f.Lookup("concurrency"))
	_ = a.v.BindPFlag(config.KeyExcludeDirs, f.Lookup("exclude"))
	_ = a.v.BindPFlag(config.KeyProxyURL, f.Lookup("proxy"))
	return cmd
}

func (a *app) runScan(ctx context.Context, args []string, sa scanArgs) error {
	var (
		rr  domain.ScanReport
		err error
	)
	switch {
	case sa.URL != "" && sa.Static:
		rr, err = a.scanStatic(ctx, sa.URL)
	case sa.URL != "":
		rr, err = a.scanURL(ctx, sa)
	case len(args) == 1 && args[0] == "-":
		rr = a.scanStdin(ctx)
	default:
		if len(args) == 0 {
			args = []string{"."}
		}
		rr, err = a.scanPaths(ctx, args)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, a.eff.Format, rr); err != nil {
		return err
	}
	if _, err := a.stdout.Write(buf.Bytes()); err != nil {
		return err
	}
	if sa.Copy {
		if err := clipboard.WriteAll(buf.String()); err != nil {
			slog.Warn("复制到剪贴板失败", "err", err)
		} else {
			fmt.Fprintln(a.stderr, "报告已复制到剪贴板。")
		}
	}

	if rr.Summary.Failed > 0 {
		return errPartialFailure
	}
	return nil
}

func (a *app) scanPaths(ctx context.Context, args []string) (domain.ScanReport, error) {
	files, err := pages.Collect(args, a.eff.ExcludeDirs)
	if err != nil {
		return domain.ScanReport{}, err
	}
	slog.Debug("待扫描页面", "count", len(files))

	var obs run.Observer
	if w, ok := a.progressWriter(); ok {
		obs = newProgressUI(w)
	}
	return run.Execute(ctx, files, run.Options{
		Scan:        &a.eff.Scan,
		Concurrency: a.eff.Concurrency,
	}, obs), nil
}

func (a *app) scanStdin(ctx context.Context) domain.ScanReport {
	started := time.Now()
	p := run.ScanReader(ctx, "<stdin>", a.stdin, &a.eff.Scan)
	return single(started, p)
}

func (a *app) scanURL(ctx context.Context, sa scanArgs) (domain.ScanReport, error) {
	started := time.Now()
	doc, cancel, err := chromedoc.Open(ctx, sa.URL, a.chromeOptions())
	if err != nil {
		return domain.ScanReport{}, err
	}
	defer cancel()

	p := run.ScanDocument(ctx, sa.URL, doc, &a.eff.Scan)
	return single(started, p), nil
}

func (a *app) scanStatic(ctx context.Context, rawURL string) (domain.ScanReport, error) {
	started := time.Now()
	c, err := httpx.NewClient(a.eff.ProxyURL)
	if err != nil {
		return domain.ScanReport{}, err
	}
	body, err := httpx.FetchPage(ctx, c, rawURL)
	if err != nil {
		return domain.ScanReport{}, fmt.Errorf("抓取页面失败：%w", err)
	}
	p := run.ScanReader(ctx, rawURL, bytes.NewReader(body), &a.eff.Scan)
	return single(started, p), nil
}

func single(started time.Time, p domain.PageReport) domain.ScanReport {
	rr := domain.ScanReport{
		StartedAt:  started,
		FinishedAt: time.Now(),
		Pages:      []domain.PageReport{p},
	}
	rr.Finalize()
	return rr
}
