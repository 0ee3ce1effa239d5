package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/dom/chromedoc"
	"github.com/John-Robertt/findingfiles/internal/dom/htmldoc"
	"github.com/John-Robertt/findingfiles/internal/infra/fsx"
	"github.com/John-Robertt/findingfiles/internal/lifecycle"
	"github.com/John-Robertt/findingfiles/internal/widget"
)

type injectArgs struct {
	Output string
	Force  bool
	URL    string
}

func (a *app) newInjectCmd() *cobra.Command {
	var ia injectArgs
	cmd := &cobra.Command{
		Use:   "inject [FILE]",
		Short: "把资源挂件注入 HTML 页面并写出结果",
		Long: `把资源挂件注入本地 HTML 文件，或用 --url 在真实浏览器中打开页面、
挂载挂件后导出渲染后的 DOM。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInject(cmd.Context(), args, ia)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&ia.Output, "output", "o", "", `输出文件（"-" 表示 stdout）`)
	f.BoolVar(&ia.Force, "force", false, "覆盖已存在的输出文件")
	f.StringVar(&ia.URL, "url", "", "用 Chrome 打开该 URL，在页面中挂载挂件（需要本机安装 Chrome/Chromium）")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) runInject(ctx context.Context, args []string, ia injectArgs) error {
	var (
		doc    dom.Document
		source string
		render func() (string, error)
	)
	switch {
	case ia.URL != "" && len(args) > 0:
		return errors.New("--url 与 FILE 不能同时指定")
	case ia.URL != "":
		cd, cancel, err := chromedoc.Open(ctx, ia.URL, a.chromeOptions())
		if err != nil {
			return err
		}
		defer cancel()
		doc, source = cd, ia.URL
		render = func() (string, error) { return cd.HTML(ctx) }
	case len(args) == 1:
		hd, err := readPage(args[0])
		if err != nil {
			return err
		}
		doc, source, render = hd, args[0], hd.HTML
	default:
		return errors.New("需要指定 FILE 或 --url")
	}

	if err := a.mountWidget(ctx, doc, source); err != nil {
		return err
	}
	out, err := render()
	if err != nil {
		return err
	}
	return a.writeOutput(ia, out)
}

func readPage(path string) (*htmldoc.Document, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取页面失败：%w", err)
	}
	defer in.Close()
	return htmldoc.Parse(in)
}

// mountWidget 通过生命周期控制器挂载挂件并等待扫描结果渲染完毕。
func (a *app) mountWidget(ctx context.Context, doc dom.Document, source string) error {
	opts := widget.Options{Scan: &a.eff.Scan, Logger: slog.Default()}
	if w, ok := a.progressWriter(); ok {
		opts.Observer = newProgressUI(w)
	}
	ctl := lifecycle.NewController(dom.Static(doc), opts)
	ctl.Initialize(ctx)

	wg, err := waitWidget(ctx, ctl)
	if err != nil {
		return err
	}
	select {
	case <-wg.Done():
	case <-ctx.Done():
		ctl.Destroy(context.WithoutCancel(ctx))
		return ctx.Err()
	}
	if wg.State() == widget.StateError {
		slog.Warn("扫描失败，输出页面中的挂件显示失败消息", "page", source)
	}
	return nil
}

// 浏览器页面可能仍在 loading，挂件在 ready 回调中才创建，这里轮询等待。
func waitWidget(ctx context.Context, ctl *lifecycle.Controller) (*widget.Widget, error) {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if wg := ctl.Widget(); wg != nil {
			return wg, nil
		}
		if !ctl.IsPending() {
			return nil, errors.New("挂件初始化失败（详见日志）")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
}

func (a *app) writeOutput(ia injectArgs, out string) error {
	if ia.Output == "-" {
		_, err := fmt.Fprint(a.stdout, out)
		return err
	}
	if err := fsx.WriteFile(ia.Output, []byte(out), ia.Force); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w（使用 --force 覆盖）", err)
		}
		return err
	}
	fmt.Fprintf(a.stderr, "已写出：%s\n", ia.Output)
	return nil
}
