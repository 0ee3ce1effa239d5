// Package chromedoc 用 chromedp 驱动的真实浏览器页面实现 dom.Document。
package chromedoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/John-Robertt/findingfiles/internal/dom"
)

var _ dom.Document = (*Document)(nil)

const defaultNavigateTimeout = 60 * time.Second

// Options 控制浏览器启动参数。
type Options struct {
	ChromePath string // 为空时由 chromedp 自行探测
	Headless   bool
	NoSandbox  bool
	// NavigateTimeout 只约束 Open 中的导航与等待 body；0 表示默认 60s。
	NavigateTimeout time.Duration
}

// Document 绑定到一个 chromedp 标签页上下文。
type Document struct {
	tab context.Context
}

// New 包装一个已存在的 chromedp 标签页上下文（chromedp.NewContext 的返回值）。
func New(tab context.Context) *Document { return &Document{tab: tab} }

// Open 启动浏览器、打开 url 并等待 body 就绪。返回的 cancel 负责关闭标签页与浏览器进程。
func Open(ctx context.Context, url string, opt Options) (*Document, context.CancelFunc, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opt.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if opt.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	if opt.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opt.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
	}))
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	// 首次 Run 分配浏览器并绑定到所用 ctx；必须用 tabCtx，否则超时 ctx 结束时浏览器随之关闭。
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("启动浏览器失败：%w", err)
	}

	timeout := opt.NavigateTimeout
	if timeout <= 0 {
		timeout = defaultNavigateTimeout
	}
	navCtx, cancelNav := context.WithTimeout(tabCtx, timeout)
	defer cancelNav()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("打开页面 %s 失败：%w", url, err)
	}
	return &Document{tab: tabCtx}, cancel, nil
}

func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	var raw []map[string]string
	if err := d.run(ctx, chromedp.Evaluate(queryAllJS(selector), &raw)); err != nil {
		return nil, fmt.Errorf("querySelectorAll(%q) 失败：%w", selector, err)
	}
	out := make([]dom.Element, 0, len(raw))
	for _, attrs := range raw {
		out = append(out, element(attrs))
	}
	return out, nil
}

func (d *Document) HasID(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := d.run(ctx, chromedp.Evaluate(hasIDJS(id), &ok))
	return ok, err
}

func (d *Document) Append(ctx context.Context, target dom.Target, html string) error {
	var ok bool
	if err := d.run(ctx, chromedp.Evaluate(appendJS(target, html), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("文档缺少 <%s>", target)
	}
	return nil
}

func (d *Document) SetInnerHTML(ctx context.Context, id, html string) (bool, error) {
	var ok bool
	err := d.run(ctx, chromedp.Evaluate(setInnerHTMLJS(id, html), &ok))
	return ok, err
}

func (d *Document) RemoveID(ctx context.Context, id string) error {
	var ok bool
	return d.run(ctx, chromedp.Evaluate(removeIDJS(id), &ok))
}

func (d *Document) ReadyState(ctx context.Context) (dom.ReadyState, error) {
	var s string
	if err := d.run(ctx, chromedp.Evaluate(`document.readyState`, &s)); err != nil {
		return "", err
	}
	return dom.ReadyState(s), nil
}

// OnReady 监听 DOMContentLoaded。
// chromedp 的 listener 内不能阻塞或再调用 Run，所以回调在独立 goroutine 中执行。
func (d *Document) OnReady(ctx context.Context, fn func()) error {
	if fn == nil {
		return errors.New("chromedoc: nil ready callback")
	}
	if err := d.run(ctx, page.Enable()); err != nil {
		return err
	}
	return armReady(
		func(h func(ev any)) { chromedp.ListenTarget(d.tab, h) },
		func() (dom.ReadyState, error) { return d.ReadyState(ctx) },
		fn,
	)
}

// armReady 先注册监听再复查 readyState：两步之间已触发的 DOMContentLoaded 由复查补上。
// 事件与复查共用一个 once，fn 至多执行一次；复查失败时作废监听，返回错误。
func armReady(listen func(func(ev any)), state func() (dom.ReadyState, error), fn func()) error {
	var once sync.Once
	fire := func() { once.Do(func() { go fn() }) }
	listen(func(ev any) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			fire()
		}
	})

	st, err := state()
	if err != nil {
		once.Do(func() {})
		return err
	}
	if st != dom.StateLoading {
		fire()
	}
	return nil
}

// HTML 返回当前渲染后的整个文档（document.documentElement.outerHTML，带 doctype）。
func (d *Document) HTML(ctx context.Context) (string, error) {
	var s string
	if err := d.run(ctx, chromedp.Evaluate(documentHTMLJS, &s)); err != nil {
		return "", fmt.Errorf("读取页面 HTML 失败：%w", err)
	}
	return s, nil
}

// run 优先使用调用方 ctx（若它本身就是 chromedp 上下文），否则使用绑定的标签页上下文。
func (d *Document) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if chromedp.FromContext(ctx) == nil {
		ctx = d.tab
	}
	return chromedp.Run(ctx, actions...)
}

type element map[string]string

func (e element) Attr(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

// jsString 生成 JS 字符串字面量；JSON 字符串是合法的 JS 字面量。
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const documentHTMLJS = `(document.doctype ? new XMLSerializer().serializeToString(document.doctype) + "\n" : "") + document.documentElement.outerHTML`

func queryAllJS(selector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => Object.fromEntries(Array.from(e.attributes).map(a => [a.name, a.value])))`, jsString(selector))
}

func hasIDJS(id string) string {
	return fmt.Sprintf(`document.getElementById(%s) !== null`, jsString(id))
}

func appendJS(target dom.Target, html string) string {
	return fmt.Sprintf(`(() => { const t = document.%s; if (!t) return false; t.insertAdjacentHTML('beforeend', %s); return true; })()`, string(target), jsString(html))
}

func setInnerHTMLJS(id, html string) string {
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); if (!el) return false; el.innerHTML = %s; return true; })()`, jsString(id), jsString(html))
}

func removeIDJS(id string) string {
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); if (el) el.remove(); return true; })()`, jsString(id))
}
