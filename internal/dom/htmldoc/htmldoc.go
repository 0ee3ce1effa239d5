// Package htmldoc 用 goquery 解析出的 HTML 树实现 dom.Document。
package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/John-Robertt/findingfiles/internal/dom"
)

var _ dom.Document = (*Document)(nil)

// ErrAlreadyLoaded 表示对非 loading 状态的文档再次调用 Load。
var ErrAlreadyLoaded = errors.New("htmldoc: document already loaded")

// Document 是可变的静态 HTML 文档。
//
// 约束：
// - 所有读写都在 mu 内完成；ready 回调在锁外执行（回调通常会再次访问文档）
// - 查询结果是属性快照，不持有对节点的引用
type Document struct {
	mu    sync.Mutex
	doc   *goquery.Document
	state dom.ReadyState
	ready []func()
}

// Parse 解析完整 HTML，得到 complete 状态的文档。
func Parse(r io.Reader) (*Document, error) {
	d, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败：%w", err)
	}
	return &Document{doc: d, state: dom.StateComplete}, nil
}

func ParseString(s string) (*Document, error) { return Parse(strings.NewReader(s)) }

// NewLoading 返回 loading 状态的空文档；内容由 Load 提供。
func NewLoading() *Document {
	// 空输入也会得到 html/head/body 骨架，解析不会失败。
	d, _ := goquery.NewDocumentFromReader(strings.NewReader(""))
	return &Document{doc: d, state: dom.StateLoading}
}

// Load 载入内容并切换为 interactive，然后按注册顺序触发 ready 回调（每个至多一次）。
func (d *Document) Load(r io.Reader) error {
	nd, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("解析 HTML 失败：%w", err)
	}

	d.mu.Lock()
	if d.state != dom.StateLoading {
		d.mu.Unlock()
		return ErrAlreadyLoaded
	}
	d.doc = nd
	d.state = dom.StateInteractive
	callbacks := d.ready
	d.ready = nil
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// HTML 序列化整个文档（包含 doctype）。
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

func (d *Document) QueryAll(_ context.Context, selector string) ([]dom.Element, error) {
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return nil, fmt.Errorf("无效的选择器 %q：%w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []dom.Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, snapshot(s))
	})
	return out, nil
}

func (d *Document) HasID(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID(id).Length() > 0, nil
}

func (d *Document) Append(_ context.Context, target dom.Target, html string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent := d.doc.Find(string(target)).First()
	if parent.Length() == 0 {
		return fmt.Errorf("文档缺少 <%s>", target)
	}
	parent.AppendHtml(html)
	return nil
}

func (d *Document) SetInnerHTML(_ context.Context, id, html string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := d.byID(id)
	if el.Length() == 0 {
		return false, nil
	}
	el.SetHtml(html)
	return true, nil
}

func (d *Document) RemoveID(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID(id).Remove()
	return nil
}

func (d *Document) ReadyState(context.Context) (dom.ReadyState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, nil
}

// OnReady 在 loading 状态下登记回调；若文档已就绪则立即调用，避免“检查状态后才注册”的竞态丢失回调。
func (d *Document) OnReady(_ context.Context, fn func()) error {
	if fn == nil {
		return errors.New("htmldoc: nil ready callback")
	}
	d.mu.Lock()
	if d.state == dom.StateLoading {
		d.ready = append(d.ready, fn)
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	fn()
	return nil
}

// byID 调用方必须持有 mu。
func (d *Document) byID(id string) *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}

type element map[string]string

func (e element) Attr(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

func snapshot(s *goquery.Selection) element {
	e := element{}
	if len(s.Nodes) == 0 {
		return e
	}
	for _, a := range s.Nodes[0].Attr {
		if a.Namespace != "" {
			continue
		}
		if _, dup := e[a.Key]; dup {
			continue
		}
		e[a.Key] = a.Val
	}
	return e
}
