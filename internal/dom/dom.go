// Package dom 定义扫描与挂件依赖的最小宿主文档能力。
//
// 约束：
// - finder / widget 只依赖这里的接口，不直接耦合 goquery 或 chromedp
// - 所有选择器都是 CSS 选择器语法（与浏览器 querySelectorAll 一致）
package dom

import (
	"context"
	"sync"
)

// ReadyState 对应浏览器 document.readyState。
type ReadyState string

const (
	StateLoading     ReadyState = "loading"
	StateInteractive ReadyState = "interactive"
	StateComplete    ReadyState = "complete"
)

// Target 是 Append 的插入位置。
type Target string

const (
	Head Target = "head"
	Body Target = "body"
)

// Element 是查询结果中的单个元素（只读属性）。
type Element interface {
	Attr(name string) (string, bool)
}

// Document 是宿主文档的能力集合。
//
// 实现必须并发安全：挂件的后台扫描与调用方可能同时访问。
type Document interface {
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	HasID(ctx context.Context, id string) (bool, error)
	Append(ctx context.Context, target Target, html string) error
	// SetInnerHTML 替换 id 元素的全部子节点；元素不存在时返回 (false, nil)。
	SetInnerHTML(ctx context.Context, id, html string) (bool, error)
	// RemoveID 移除 id 元素；元素不存在时是 no-op。
	RemoveID(ctx context.Context, id string) error
	ReadyState(ctx context.Context) (ReadyState, error)
	// OnReady 注册一次性的 ready（DOMContentLoaded）回调。
	OnReady(ctx context.Context, fn func()) error
}

// Env 负责探测宿主文档；ok=false 表示当前不在“类浏览器”环境中。
type Env interface {
	Document() (Document, bool)
}

// Host 是可安装/卸载文档的 Env 实现。
type Host struct {
	mu  sync.RWMutex
	doc Document
}

// Global 是进程级宿主环境（相当于浏览器里的全局 document）。
var Global = &Host{}

func NewHost(doc Document) *Host { return &Host{doc: doc} }

func (h *Host) Install(doc Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = doc
}

func (h *Host) Uninstall() { h.Install(nil) }

func (h *Host) Document() (Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.doc, h.doc != nil
}

type staticEnv struct{ doc Document }

// Static 把固定文档包装为 Env；doc 为 nil 时视为无环境。
func Static(doc Document) Env { return staticEnv{doc: doc} }

func (e staticEnv) Document() (Document, bool) { return e.doc, e.doc != nil }
