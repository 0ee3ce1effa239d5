// Package lifecycle 管理进程内唯一的挂件实例：初始化、延迟到文档就绪、销毁与重建。
package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/widget"
)

// Controller 持有至多一个挂件实例。
//
// 约束：inst 与 pending 只在 mu 内读写。pending 表示实例正在创建或等待 ready 回调，
// 期间重复 Initialize 直接忽略，不会产生第二个实例。widget.New 在锁外执行，
// Observer 回调中可以安全调用 IsInitialized / Widget。
type Controller struct {
	env  dom.Env
	opts widget.Options
	log  *slog.Logger

	mu      sync.Mutex
	inst    *widget.Widget
	pending bool
}

func NewController(env dom.Env, opts widget.Options) *Controller {
	if env == nil {
		env = dom.Global
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{env: env, opts: opts, log: logger}
}

var (
	defaultOnce sync.Once
	defaultCtl  *Controller
)

// Default 返回绑定 dom.Global 的进程级控制器。
func Default() *Controller {
	defaultOnce.Do(func() {
		defaultCtl = NewController(dom.Global, widget.Options{})
	})
	return defaultCtl
}

// Initialize 创建挂件；文档仍在加载时推迟到 ready 回调。
// 失败只写日志，不返回错误：调用方通过 IsInitialized 观察结果。
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.inst != nil || c.pending {
		c.mu.Unlock()
		c.log.Warn("挂件已初始化，忽略重复调用")
		return
	}
	doc, ok := c.env.Document()
	if !ok {
		c.mu.Unlock()
		c.log.Error("无法初始化挂件：当前没有宿主文档")
		return
	}
	st, err := doc.ReadyState(ctx)
	if err != nil {
		c.mu.Unlock()
		c.log.Error("读取文档就绪状态失败", "err", err)
		return
	}
	c.pending = true
	c.mu.Unlock()

	if st != dom.StateLoading {
		c.mount(ctx, doc)
		return
	}

	// OnReady 可能同步调用回调（文档恰好在此刻就绪），注册时不能持有 mu。
	ready := context.WithoutCancel(ctx)
	err = doc.OnReady(ctx, func() { c.mount(ready, doc) })
	if err != nil {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
		c.log.Error("注册文档就绪回调失败", "err", err)
		return
	}
	c.log.Debug("文档加载中，挂件延迟到就绪后创建")
}

// mount 只在 pending 期间调用。
func (c *Controller) mount(ctx context.Context, doc dom.Document) {
	w, err := widget.New(ctx, doc, c.opts)

	c.mu.Lock()
	c.pending = false
	if err == nil {
		c.inst = w
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error("创建挂件失败", "err", err)
		return
	}
	c.log.Debug("挂件已创建", "widget", w.ID())
}

// Destroy 销毁当前实例并清空引用；没有实例时什么也不做。
// 已注册但尚未触发的 ready 回调不会被撤销。
func (c *Controller) Destroy(ctx context.Context) {
	c.mu.Lock()
	w := c.inst
	c.inst = nil
	c.mu.Unlock()

	if w == nil {
		return
	}
	if err := w.Destroy(ctx); err != nil {
		c.log.Warn("销毁挂件失败", "widget", w.ID(), "err", err)
	}
}

func (c *Controller) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inst != nil
}

// IsPending 报告挂件是否正在创建或等待文档就绪。
func (c *Controller) IsPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Widget 返回当前实例，可能为 nil。
func (c *Controller) Widget() *widget.Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inst
}
