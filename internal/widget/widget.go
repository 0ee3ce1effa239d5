// Package widget 在宿主文档中渲染一个浮动面板，展示当前页面引用的资源。
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/finder"
)

// State 是挂件的显示状态。
type State string

const (
	StateLoading   State = "loading"
	StatePopulated State = "populated"
	StateEmpty     State = "empty"
	StateError     State = "error"
	StateDestroyed State = "destroyed"
)

// Observer 接收挂件的状态变化（用于 CLI 进度输出与测试）。
//
// 约束：loading 在 New 内同步回调，其余状态可能来自后台扫描 goroutine；
// 实现必须并发安全，且不能阻塞。
type Observer interface {
	OnState(id string, state State, elapsed time.Duration)
}

type Options struct {
	// Scan 为 nil 时使用默认开关。
	Scan     *config.ScanOptions
	Logger   *slog.Logger
	Observer Observer
}

// Widget 是绑定到单个文档的挂件实例。
//
// 生命周期：loading -> populated | empty | error；任意时刻 Destroy -> destroyed（终态）。
// 后台扫描不可取消：Destroy 之后扫描仍会跑完，但渲染前会发现容器已移除并直接返回。
type Widget struct {
	id        string
	doc       dom.Document
	finder    *finder.Finder
	log       *slog.Logger
	obs       Observer
	startedAt time.Time
	done      chan struct{}

	mu      sync.Mutex
	mounted bool
	state   State
}

// 样式块的“检查 + 插入”在进程内串行化，避免并发创建挂件时重复注入。
var stylesMu sync.Mutex

// New 同步注入样式与容器（显示 loading 占位），然后在后台启动一次扫描。
// 返回时扫描尚未完成；等待结果用 Done()。
func New(ctx context.Context, doc dom.Document, opts Options) (*Widget, error) {
	if doc == nil {
		return nil, finder.ErrNoDocument
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Widget{
		id:        uuid.NewString(),
		doc:       doc,
		finder:    finder.New(dom.Static(doc), opts.Scan),
		log:       logger,
		obs:       opts.Observer,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		state:     StateLoading,
	}

	if err := injectStyles(ctx, doc); err != nil {
		return nil, fmt.Errorf("注入挂件样式失败：%w", err)
	}
	if err := doc.Append(ctx, dom.Body, containerHTML(w.id)); err != nil {
		return nil, fmt.Errorf("插入挂件容器失败：%w", err)
	}
	w.mounted = true
	w.notify(StateLoading)

	go w.scanAndDisplay(context.WithoutCancel(ctx))
	return w, nil
}

func injectStyles(ctx context.Context, doc dom.Document) error {
	stylesMu.Lock()
	defer stylesMu.Unlock()

	exists, err := doc.HasID(ctx, StyleID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return doc.Append(ctx, dom.Head, styleHTML())
}

func (w *Widget) ID() string { return w.id }

// ContainerID 是本实例容器元素的 id。
func (w *Widget) ContainerID() string { return containerID(w.id) }

// Done 在扫描结果处理完毕后关闭（已渲染，或因挂件已销毁而跳过渲染）。
func (w *Widget) Done() <-chan struct{} { return w.done }

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Destroy 移除容器并进入终态；共享样式块保留。重复调用是 no-op。
func (w *Widget) Destroy(ctx context.Context) error {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return nil
	}
	w.mounted = false
	w.state = StateDestroyed
	w.mu.Unlock()

	w.notify(StateDestroyed)
	if err := w.doc.RemoveID(ctx, containerID(w.id)); err != nil {
		return fmt.Errorf("移除挂件容器失败：%w", err)
	}
	return nil
}

func (w *Widget) scanAndDisplay(ctx context.Context) {
	defer close(w.done)

	assets, err := w.finder.Scan(ctx)
	if err != nil {
		// 原始错误只写日志，界面上只显示通用失败消息。
		w.log.Error("挂件扫描失败", "widget", w.id, "err", err)
		w.render(ctx, StateError, messageHTML("error", ErrorMessage))
		return
	}
	if len(assets) == 0 {
		w.render(ctx, StateEmpty, messageHTML("empty", EmptyMessage))
		return
	}
	w.log.Debug("挂件扫描完成", "widget", w.id, "assets", len(assets))
	w.render(ctx, StatePopulated, RenderPanel(assets))
}

// render 覆盖内容区；容器已移除时直接返回。
func (w *Widget) render(ctx context.Context, st State, html string) {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	ok, err := w.doc.SetInnerHTML(ctx, contentID(w.id), html)
	if err == nil && !ok {
		err = errors.New("内容区不存在")
	}
	if err != nil {
		w.log.Warn("挂件渲染失败", "widget", w.id, "state", st, "err", err)
		st = StateError
	}
	w.state = st
	w.mu.Unlock()

	w.notify(st)
}

func (w *Widget) notify(st State) {
	if w.obs == nil {
		return
	}
	w.obs.OnState(w.id, st, time.Since(w.startedAt))
}
