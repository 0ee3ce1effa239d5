package lifecycle

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/dom/htmldoc"
	"github.com/John-Robertt/findingfiles/internal/widget"
)

const page = `<html><head><link rel="stylesheet" href="/a.css"></head><body><img src="b.png"></body></html>`

func newController(t *testing.T, doc dom.Document) (*Controller, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewController(dom.NewHost(doc), widget.Options{Logger: logger}), &buf
}

func wait(t *testing.T, w *widget.Widget) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("等待挂件超时")
	}
}

func countContainers(t *testing.T, d *htmldoc.Document) int {
	t.Helper()
	html, err := d.HTML()
	if err != nil {
		t.Fatalf("序列化失败：%v", err)
	}
	return strings.Count(html, `class="`+widget.ContainerClass+`"`)
}

func TestInitialize_ReadyDocumentMountsImmediately(t *testing.T) {
	ctx := context.Background()
	d, _ := htmldoc.ParseString(page)
	c, _ := newController(t, d)

	c.Initialize(ctx)
	if !c.IsInitialized() {
		t.Fatalf("期望已初始化")
	}
	wait(t, c.Widget())
	if n := countContainers(t, d); n != 1 {
		t.Fatalf("容器数量=%d", n)
	}
}

func TestInitialize_IsSingleton(t *testing.T) {
	ctx := context.Background()
	d, _ := htmldoc.ParseString(page)
	c, logs := newController(t, d)

	c.Initialize(ctx)
	first := c.Widget()
	c.Initialize(ctx)
	if c.Widget() != first {
		t.Fatalf("重复初始化不应替换实例")
	}
	wait(t, first)
	if n := countContainers(t, d); n != 1 {
		t.Fatalf("容器数量=%d，期望 1", n)
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Fatalf("重复初始化应记录 warn：%s", logs.String())
	}
}

func TestInitialize_NoDocument(t *testing.T) {
	c, logs := newController(t, nil)
	c.Initialize(context.Background())
	if c.IsInitialized() {
		t.Fatalf("无文档时不应初始化")
	}
	if !strings.Contains(logs.String(), "level=ERROR") {
		t.Fatalf("应记录 error：%s", logs.String())
	}
}

func TestInitialize_DefersUntilReady(t *testing.T) {
	ctx := context.Background()
	d := htmldoc.NewLoading()
	c, _ := newController(t, d)

	c.Initialize(ctx)
	if c.IsInitialized() || !c.IsPending() {
		t.Fatalf("文档加载中不应立即初始化")
	}
	// 待触发期间的重复调用被忽略。
	c.Initialize(ctx)

	if err := d.Load(strings.NewReader(page)); err != nil {
		t.Fatalf("Load 失败：%v", err)
	}
	if !c.IsInitialized() || c.IsPending() {
		t.Fatalf("就绪后应已初始化")
	}
	wait(t, c.Widget())
	if n := countContainers(t, d); n != 1 {
		t.Fatalf("容器数量=%d，期望 1", n)
	}
}

func TestDestroy_ThenReinitialize(t *testing.T) {
	ctx := context.Background()
	d, _ := htmldoc.ParseString(page)
	c, _ := newController(t, d)

	c.Destroy(ctx) // 无实例时 no-op

	c.Initialize(ctx)
	first := c.Widget()
	wait(t, first)

	c.Destroy(ctx)
	if c.IsInitialized() || c.Widget() != nil {
		t.Fatalf("销毁后引用应清空")
	}
	if first.State() != widget.StateDestroyed {
		t.Fatalf("state=%q", first.State())
	}
	if n := countContainers(t, d); n != 0 {
		t.Fatalf("容器应已移除，实际 %d", n)
	}

	c.Initialize(ctx)
	second := c.Widget()
	if second == nil || second == first {
		t.Fatalf("应创建新实例")
	}
	wait(t, second)
	if n := countContainers(t, d); n != 1 {
		t.Fatalf("容器数量=%d", n)
	}
}

// reentrantObserver 在状态回调中查询控制器。
type reentrantObserver struct {
	ctl   *Controller
	calls atomic.Int32
}

func (o *reentrantObserver) OnState(string, widget.State, time.Duration) {
	o.ctl.IsInitialized()
	o.ctl.Widget()
	o.calls.Add(1)
}

func TestInitialize_ObserverMayQueryController(t *testing.T) {
	d, _ := htmldoc.ParseString(page)
	obs := &reentrantObserver{}
	c := NewController(dom.NewHost(d), widget.Options{Observer: obs})
	obs.ctl = c

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Initialize(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Initialize 死锁")
	}
	wait(t, c.Widget())
	if obs.calls.Load() < 2 {
		t.Fatalf("回调次数=%d", obs.calls.Load())
	}
}

func TestDefault_ReturnsSameController(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("Default 应返回同一个控制器")
	}
}
