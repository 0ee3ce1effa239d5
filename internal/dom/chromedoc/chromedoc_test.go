package chromedoc

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/page"

	"github.com/John-Robertt/findingfiles/internal/dom"
)

func TestJSString_EscapesQuotesAndTags(t *testing.T) {
	got := jsString(`link[rel="stylesheet"]`)
	if got != `"link[rel=\"stylesheet\"]"` {
		t.Fatalf("转义不正确：%s", got)
	}
	// json.Marshal 默认转义 <、>，避免 </script> 之类的片段提前结束脚本。
	if strings.Contains(jsString(`</script>`), "</script>") {
		t.Fatalf("不应原样输出 </script>")
	}
}

func TestScripts_EmbedArguments(t *testing.T) {
	if s := queryAllJS("img[src]"); !strings.Contains(s, `querySelectorAll("img[src]")`) {
		t.Fatalf("queryAllJS 未嵌入选择器：%s", s)
	}
	if s := appendJS(dom.Head, "<style></style>"); !strings.Contains(s, "document.head;") {
		t.Fatalf("appendJS 未使用 head：%s", s)
	}
	if s := setInnerHTMLJS("x", "<b>y</b>"); !strings.Contains(s, `getElementById("x")`) {
		t.Fatalf("setInnerHTMLJS 未嵌入 id：%s", s)
	}
	if s := removeIDJS("x"); !strings.Contains(s, "el.remove()") {
		t.Fatalf("removeIDJS 不正确：%s", s)
	}
	if s := hasIDJS("x"); !strings.Contains(s, `getElementById("x") !== null`) {
		t.Fatalf("hasIDJS 不正确：%s", s)
	}
}

func TestElement_Attr(t *testing.T) {
	e := element{"src": "a.js"}
	if v, ok := e.Attr("src"); !ok || v != "a.js" {
		t.Fatalf("Attr(src)=%q,%v", v, ok)
	}
	if _, ok := e.Attr("href"); ok {
		t.Fatalf("不存在的属性应返回 ok=false")
	}
}

// fakeTarget 记录 armReady 注册的 listener，由测试手动投递事件。
type fakeTarget struct {
	handler func(ev any)
}

func (f *fakeTarget) listen(h func(ev any)) { f.handler = h }

func counter() (func(), <-chan struct{}) {
	ch := make(chan struct{}, 4)
	return func() { ch <- struct{}{} }, ch
}

func expectCalls(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("回调次数不足：期望 %d，实际 %d", n, i)
		}
	}
	select {
	case <-ch:
		t.Fatalf("回调执行超过 %d 次", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestArmReady_LoadingWaitsForEvent(t *testing.T) {
	ft := &fakeTarget{}
	fn, calls := counter()
	err := armReady(ft.listen, func() (dom.ReadyState, error) { return dom.StateLoading, nil }, fn)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	expectCalls(t, calls, 0)

	ft.handler(&page.EventLoadEventFired{})
	ft.handler(&page.EventDomContentEventFired{})
	ft.handler(&page.EventDomContentEventFired{})
	expectCalls(t, calls, 1)
}

// 注册监听与读取 readyState 之间事件已经触发：复查发现已就绪，回调仍会执行一次。
func TestArmReady_EventMissedBeforeRecheck(t *testing.T) {
	ft := &fakeTarget{}
	fn, calls := counter()
	err := armReady(ft.listen, func() (dom.ReadyState, error) { return dom.StateInteractive, nil }, fn)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	ft.handler(&page.EventDomContentEventFired{})
	expectCalls(t, calls, 1)
}

func TestArmReady_RecheckErrorDisarms(t *testing.T) {
	ft := &fakeTarget{}
	fn, calls := counter()
	boom := errors.New("boom")
	err := armReady(ft.listen, func() (dom.ReadyState, error) { return "", boom }, fn)
	if !errors.Is(err, boom) {
		t.Fatalf("期望 boom，实际：%v", err)
	}
	ft.handler(&page.EventDomContentEventFired{})
	expectCalls(t, calls, 0)
}

func TestDocumentHTMLJS_IncludesDoctype(t *testing.T) {
	if !strings.Contains(documentHTMLJS, "document.doctype") || !strings.Contains(documentHTMLJS, "outerHTML") {
		t.Fatalf("documentHTMLJS 不正确：%s", documentHTMLJS)
	}
}
