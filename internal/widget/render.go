package widget

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/finder"
)

// 容器与内容区的 id 带实例后缀，同一文档中可并存多个挂件（例如已注入过的页面）；
// 样式通过 ContainerClass 选中全部实例。
const (
	ContainerClass = "finding-files-widget"
	StyleID        = "finding-files-widget-styles"

	contentPrefix = "finding-files-content"
)

const (
	LoadingMessage = "Scanning…"
	EmptyMessage   = "No files found"
	ErrorMessage   = "Scan failed"
)

//go:embed widget.css
var stylesheet string

// 分组展示顺序固定，与输入中的出现顺序无关。
var sections = []struct {
	kind  domain.Kind
	label string
}{
	{domain.KindStylesheet, "🎨 CSS"},
	{domain.KindScript, "⚡ JS"},
	{domain.KindImage, "🖼️ Images"},
}

var (
	containerTmpl = template.Must(template.New("container").Parse(
		`<div id="{{.ContainerID}}" class="{{.Class}}"><div class="widget-header">📁 Files in use</div>` +
			`<div class="widget-content" id="{{.ContentID}}"><div class="loading">{{.Loading}}</div></div></div>`))

	panelTmpl = template.Must(template.New("panel").Parse(
		`<div class="file-count">{{.Total}} file(s)</div>` +
			`{{range .Groups}}<div class="file-group"><div class="group-title">{{.Label}} ({{len .Assets}})</div>` +
			`{{range .Assets}}<div class="file-item" title="{{.Source}}">{{.Name}}</div>{{end}}</div>{{end}}`))

	messageTmpl = template.Must(template.New("message").Parse(`<div class="{{.Class}}">{{.Text}}</div>`))
)

type panelGroup struct {
	Label  string
	Assets []domain.Asset
}

func styleHTML() string {
	return fmt.Sprintf(`<style id="%s">%s</style>`, StyleID, stylesheet)
}

func containerID(id string) string { return ContainerClass + "-" + id }

func contentID(id string) string { return contentPrefix + "-" + id }

func containerHTML(id string) string {
	return execute(containerTmpl, map[string]string{
		"ContainerID": containerID(id),
		"Class":       ContainerClass,
		"ContentID":   contentID(id),
		"Loading":     LoadingMessage,
	})
}

// RenderPanel 返回内容区 HTML：空结果为 empty 消息，否则为总数 + 按 css/js/image 分组的名称列表。
func RenderPanel(assets []domain.Asset) string {
	if len(assets) == 0 {
		return messageHTML("empty", EmptyMessage)
	}

	grouped := finder.GroupByKind(assets)
	var groups []panelGroup
	for _, s := range sections {
		if as, ok := grouped.Get(s.kind); ok {
			groups = append(groups, panelGroup{Label: s.label, Assets: as})
		}
	}
	return execute(panelTmpl, map[string]any{
		"Total":  finder.Count(assets),
		"Groups": groups,
	})
}

func messageHTML(class, text string) string {
	return execute(messageTmpl, map[string]string{"Class": class, "Text": text})
}

// 模板都是包内常量且数据结构固定，执行失败只可能是编程错误。
func execute(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		panic(fmt.Sprintf("widget: render %s: %v", t.Name(), err))
	}
	return b.String()
}
