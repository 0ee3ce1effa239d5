// Package report 把 ScanReport 输出为 text / json / markdown。
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/finder"
	"github.com/John-Robertt/findingfiles/internal/widget"
)

var kindLabels = map[domain.Kind]string{
	domain.KindStylesheet: "CSS",
	domain.KindScript:     "JS",
	domain.KindImage:      "Images",
	domain.KindOther:      "Other",
}

// Write 按 format 输出报告；format 需已由 config 规范化。
func Write(w io.Writer, format string, r domain.ScanReport) error {
	switch format {
	case config.FormatText, "":
		return writeText(w, r)
	case config.FormatJSON:
		return writeJSON(w, r)
	case config.FormatMarkdown:
		return writeMarkdown(w, r)
	default:
		return fmt.Errorf("未知的输出格式：%q", format)
	}
}

func writeJSON(w io.Writer, r domain.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func writeText(w io.Writer, r domain.ScanReport) error {
	var b strings.Builder
	for _, p := range r.Pages {
		b.WriteString(p.Source)
		b.WriteByte('\n')
		if p.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", p.Error)
			continue
		}
		if len(p.Assets) == 0 {
			fmt.Fprintf(&b, "  %s\n", widget.EmptyMessage)
			continue
		}
		groups := finder.GroupByKind(p.Assets)
		for _, k := range groups.Keys() {
			as, _ := groups.Get(k)
			fmt.Fprintf(&b, "  %s (%d)\n", label(k), len(as))
			for _, a := range as {
				fmt.Fprintf(&b, "    %s\t%s\n", a.Name, a.Source)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d page(s), %d failed, %d file(s)%s\n",
		r.Summary.Pages, r.Summary.Failed, r.Summary.Total, byKindSuffix(r.Summary.ByKind))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdown(w io.Writer, r domain.ScanReport) error {
	conv := md.NewConverter("", true, nil)

	var b strings.Builder
	b.WriteString("# Files in use\n")
	for _, p := range r.Pages {
		fmt.Fprintf(&b, "\n## %s\n\n", p.Source)
		if p.Error != "" {
			fmt.Fprintf(&b, "> %s: %s\n", widget.ErrorMessage, p.Error)
			continue
		}
		out, err := conv.ConvertString(widget.RenderPanel(p.Assets))
		if err != nil {
			return fmt.Errorf("转换 markdown 失败（%s）：%w", p.Source, err)
		}
		b.WriteString(strings.TrimSpace(out))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func label(k domain.Kind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// byKindSuffix 按 domain.Kinds 的固定顺序输出非零计数。
func byKindSuffix(m map[domain.Kind]int) string {
	var parts []string
	for _, k := range domain.Kinds {
		if n := m[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", k, n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
