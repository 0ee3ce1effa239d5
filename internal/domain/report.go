package domain

import (
	"sort"
	"time"
)

// ScanReport 是 CLI 对外稳定输出（stdout JSON / text / markdown）的结构。
type ScanReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Pages   []PageReport  `json:"pages"`
}

type ReportSummary struct {
	Pages  int          `json:"pages"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
	ByKind map[Kind]int `json:"by_kind"`
}

// PageReport 是单个页面的扫描结果；Error 非空时 Assets 为空。
type PageReport struct {
	Source string  `json:"source"`
	Assets []Asset `json:"assets"`
	Error  string  `json:"error,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) pages 稳定排序：按 source 字典序（页面内资源顺序保持扫描顺序不变）
// 3) summary 由 pages 计算得出
func (r *ScanReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Pages, func(i, j int) bool { return r.Pages[i].Source < r.Pages[j].Source })

	s := ReportSummary{ByKind: map[Kind]int{}}
	for _, p := range r.Pages {
		s.Pages++
		if p.Error != "" {
			s.Failed++
			continue
		}
		for _, a := range p.Assets {
			s.Total++
			s.ByKind[a.Kind]++
		}
	}
	r.Summary = s
}
