package finder

import (
	"slices"

	"github.com/John-Robertt/findingfiles/internal/domain"
)

// FilterByKind 返回 kind 相同的子序列（保持原顺序）。
func FilterByKind(assets []domain.Asset, kind domain.Kind) []domain.Asset {
	out := []domain.Asset{}
	for _, a := range assets {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func Count(assets []domain.Asset) int { return len(assets) }

// Groups 是按 kind 分组后的有序映射。
//
// - Keys 按输入中首次出现的顺序
// - 没有记录的 kind 不会出现（而不是映射到空切片）
type Groups struct {
	keys   []domain.Kind
	byKind map[domain.Kind][]domain.Asset
}

// GroupByKind 把资源按 kind 分组；组内保持原顺序。
func GroupByKind(assets []domain.Asset) Groups {
	g := Groups{byKind: make(map[domain.Kind][]domain.Asset, len(domain.Kinds))}
	for _, a := range assets {
		if _, ok := g.byKind[a.Kind]; !ok {
			g.keys = append(g.keys, a.Kind)
		}
		g.byKind[a.Kind] = append(g.byKind[a.Kind], a)
	}
	return g
}

func (g Groups) Keys() []domain.Kind { return append([]domain.Kind(nil), g.keys...) }

func (g Groups) Len() int { return len(g.keys) }

// Get 返回该组的副本，修改结果不影响分组本身。
func (g Groups) Get(kind domain.Kind) ([]domain.Asset, bool) {
	as, ok := g.byKind[kind]
	if !ok {
		return nil, false
	}
	return slices.Clone(as), true
}
