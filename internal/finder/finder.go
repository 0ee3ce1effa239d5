// Package finder 在宿主文档中查找样式表、脚本与图片引用。
package finder

import (
	"context"
	"errors"

	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/domain"
)

// ErrNoDocument 表示当前没有可用的宿主文档（不在类浏览器环境中）。
var ErrNoDocument = errors.New("This function can only be used in a browser environment")

// 每个类别的查询规则：选择器 + 读取的属性。
type rule struct {
	kind     domain.Kind
	selector string
	attr     string
}

var (
	cssRule   = rule{kind: domain.KindStylesheet, selector: `link[rel="stylesheet"]`, attr: "href"}
	jsRule    = rule{kind: domain.KindScript, selector: `script[src]`, attr: "src"}
	imageRule = rule{kind: domain.KindImage, selector: `img[src]`, attr: "src"}
)

// Finder 持有合并后的扫描开关与宿主环境。构造后不可变。
type Finder struct {
	env dom.Env
	cfg config.ScanConfig
}

// New 把 opts 合并到默认开关上；env 为 nil 时使用 dom.Global。不会失败，也没有副作用。
func New(env dom.Env, opts *config.ScanOptions) *Finder {
	if env == nil {
		env = dom.Global
	}
	return &Finder{env: env, cfg: config.MergeScan(opts)}
}

func (f *Finder) Config() config.ScanConfig { return f.cfg }

// Scan 返回文档中当前引用的资源，顺序固定为 css -> js -> image，类别内部保持文档顺序。
//
// 环境检查先于任何查询：没有文档时返回 ErrNoDocument。
// 属性缺失或为空的元素静默跳过。
func (f *Finder) Scan(ctx context.Context) ([]domain.Asset, error) {
	doc, ok := f.env.Document()
	if !ok {
		return nil, ErrNoDocument
	}

	assets := []domain.Asset{}
	for _, r := range f.rules() {
		found, err := collect(ctx, doc, r)
		if err != nil {
			return nil, err
		}
		assets = append(assets, found...)
	}
	return assets, nil
}

// rules 按固定顺序返回启用的规则（与开关的声明顺序无关）。
// IncludeOther 没有对应的查询规则。
func (f *Finder) rules() []rule {
	var rs []rule
	if f.cfg.IncludeCSS {
		rs = append(rs, cssRule)
	}
	if f.cfg.IncludeJS {
		rs = append(rs, jsRule)
	}
	if f.cfg.IncludeImages {
		rs = append(rs, imageRule)
	}
	return rs
}

func collect(ctx context.Context, doc dom.Document, r rule) ([]domain.Asset, error) {
	els, err := doc.QueryAll(ctx, r.selector)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Asset, 0, len(els))
	for _, el := range els {
		v, ok := el.Attr(r.attr)
		if !ok || v == "" {
			continue
		}
		out = append(out, domain.Asset{
			Name:   ExtractName(v),
			Kind:   r.kind,
			Source: v,
		})
	}
	return out, nil
}

// Find 构造 Finder 并立即扫描一次。
func Find(ctx context.Context, env dom.Env, opts *config.ScanOptions) ([]domain.Asset, error) {
	return New(env, opts).Scan(ctx)
}
