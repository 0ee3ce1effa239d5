package domain

// Kind 是资源类别。字符串值同时用于 JSON 输出与分组键。
type Kind string

const (
	KindStylesheet Kind = "css"
	KindScript     Kind = "js"
	KindImage      Kind = "image"
	// KindOther 只是预留值：内置扫描从不产生该类别。
	KindOther Kind = "other"
)

// Kinds 是固定的展示/拼接顺序：css -> js -> image -> other。
var Kinds = []Kind{KindStylesheet, KindScript, KindImage, KindOther}

func (k Kind) Valid() bool {
	switch k {
	case KindStylesheet, KindScript, KindImage, KindOther:
		return true
	default:
		return false
	}
}

// Asset 描述一次扫描发现的资源引用。
//
// 不变量：
// - Name 总能由 Source 确定性推导（最后一个 '/' 之后的部分）
// - Source 是标记中的原始属性值，不做绝对化
// - Size 为预留字段，扫描不填充
type Asset struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"type"`
	Source string `json:"src"`
	Size   *int64 `json:"size,omitempty"`
}
