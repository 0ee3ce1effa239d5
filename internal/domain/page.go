package domain

// PageFile 描述一次目录遍历得到的 HTML 页面文件（只做 stat，不读内容）。
//
// 不变量：AbsPath 必须是 clean + absolute。
type PageFile struct {
	AbsPath string
	RelPath string
	Size    int64
	ModUnix int64
}
