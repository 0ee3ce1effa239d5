package finder

import "strings"

// ExtractName 取 source 最后一个 '/' 之后的部分；以 '/' 结尾或为空时返回 ""。
// 不解析 URL：查询串与片段（?v=1、#x）原样保留。
func ExtractName(source string) string {
	if i := strings.LastIndexByte(source, '/'); i >= 0 {
		return source[i+1:]
	}
	return source
}
