// Package pages 在本地目录中查找待扫描的 HTML 页面。
package pages

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/findingfiles/internal/domain"
)

// 永久排除（相对 root 的目录名）。
var builtinExcluded = []string{".git", "node_modules"}

// Walk 遍历 root 下的 .html / .htm 文件，并应用目录排除规则。
//
// excludeDirs 中的相对路径按 root 解析，绝对路径原样使用。
// 只做 stat，不读文件内容；结果按 RelPath 稳定排序。
func Walk(root string, excludeDirs []string) ([]domain.PageFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	excluded := buildExcluded(root, excludeDirs)

	files := make([]domain.PageFile, 0, 32)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPage(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, domain.PageFile{
			AbsPath: path,
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Collect 处理命令行给出的路径：文件直接收录（不看扩展名），目录按 Walk 规则展开。
// 同一文件只出现一次，保持参数顺序。
func Collect(paths []string, excludeDirs []string) ([]domain.PageFile, error) {
	seen := make(map[string]bool)
	var out []domain.PageFile
	add := func(p domain.PageFile) {
		if seen[p.AbsPath] {
			return
		}
		seen[p.AbsPath] = true
		out = append(out, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("读取路径失败：%w", err)
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			add(domain.PageFile{
				AbsPath: abs,
				RelPath: filepath.ToSlash(p),
				Size:    info.Size(),
				ModUnix: info.ModTime().Unix(),
			})
			continue
		}

		files, err := Walk(p, excludeDirs)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			f.RelPath = filepath.ToSlash(filepath.Join(p, filepath.FromSlash(f.RelPath)))
			add(f)
		}
	}
	return out, nil
}

func IsPage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(builtinExcluded)+len(excludeDirs))
	for _, x := range builtinExcluded {
		excluded = append(excluded, filepath.Join(root, x))
	}
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
