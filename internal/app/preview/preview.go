// Package preview 提供本地预览服务：HTML 页面在返回前注入资源挂件，其它文件原样返回。
package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/dom"
	"github.com/John-Robertt/findingfiles/internal/dom/htmldoc"
	"github.com/John-Robertt/findingfiles/internal/domain"
	"github.com/John-Robertt/findingfiles/internal/finder"
	"github.com/John-Robertt/findingfiles/internal/lifecycle"
	"github.com/John-Robertt/findingfiles/internal/pages"
	"github.com/John-Robertt/findingfiles/internal/widget"
)

// AssetsPrefix 下的路由返回页面资源清单（JSON），不与站点自身路径冲突。
const AssetsPrefix = "/__findingfiles/assets/"

const headerContentType = "Content-Type"

var (
	errNotFound = errors.New("not found")
	errNotPage  = errors.New("not an html page")
)

type server struct {
	root  string
	scan  *config.ScanOptions
	log   *slog.Logger
	files http.Handler
}

// NewServer 返回以 root 为站点根目录的 handler（带访问日志）。
func NewServer(root string, scan *config.ScanOptions, logger *slog.Logger) (http.Handler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("读取站点目录失败：%w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("站点根路径不是目录：%q", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &server{root: abs, scan: scan, log: logger, files: http.FileServer(http.Dir(abs))}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handleNoRoute)
	r.PathPrefix(AssetsPrefix).HandlerFunc(s.handleAssets).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(s.handlePage).Methods(http.MethodGet, http.MethodHead)

	return handlers.LoggingHandler(accessLog{logger}, r), nil
}

// accessLog 把 gorilla/handlers 的 Common Log Format 行转成 slog 记录。
type accessLog struct{ log *slog.Logger }

func (a accessLog) Write(p []byte) (int, error) {
	a.log.Info("http", "access", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func handleNoRoute(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path))
}

func (s *server) handleAssets(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, AssetsPrefix)
	p, err := s.resolvePage(rel)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	doc, err := parseFile(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	assets, err := finder.Find(r.Context(), dom.Static(doc), s.scan)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	relOut, _ := filepath.Rel(s.root, p)
	writeJSON(w, http.StatusOK, domain.PageReport{Source: filepath.ToSlash(relOut), Assets: assets})
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, err := s.resolvePage(r.URL.Path)
	if errors.Is(err, errNotPage) || errors.Is(err, errNotFound) {
		// 非页面（或目录下没有 index.html）交给标准文件服务处理。
		s.files.ServeHTTP(w, r)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	doc, err := parseFile(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx := r.Context()
	ctl := lifecycle.NewController(dom.Static(doc), widget.Options{Scan: s.scan, Logger: s.log})
	ctl.Initialize(ctx)
	wg := ctl.Widget()
	if wg == nil {
		writeError(w, http.StatusInternalServerError, errors.New("挂件初始化失败"))
		return
	}
	select {
	case <-wg.Done():
	case <-ctx.Done():
		ctl.Destroy(ctx)
		return
	}

	out, err := doc.HTML()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set(headerContentType, "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(out))
	}
}

// resolvePage 把 URL 路径映射为 root 内的 HTML 文件；目录映射到其 index.html。
func (s *server) resolvePage(urlPath string) (string, error) {
	p, err := s.resolve(urlPath)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", errNotFound
	}
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		p = filepath.Join(p, "index.html")
		if fi, err = os.Stat(p); err != nil || fi.IsDir() {
			return "", errNotFound
		}
	}
	if !pages.IsPage(p) {
		return "", errNotPage
	}
	return p, nil
}

// resolve 把 URL 路径约束在 root 内。
func (s *server) resolve(urlPath string) (string, error) {
	clean := path.Clean("/" + urlPath)
	p := filepath.Join(s.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errNotFound
	}
	return p, nil
}

func parseFile(p string) (*htmldoc.Document, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return htmldoc.Parse(f)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNotPage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
