package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在（未指定时配置文件是可选的）。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// viper 键。scan.* 故意不设默认值：IsSet 用来区分“未指定”和“显式 false”。
const (
	KeyIncludeCSS    = "scan.include_css"
	KeyIncludeJS     = "scan.include_js"
	KeyIncludeImages = "scan.include_images"
	KeyIncludeOther  = "scan.include_other"

	KeyFormat         = "format"
	KeyLog            = "log"
	KeyLogLevel       = "log_level"
	KeyChromePath     = "chrome.path"
	KeyChromeHeadless = "chrome.headless"
	KeyServeAddr      = "serve.addr"
	KeyExcludeDirs    = "exclude_dirs"
	KeyConcurrency    = "concurrency"
	KeyProxyURL       = "proxy.url"
)

const (
	ConfigName = "findingfiles"
	EnvPrefix  = "FINDINGFILES"

	DefaultFormat    = "text"
	DefaultServeAddr = "127.0.0.1:8080"
	DefaultLogLevel  = "info"

	DefaultConcurrency = 4
	MaxConcurrency     = 32
)

const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ScanOptions 是调用方提供的扫描开关；nil 字段表示“未指定”，合并时保留默认值。
type ScanOptions struct {
	IncludeImages *bool
	IncludeCSS    *bool
	IncludeJS     *bool
	IncludeOther  *bool
}

// ScanConfig 是合并后的最终扫描开关（构造后不可变）。
type ScanConfig struct {
	IncludeImages bool
	IncludeCSS    bool
	IncludeJS     bool
	IncludeOther  bool
}

func DefaultScan() ScanConfig {
	return ScanConfig{
		IncludeImages: true,
		IncludeCSS:    true,
		IncludeJS:     true,
		IncludeOther:  false,
	}
}

// MergeScan 把 o 覆盖到默认值上：指定的键覆盖，未指定的键保留默认。o 可以为 nil。
func MergeScan(o *ScanOptions) ScanConfig {
	c := DefaultScan()
	if o == nil {
		return c
	}
	if o.IncludeImages != nil {
		c.IncludeImages = *o.IncludeImages
	}
	if o.IncludeCSS != nil {
		c.IncludeCSS = *o.IncludeCSS
	}
	if o.IncludeJS != nil {
		c.IncludeJS = *o.IncludeJS
	}
	if o.IncludeOther != nil {
		c.IncludeOther = *o.IncludeOther
	}
	return c
}

func Bool(b bool) *bool { return &b }

// EffectiveConfig 是 CLI 层合并后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Scan ScanOptions

	Format   string
	Log      bool
	LogLevel string

	ChromePath string
	Headless   bool
	// ProxyURL 只用于 scan --url --static 的 HTTP 抓取。
	ProxyURL string

	ServeAddr   string
	ExcludeDirs []string
	Concurrency int

	// ConfigFile 是实际读取的配置文件（未读取时为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// SetDefaults 写入非 scan.* 键的默认值，并启用环境变量覆盖（FINDINGFILES_LOG_LEVEL 等）。
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyFormat, DefaultFormat)
	v.SetDefault(KeyLog, true)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyChromeHeadless, true)
	v.SetDefault(KeyServeAddr, DefaultServeAddr)
	v.SetDefault(KeyConcurrency, DefaultConcurrency)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadInConfig 读取配置文件。
//
// 发现规则（固定）：
// 1) cfgFile 非空：必须存在，否则 config_not_found
// 2) cfgFile 为空：依次查找 <cwd>/findingfiles.{yaml,json,toml} 与 $HOME/ 下同名文件；都不存在不算错误
func ReadInConfig(v *viper.Viper, cwd, cfgFile string) error {
	if strings.TrimSpace(cfgFile) != "" {
		p := cfgFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return &Error{Code: ErrCodeNotFound, Path: p, Err: os.ErrNotExist}
			}
			return &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(cwd)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return &Error{Code: ErrCodeInvalid, Path: v.ConfigFileUsed(), Err: err}
	}
	return nil
}

// LoadEffective 从 viper 生成最终配置。
//
// 覆盖优先级由 viper 保证（固定）：flag（显式指定）> 环境变量 > 配置文件 > 默认值。
func LoadEffective(v *viper.Viper) (EffectiveConfig, error) {
	src := v.ConfigFileUsed()

	format, err := normalizeFormat(v.GetString(KeyFormat))
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: src, Err: err}
	}

	addr := strings.TrimSpace(v.GetString(KeyServeAddr))
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: src, Err: fmt.Errorf("serve.addr 无效：%q", addr)}
	}

	conc := v.GetInt(KeyConcurrency)
	if conc < 1 || conc > MaxConcurrency {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: src, Err: fmt.Errorf("concurrency 必须在 1..%d 之间，实际是 %d", MaxConcurrency, conc)}
	}

	var exclude []string
	for _, d := range v.GetStringSlice(KeyExcludeDirs) {
		if d = strings.TrimSpace(d); d != "" {
			exclude = append(exclude, d)
		}
	}

	return EffectiveConfig{
		Scan: ScanOptions{
			IncludeImages: boolIfSet(v, KeyIncludeImages),
			IncludeCSS:    boolIfSet(v, KeyIncludeCSS),
			IncludeJS:     boolIfSet(v, KeyIncludeJS),
			IncludeOther:  boolIfSet(v, KeyIncludeOther),
		},
		Format:      format,
		Log:         v.GetBool(KeyLog),
		LogLevel:    strings.TrimSpace(v.GetString(KeyLogLevel)),
		ChromePath:  strings.TrimSpace(v.GetString(KeyChromePath)),
		Headless:    v.GetBool(KeyChromeHeadless),
		ProxyURL:    strings.TrimSpace(v.GetString(KeyProxyURL)),
		ServeAddr:   addr,
		ExcludeDirs: exclude,
		Concurrency: conc,
		ConfigFile:  src,
	}, nil
}

func boolIfSet(v *viper.Viper, key string) *bool {
	if !v.IsSet(key) {
		return nil
	}
	return Bool(v.GetBool(key))
}

func normalizeFormat(f string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("format 只能是 text、json 或 markdown，实际是 %q", f)
	}
}
