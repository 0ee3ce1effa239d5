package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestMergeScan_Defaults(t *testing.T) {
	c := MergeScan(nil)
	if !c.IncludeCSS || !c.IncludeJS || !c.IncludeImages || c.IncludeOther {
		t.Fatalf("默认值不正确：%+v", c)
	}
}

func TestMergeScan_OverrideOnlySpecified(t *testing.T) {
	c := MergeScan(&ScanOptions{IncludeJS: Bool(false), IncludeOther: Bool(true)})
	if !c.IncludeCSS || c.IncludeJS || !c.IncludeImages || !c.IncludeOther {
		t.Fatalf("合并结果不正确：%+v", c)
	}
}

func TestReadInConfig_ExplicitMissing(t *testing.T) {
	cwd := t.TempDir()
	v := viper.New()

	err := ReadInConfig(v, cwd, "nope.yaml")
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestReadInConfig_DiscoveredOptional(t *testing.T) {
	cwd := t.TempDir()
	v := viper.New()
	if err := ReadInConfig(v, cwd, ""); err != nil {
		t.Fatalf("未找到配置文件不应报错：%v", err)
	}
}

func TestLoadEffective_FileThenOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "findingfiles.yaml"), []byte("format: json\nscan:\n  include_images: false\nexclude_dirs: [\"vendor\", \" \"]\n"))

	v := viper.New()
	SetDefaults(v)
	if err := ReadInConfig(v, cwd, ""); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	eff, err := LoadEffective(v)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Format != FormatJSON {
		t.Fatalf("期望 format=json，实际=%q", eff.Format)
	}
	if eff.Scan.IncludeImages == nil || *eff.Scan.IncludeImages {
		t.Fatalf("期望 include_images=false，实际=%v", eff.Scan.IncludeImages)
	}
	if eff.Scan.IncludeCSS != nil {
		t.Fatalf("未指定的开关应为 nil")
	}
	if len(eff.ExcludeDirs) != 1 || eff.ExcludeDirs[0] != "vendor" {
		t.Fatalf("exclude_dirs 不正确：%v", eff.ExcludeDirs)
	}
	if eff.ServeAddr != DefaultServeAddr || !eff.Headless {
		t.Fatalf("默认值未生效：%+v", eff)
	}

	// 显式设置（相当于 CLI flag）覆盖配置文件。
	v.Set(KeyIncludeImages, true)
	v.Set(KeyFormat, "md")
	eff2, err := LoadEffective(v)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff2.Scan.IncludeImages == nil || !*eff2.Scan.IncludeImages {
		t.Fatalf("期望 include_images=true，实际=%v", eff2.Scan.IncludeImages)
	}
	if eff2.Format != FormatMarkdown {
		t.Fatalf("期望 md 归一为 markdown，实际=%q", eff2.Format)
	}
}

func TestLoadEffective_InvalidFormat(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyFormat, "xml")

	_, err := LoadEffective(v)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func TestLoadEffective_InvalidAddr(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyServeAddr, "no-port")

	_, err := LoadEffective(v)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func TestLoadEffective_Concurrency(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	eff, err := LoadEffective(v)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Concurrency != DefaultConcurrency {
		t.Fatalf("期望默认并发 %d，实际 %d", DefaultConcurrency, eff.Concurrency)
	}

	v.Set(KeyConcurrency, 0)
	if _, err := LoadEffective(v); Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
