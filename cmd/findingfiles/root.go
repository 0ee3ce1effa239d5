package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/John-Robertt/findingfiles/internal"
	"github.com/John-Robertt/findingfiles/internal/config"
	"github.com/John-Robertt/findingfiles/internal/dom/chromedoc"
)

// errPartialFailure 表示至少一个页面扫描失败（报告已正常输出）。
var errPartialFailure = errors.New("部分页面扫描失败")

// app 持有一次命令执行的 viper 实例与生效配置；每个 root 命令一份，便于测试。
type app struct {
	v       *viper.Viper
	cfgFile string
	eff     config.EffectiveConfig

	noSandbox bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdin: stdin, stdout: stdout, stderr: stderr}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "findingfiles",
		Short: "列出 HTML 页面引用的样式表、脚本与图片",
		Long: `findingfiles 扫描 HTML 页面中的 <link rel="stylesheet">、<script src> 与 <img src>，
可以输出报告、把资源挂件注入页面，或启动一个自动注入挂件的本地预览服务。`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "配置文件（默认查找 ./findingfiles.yaml 与 $HOME/findingfiles.yaml）")
	pf.Bool("log", true, "输出日志到 stderr")
	pf.String("log-level", config.DefaultLogLevel, "日志级别：debug|info|warn|error")
	_ = a.v.BindPFlag(config.KeyLog, pf.Lookup("log"))
	_ = a.v.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))

	// 扫描开关对 scan / inject / serve 都生效；未显式指定时让位给配置文件与环境变量。
	pf.Bool("css", true, "包含样式表")
	pf.Bool("js", true, "包含脚本")
	pf.Bool("images", true, "包含图片")
	pf.Bool("other", false, "包含其它资源（保留开关，目前不产生记录）")
	_ = a.v.BindPFlag(config.KeyIncludeCSS, pf.Lookup("css"))
	_ = a.v.BindPFlag(config.KeyIncludeJS, pf.Lookup("js"))
	_ = a.v.BindPFlag(config.KeyIncludeImages, pf.Lookup("images"))
	_ = a.v.BindPFlag(config.KeyIncludeOther, pf.Lookup("other"))

	// Chrome 参数由 scan --url 与 inject --url 共用。
	pf.String("chrome-path", "", "Chrome/Chromium 可执行文件路径")
	pf.Bool("headless", true, "以 headless 模式运行 Chrome")
	pf.BoolVar(&a.noSandbox, "no-sandbox", false, "启动 Chrome 时关闭沙箱（容器环境中常需要）")
	_ = a.v.BindPFlag(config.KeyChromePath, pf.Lookup("chrome-path"))
	_ = a.v.BindPFlag(config.KeyChromeHeadless, pf.Lookup("headless"))

	root.AddCommand(a.newScanCmd(), a.newInjectCmd(), a.newServeCmd())
	return root
}

func (a *app) chromeOptions() chromedoc.Options {
	return chromedoc.Options{
		ChromePath: a.eff.ChromePath,
		Headless:   a.eff.Headless,
		NoSandbox:  a.noSandbox,
	}
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cwd, _ = filepath.Abs(cwd)

	if err := config.ReadInConfig(a.v, cwd, a.cfgFile); err != nil {
		return err
	}
	internal.InitLogging(a.v)

	eff, err := config.LoadEffective(a.v)
	if err != nil {
		return err
	}
	a.eff = eff
	return nil
}
