package internal

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/John-Robertt/findingfiles/internal/config"
)

// InitLogging 按 viper 的 log / log_level 设置进程默认 logger。
// 日志一律写 stderr，stdout 只留给扫描结果。
func InitLogging(v *viper.Viper) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(config.KeyLogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = os.Stderr
	if !v.GetBool(config.KeyLog) {
		w = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}
