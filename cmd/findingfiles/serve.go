package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/findingfiles/internal/app/preview"
	"github.com/John-Robertt/findingfiles/internal/config"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [DIR]",
		Short: "启动本地预览服务，HTML 页面自动注入资源挂件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return a.runServe(cmd.Context(), dir)
		},
	}
	cmd.Flags().String("addr", config.DefaultServeAddr, "监听地址 host:port")
	_ = a.v.BindPFlag(config.KeyServeAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) runServe(ctx context.Context, dir string) error {
	h, err := preview.NewServer(dir, &a.eff.Scan, slog.Default())
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.eff.ServeAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(a.stderr, "预览服务：http://%s/\n", a.eff.ServeAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
