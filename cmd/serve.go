package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"storyboard/internal/app"
	"storyboard/internal/web"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storyboard web page",
	Long:  `Start the web page. Each browser gets its own in-memory session, discarded when the server stops.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, localhost:8080)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the page in the default browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	addr := serveAddr
	if addr == "" {
		addr = svc.Config().Server.Addr
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := web.New(svc, web.Options{Labels: app.KeyLabels(svc.Config())})
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving storyboard", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if serveOpen {
		url := pageURL(addr)
		if err := browser.OpenURL(url); err != nil {
			slog.Warn("Failed to open browser", "url", url, "error", err)
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down", "sessions", srv.Sessions())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func pageURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}
