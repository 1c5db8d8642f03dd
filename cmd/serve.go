package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/interviewlab/sentinel/clients"
	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/integrity"
	"github.com/interviewlab/sentinel/orchestrator"
	"github.com/interviewlab/sentinel/server"
	"github.com/interviewlab/sentinel/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	gin.SetMode(gin.ReleaseMode)

	store := session.NewStore()
	llm := clients.NewLLM(cfg.LLM)
	engine := orchestrator.NewEngine(store, llm, cfg, log)
	monitors := integrity.NewRegistry(cfg, store, log)

	catalog, err := config.LoadCatalog(cfg.Paths.Topics)
	if err != nil {
		log.WithError(err).Warn("topic catalog unavailable")
		catalog = nil
	}

	srv := server.New(cfg, engine, store, monitors, catalog, log)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	monitors.StopAll()
	return nil
}
