package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/db"
	"github.com/danielhkuo/quadvote/metrics"
	"github.com/danielhkuo/quadvote/middleware"
	"github.com/danielhkuo/quadvote/plan"
	"github.com/danielhkuo/quadvote/router"
	"github.com/danielhkuo/quadvote/session"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "quadvote",
		Short:         "Quadratic voting API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), planCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var cfg cliparse.Config
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := cliparse.Resolve(cfg)
			if err != nil {
				return fmt.Errorf("parsing configuration: %w", err)
			}
			return serve(resolved, origins)
		},
	}
	cliparse.BindFlags(cmd.Flags(), &cfg)
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin (repeatable, default any)")
	return cmd
}

func serve(cfg cliparse.Config, origins []string) error {
	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	sessions, err := session.NewStore(cfg.SessionCache)
	if err != nil {
		return err
	}
	m := metrics.New(sessions.Len)

	mux := router.NewRouter(conn, cfg, sessions, m)

	server := http.Server{
		Handler: middleware.CORS(mux, origins...),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		server.Close()
	}()

	slog.Info("Listening", "port", cfg.Port, "credits", cfg.Credits)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}

func planCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Replay a YAML ballot plan through the allocator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := plan.Load(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			report, err := plan.Run(p)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Plan file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
