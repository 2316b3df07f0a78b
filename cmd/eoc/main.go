package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/user/eoc-response-sim/config"
	"github.com/user/eoc-response-sim/internal/game"
	"github.com/user/eoc-response-sim/internal/reports"
	"github.com/user/eoc-response-sim/internal/server"
	"github.com/user/eoc-response-sim/internal/tui"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "eoc",
	Short: "Emergency operations center disaster-response simulator",
	Long: `eoc runs a single emergency operations center session.
- play: coordinate a scenario from the terminal.
- serve: expose the session over HTTP and a websocket snapshot stream.
- reports: list the after-action reports of finished scenarios.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(serveCmd(), playCmd(), reportsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EOC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "./config/config.json", "path to configuration file")
	rootCmd.PersistentFlags().Bool("autopilot", false, "let the advisor resolve decisions")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("autopilot", rootCmd.PersistentFlags().Lookup("autopilot"))
}

// loadConfig reads the config file and applies flag and environment overrides
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetString("config"))
	if err != nil {
		return cfg, err
	}
	if viper.GetBool("autopilot") {
		cfg.Game.Autopilot = true
	}
	if port := viper.GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	return cfg, nil
}

func setupLogger(cfg config.ServerConfig, toFile bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}
	if toFile && cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zapConfig.OutputPaths = []string{cfg.LogFile}
		zapConfig.ErrorOutputPaths = []string{cfg.LogFile}
	}
	return zapConfig.Build()
}

// session bundles the store with everything that runs alongside it
type session struct {
	store    *game.SessionStore
	director *game.Director
	repo     *reports.Repository
	detach   func()
}

func newSession(cfg config.Config, logger *zap.Logger) (*session, error) {
	store := game.NewSessionStore()
	store.SetLogger(logger)

	catalog, err := game.NewDataLoader(cfg.Game.DataDir).LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load decision catalog: %w", err)
	}
	logger.Info("Loaded decision catalog", zap.String("data_dir", cfg.Game.DataDir))

	director := game.NewDirector(store, catalog, cfg.Game)
	director.SetLogger(logger)

	repo, err := reports.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	detach := reports.NewRecorder(repo, logger).Attach(store)

	return &session{store: store, director: director, repo: repo, detach: detach}, nil
}

func (s *session) Close() {
	s.director.Stop()
	s.detach()
	s.repo.Close()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg.Server, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			sess, err := newSession(cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			httpServer := server.New(sess.store, sess.repo, cfg, logger).HTTPServer()
			errChan := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			sess.director.Start(ctx)

			select {
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			case err := <-errChan:
				logger.Error("HTTP server stopped", zap.Error(err))
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("Shutting down")
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("port", "", "override the configured HTTP port")
	_ = viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Coordinate a scenario from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// the terminal belongs to the UI, so logs go to the log file
			logger, err := setupLogger(cfg.Server, true)
			if err != nil {
				return err
			}
			defer logger.Sync()

			sess, err := newSession(cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			sess.director.Start(cmd.Context())
			return tui.Run(sess.store)
		},
	}
}

func reportsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List after-action reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := reports.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer repo.Close()

			list, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			renderReports(os.Stdout, list)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of reports to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func renderReports(out io.Writer, list []reports.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"ID", "Ended", "Scenario", "Disaster", "Score", "Decisions", "Pending", "Time Left", "Tutorial"})
	for _, r := range list {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		tw.AppendRow(table.Row{
			id,
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.ScenarioName,
			r.Disaster,
			r.Score,
			r.CompletedDecisions,
			r.PendingDecisions,
			fmt.Sprintf("%.0fs", r.TimeRemaining),
			r.Tutorial,
		})
	}
	tw.Render()
}
