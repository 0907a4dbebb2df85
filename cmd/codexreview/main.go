// Package main is the entry point for codexreview.
// codexreview runs deferred Codex reviews for tasks and posts approval cards to Telegram.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/consts"
	"github.com/voicebot/codexreview/internal/api/handler"
	"github.com/voicebot/codexreview/internal/check"
	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/database"
	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/internal/server"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// Build information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the YAML configuration file
var configPath string

var rootCmd = &cobra.Command{
	Use:   "codexreview",
	Short: "codexreview - deferred Codex review worker",
	Long: `codexreview claims tasks whose deferred review is due, asks the Codex CLI
for a short summary, annotates the linked bd issue and posts a Telegram
approval card with Start and Cancel buttons.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review worker and HTTP API",
	Long: `Start the due-task scanner, the job dispatcher and the HTTP API.

On first run, use --check to interactively set up your environment:
  codexreview serve --check`,
	Run: runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one review job and print the result",
	RunE:  runOnce,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the environment and create missing files from templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return check.NewChecker(configPath).Run()
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token, or generate a new JWT secret",
	RunE:  runToken,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codexreview %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "config file path")

	rootCmd.AddCommand(serveCmd, runCmd, checkCmd, tokenCmd, versionCmd)

	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
	serveCmd.Flags().Bool("check", false, "run interactive environment check before starting server")

	runCmd.Flags().String("task-id", "", "task to review")
	runCmd.Flags().String("job-id", "", "job id recorded on the claim (generated when empty)")
	_ = runCmd.MarkFlagRequired("task-id")

	tokenCmd.Flags().String("subject", "operator", "token subject")
	tokenCmd.Flags().Bool("new-secret", false, "print a new random JWT secret and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe starts the worker and the API server
func runServe(cmd *cobra.Command, args []string) {
	if interactive, _ := cmd.Flags().GetBool("check"); interactive {
		if err := check.NewChecker(configPath).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Environment check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\n✓ Environment check completed")
	} else {
		result := check.NewChecker(configPath).RunNonInteractive()
		if !result.Success {
			check.PrintCheckResult(result)
			os.Exit(errors.ExitCodeConfigValidation)
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(os.Stderr, "[WARNING] %s\n", warn)
		}
		if len(result.Warnings) > 0 {
			fmt.Fprintln(os.Stderr)
		}
	}

	consts.SetStartedAt(time.Now())

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\n[ERROR] %v\n", err)
		os.Exit(errors.ExitCodeConfigValidation)
	}

	dataStore, cleanup, err := initRuntime(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("Starting codexreview", zap.String("version", Version))

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	app, err := server.NewApp(cfg, dataStore)
	if err != nil {
		logger.Fatal("Failed to create review app", zap.Error(err))
	}
	defer app.Close()

	srv := server.New(app, tel)
	srv.SetupRoutes()
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("codexreview is running", zap.String("address", cfg.Server.Address()))

	srv.WaitForShutdown()

	logger.Info("codexreview stopped")
}

// runOnce handles a single job in the foreground, the way a dispatcher worker would
func runOnce(cmd *cobra.Command, args []string) error {
	taskID, _ := cmd.Flags().GetString("task-id")
	jobID, _ := cmd.Flags().GetString("job-id")
	if jobID == "" {
		jobID = idgen.NewJobID()
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	dataStore, cleanup, err := initRuntime(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	app, err := server.NewApp(cfg, dataStore)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := app.Jobs.Handle(ctx, review.JobData{TaskID: taskID, JobID: jobID})
	printResult(result)
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("review job did not complete: %s", result.Error)
	}
	return nil
}

// runToken prints a signed API token for the configured secret
func runToken(cmd *cobra.Command, args []string) error {
	if newSecret, _ := cmd.Flags().GetBool("new-secret"); newSecret {
		fmt.Println(idgen.NewSecureSecret(48))
		return nil
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	subject, _ := cmd.Flags().GetString("subject")

	token, expiresAt, err := handler.NewAuthHandler(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry()).IssueToken(subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

// initRuntime opens the logger and the database. The returned func releases both.
func initRuntime(cfg *config.Config) (store.Store, func(), error) {
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	if err := database.Init(cfg.Database); err != nil {
		logger.Sync()
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}

	dataStore := store.NewStore(database.Get())
	if cfg.TaskLog.Enabled {
		logger.SetTaskLogHook(dataStore.TaskLog())
	}

	return dataStore, func() {
		if cfg.TaskLog.Enabled {
			logger.CloseTaskLogHook()
		}
		if err := database.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
		logger.Sync()
	}, nil
}

func printResult(result review.Result) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		return
	}

	c := color.New(color.FgGreen)
	switch {
	case result.Skipped:
		c = color.New(color.FgYellow)
	case !result.OK:
		c = color.New(color.FgRed)
	}
	c.Println(string(data))
}
