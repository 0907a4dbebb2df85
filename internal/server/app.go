package server

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/beads"
	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/llm"
	"github.com/voicebot/codexreview/internal/llm/codex"
	"github.com/voicebot/codexreview/internal/prompt"
	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/internal/telegram"
	"github.com/voicebot/codexreview/pkg/logger"
)

// App holds the review components shared by the server and the one-shot run
type App struct {
	Config    *config.Config
	Store     store.Store
	Beads     *beads.Client
	Bot       *telegram.Client
	Agent     llm.Client
	Cards     *prompt.Loader
	Jobs      *review.Handler
	Callbacks *review.CallbackHandler
}

// NewApp wires the review handler and its collaborators from cfg
func NewApp(cfg *config.Config, s store.Store) (*App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	workDir := codex.ResolveWorkDir(cfg.Review.Workdir, cwd)

	agentCfg := llm.NewClientConfig(codex.ClientName).
		WithCLIPath(cfg.Review.CodexBin).
		WithDefaultModel(cfg.Review.Model).
		WithProfile(cfg.Review.Profile).
		WithDefaultTimeout(cfg.Review.Timeout()).
		WithKillGrace(cfg.Review.KillGrace()).
		WithWorkDir(workDir)
	agent, err := llm.Create(codex.ClientName, agentCfg)
	if err != nil {
		return nil, err
	}
	if !agent.Available() {
		logger.Warn("codex CLI not found on PATH, reviews will fall back to task fields",
			zap.String("codex_bin", cfg.Review.CodexBin),
		)
	}

	bd := beads.New(beads.Config{
		Bin:           cfg.Beads.Bin,
		Dir:           workDir,
		ShowTimeout:   cfg.Beads.ShowTimeout(),
		UpdateTimeout: cfg.Beads.UpdateTimeout(),
		KillGrace:     cfg.Review.KillGrace(),
	})

	bot := telegram.NewClient(telegram.ClientConfig{
		Token:      cfg.Telegram.BotToken,
		APIBaseURL: cfg.Telegram.APIBaseURL,
		Timeout:    cfg.Telegram.Timeout(),
	})
	if !bot.HasToken() {
		logger.Warn("Telegram bot token is not configured, approval cards will fail")
	}
	notifier := telegram.NewNotifier(bot, telegram.NotifierConfig{
		ChatID:   cfg.Telegram.ChatID,
		ThreadID: cfg.Telegram.ThreadID,
	})

	// The card is looked up from the process cwd, not the codex work dir.
	cards := prompt.NewLoader(cfg.Review.PromptCardPath)

	jobs := review.NewHandler(review.Deps{
		Tasks:      s.Task(),
		Cards:      cards,
		Issues:     bd,
		Runner:     review.NewCodexRunner(agent),
		Notifier:   notifier,
		RetryDelay: cfg.Review.RetryDelay(),
	})

	logger.Info("Review components wired",
		zap.String("workdir", workDir),
		zap.String("codex_bin", cfg.Review.CodexBin),
		zap.String("bd_bin", cfg.Beads.Bin),
		zap.Duration("codex_timeout", cfg.Review.Timeout()),
		zap.Duration("retry_delay", cfg.Review.RetryDelay()),
	)

	return &App{
		Config:    cfg,
		Store:     s,
		Beads:     bd,
		Bot:       bot,
		Agent:     agent,
		Cards:     cards,
		Jobs:      jobs,
		Callbacks: review.NewCallbackHandler(s.Task(), bd, time.Now),
	}, nil
}

// Close releases the agent client
func (a *App) Close() error {
	return a.Agent.Close()
}
