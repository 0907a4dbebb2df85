// Package codex implements the llm.Client interface for the codex CLI.
// The prompt goes to stdin of `codex exec` and the final agent message is read
// back from the file passed as --output-last-message.
package codex

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/llm"
	"github.com/voicebot/codexreview/internal/procexec"
	"github.com/voicebot/codexreview/pkg/errors"
)

// ClientName is the identifier for the codex client
const ClientName = "codex"

const (
	defaultCLIName   = "codex"
	tempDirPattern   = "codexreview-*"
	lastMessageFile  = "codex-last-message.txt"
	backendDirName   = "backend"
	operationExecute = "execute"
)

func init() {
	llm.Register(ClientName, NewClient)
}

// Client implements the llm.Client interface for the codex CLI
type Client struct {
	*llm.BaseClient
	cliPath string
}

// NewClient creates a new codex client
func NewClient(config *llm.ClientConfig) (llm.Client, error) {
	if config == nil {
		config = llm.NewClientConfig(ClientName)
	}

	cliPath := config.CLIPath
	if cliPath == "" {
		cliPath = defaultCLIName
	}

	return &Client{
		BaseClient: llm.NewBaseClient(config),
		cliPath:    cliPath,
	}, nil
}

// Available checks if the codex CLI can be found
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.cliPath)
	return err == nil
}

// Close releases any resources held by the client
func (c *Client) Close() error {
	return nil
}

// BuildArgs returns the `codex exec` arguments. Profile precedes model when both are set.
func BuildArgs(model, profile, outputPath string) []string {
	args := []string{"exec"}
	if profile != "" {
		args = append(args, "--profile", profile)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	return append(args,
		"--skip-git-repo-check",
		"--sandbox", "read-only",
		"--color", "never",
		"--output-last-message", outputPath,
		"-",
	)
}

// ResolveWorkDir picks the directory codex runs in. A configured path wins and
// is made absolute against cwd; a cwd named "backend" resolves to its parent.
func ResolveWorkDir(configured, cwd string) string {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if filepath.IsAbs(configured) {
			return configured
		}
		return filepath.Join(cwd, configured)
	}
	if filepath.Base(cwd) == backendDirName {
		return filepath.Dir(cwd)
	}
	return cwd
}

// Execute runs codex once and returns its final message.
func (c *Client) Execute(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	startTime := time.Now()
	c.LogRequest(req, operationExecute)

	resp, err := c.doExecute(ctx, req)

	c.LogResponse(req, resp, time.Since(startTime), err)
	return resp, err
}

func (c *Client) doExecute(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	config := c.GetConfig()

	tempDir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, llm.NewClientError(ClientName, operationExecute, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	outputPath := filepath.Join(tempDir, lastMessageFile)
	model := config.GetModel(req)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	cmd := procexec.Command{
		Name:    c.cliPath,
		Args:    BuildArgs(model, config.Profile, outputPath),
		Dir:     ResolveWorkDir(config.GetWorkDir(req), cwd),
		Stdin:   req.Prompt,
		Timeout: config.GetTimeout(req),
		Grace:   config.KillGrace,
	}

	c.Logger().Info("Executing codex command",
		zap.String("command", cmd.String()+" < [stdin prompt]"),
		zap.String("work_dir", cmd.Dir),
		zap.Duration("timeout", cmd.Timeout),
	)

	result, err := procexec.Run(ctx, cmd)
	if err != nil {
		return nil, llm.NewReasonError(ClientName, operationExecute, err.Error(), err)
	}

	rawOutput, readErr := os.ReadFile(outputPath)
	content := string(rawOutput)
	if readErr != nil {
		content = result.Stdout
	}

	if result.TimedOut {
		return nil, llm.NewReasonError(ClientName, operationExecute, string(errors.ErrCodeReviewTimeout), llm.ErrTimeout)
	}
	if result.ExitCode != 0 {
		reason := strings.TrimSpace(result.Stderr)
		if reason == "" {
			reason = fmt.Sprintf("%s_%d", errors.ErrCodeReviewExit, result.ExitCode)
		}
		c.Logger().Warn("codex exited with non-zero status",
			zap.Int("exit_code", result.ExitCode),
			zap.Int("stderr_len", len(result.Stderr)),
		)
		return nil, llm.NewReasonError(ClientName, operationExecute, reason, llm.ErrNonZeroExit)
	}

	resp := &llm.Response{
		Content:  content,
		Model:    model,
		Duration: result.Duration,
	}
	req.CopyMetadata(resp)
	return resp, nil
}
