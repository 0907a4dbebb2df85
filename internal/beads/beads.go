// Package beads wraps the bd issue tracker CLI. Every call runs
// `bd --no-daemon ... --json` in the repository root.
package beads

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/procexec"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// Defaults for the bd CLI
const (
	DefaultBin     = "bd"
	DefaultTimeout = 20 * time.Second
)

// Issue statuses set from approval decisions
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Config holds bd client settings
type Config struct {
	Bin           string
	Dir           string
	ShowTimeout   time.Duration
	UpdateTimeout time.Duration
	KillGrace     time.Duration
}

// Client runs bd commands
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a bd client, filling unset fields with defaults
func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = DefaultBin
	}
	if cfg.ShowTimeout <= 0 {
		cfg.ShowTimeout = DefaultTimeout
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = DefaultTimeout
	}
	return &Client{cfg: cfg, logger: logger.Named("beads")}
}

// errorCodes maps a failed run to reason codes
type errorCodes struct {
	timeout errors.ErrorCode
	exit    errors.ErrorCode
}

var (
	showCodes     = errorCodes{timeout: errors.ErrCodeBDShowTimeout, exit: errors.ErrCodeBDShowExit}
	annotateCodes = errorCodes{timeout: errors.ErrCodeBDUpdateTimeout, exit: errors.ErrCodeBDUpdateExit}
	decisionCodes = errorCodes{timeout: errors.ErrCodeCallbackBDTimeout, exit: errors.ErrCodeCallbackBDExit}
)

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (procexec.Result, error) {
	cmd := procexec.Command{
		Name:    c.cfg.Bin,
		Args:    append([]string{"--no-daemon"}, args...),
		Dir:     c.cfg.Dir,
		Timeout: timeout,
		Grace:   c.cfg.KillGrace,
	}
	c.logger.Debug("Running bd", zap.String("command", cmd.String()))
	return procexec.Run(ctx, cmd)
}

// check turns a finished run into an error using the given reason codes.
// Timeout wins, then non-zero exit reported as trimmed stderr or <exit>_<code>.
func check(res procexec.Result, runErr error, codes errorCodes) error {
	if runErr != nil {
		return errors.Wrap(codes.exit, "failed to run bd", runErr)
	}
	if res.TimedOut {
		return errors.Reason(codes.timeout)
	}
	if res.ExitCode != 0 {
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			return errors.New(codes.exit, stderr)
		}
		return errors.Reasonf(codes.exit, res.ExitCode)
	}
	return nil
}

// Show loads an issue. An array payload yields its first object.
func (c *Client) Show(ctx context.Context, issueID string) (map[string]any, error) {
	res, err := c.run(ctx, c.cfg.ShowTimeout, "show", issueID, "--json")
	if err := check(res, err, showCodes); err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal([]byte(res.Stdout), &payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse bd show output", err)
	}
	switch v := payload.(type) {
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				return first, nil
			}
		}
	case map[string]any:
		return v, nil
	}
	return nil, nil
}

// AppendNotes appends a note to the issue.
func (c *Client) AppendNotes(ctx context.Context, issueID, note string) error {
	res, err := c.run(ctx, c.cfg.UpdateTimeout, "update", issueID, "--append-notes", note, "--json")
	return check(res, err, annotateCodes)
}

// UpdateStatus sets the issue status, appending a note when one is given.
func (c *Client) UpdateStatus(ctx context.Context, issueID, status, note string) error {
	args := []string{"update", issueID, "--status", status, "--json"}
	if note != "" {
		args = append(args, "--append-notes", note)
	}
	res, err := c.run(ctx, c.cfg.UpdateTimeout, args...)
	if err := check(res, err, decisionCodes); err != nil {
		c.logger.Warn("bd status update failed",
			zap.String(logger.FieldIssueID, issueID),
			zap.String("status", status),
			zap.Error(err),
		)
		return err
	}
	return nil
}

