// Package helm wraps the helm CLI, the external package manager this
// server delegates every repository, chart and release operation to.
package helm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/logger"
	"github.com/rudderhq/rudder/pkg/metrics"
)

// Runner executes helm with the given arguments and returns its stdout.
// Implementations classify unreachable-network failures as
// apperrors.KindNetwork so callers can branch on the error kind instead of
// matching message text.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// CommandError reports a helm invocation that ran but failed. Stderr carries
// helm's own diagnostic text.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("helm %s: %s", strings.Join(e.Args, " "), e.Stderr)
	}
	return fmt.Sprintf("helm %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CLI runs the helm binary found on PATH (or an explicit path).
type CLI struct {
	bin     string
	timeout time.Duration
	log     *zap.Logger
}

// NewCLI constructs a helm CLI runner. An empty binary defaults to "helm";
// a zero timeout disables the per-invocation deadline.
func NewCLI(bin string, timeout time.Duration) *CLI {
	if strings.TrimSpace(bin) == "" {
		bin = "helm"
	}
	return &CLI{bin: bin, timeout: timeout, log: logger.WithModule("helm")}
}

// Run executes helm and returns its stdout. Failures carry helm's stderr:
// network-indicating failures come back as KindNetwork AppErrors, everything
// else as *CommandError for the caller to classify.
func (c *CLI) Run(ctx context.Context, args ...string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	sub := subcommand(args)

	if err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		c.log.Debug("helm command failed",
			zap.Strings("args", args),
			zap.Duration("duration", time.Since(start)),
			zap.String("stderr", diag),
		)
		metrics.HelmInvocations.WithLabelValues(sub, "error").Inc()

		if indicatesNetworkFailure(diag) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.WrapKind(apperrors.KindNetwork, err,
				fmt.Sprintf("helm %s: %s", sub, diag))
		}
		return nil, &CommandError{Args: args, Stderr: diag, Err: err}
	}

	metrics.HelmInvocations.WithLabelValues(sub, "ok").Inc()
	return stdout.Bytes(), nil
}

// subcommand condenses an argument list into a metrics label, keeping the
// second token for two-word verbs such as "repo list" and "get values".
func subcommand(args []string) string {
	if len(args) == 0 {
		return "unknown"
	}
	switch args[0] {
	case "repo", "search", "get":
		if len(args) > 1 {
			return args[0] + " " + args[1]
		}
	}
	return args[0]
}

// indicatesNetworkFailure matches the diagnostics helm emits when a registry
// or the cluster is unreachable. Detection lives here, at the exec boundary,
// so everything downstream sees a typed KindNetwork error.
func indicatesNetworkFailure(diag string) bool {
	lower := strings.ToLower(diag)
	for _, marker := range []string{
		"timeout",
		"network",
		"connection",
		"no such host",
		"i/o timeout",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
