package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Runner abstracts command execution so packages can be unit-tested without
// touching real host networking (ping/sysctl/ifconfig/blueutil).
type Runner interface {
	// Output runs a command and returns its combined output, trimmed.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// Run runs a command for its side effect only.
	Run(ctx context.Context, name string, args ...string) error
}

// OSRunner executes commands on the host via os/exec.
type OSRunner struct{}

func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (r *OSRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	if err != nil {
		// Return whatever was produced; callers such as the prober still
		// inspect partial output of failed commands.
		if out != "" {
			return out, errors.New(out)
		}
		return "", err
	}
	return out, nil
}

func (r *OSRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.Output(ctx, name, args...)
	return err
}
