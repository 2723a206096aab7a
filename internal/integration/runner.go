package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/valter-silva-au/dmb/pkg/models"
)

// Environment variables exported to every helper.
const (
	EnvSender   = "DMB_SENDER"
	EnvReceiver = "DMB_RECEIVER"
	EnvPlugin   = "IRC_PLUGIN"

	defaultLang = "en_US.utf8"
)

// ErrHelperNotFound is returned when the helper executable does not exist.
var ErrHelperNotFound = errors.New("helper not found")

// localeVars are forced to a single value so helpers see a consistent locale.
var localeVars = []string{"LANG", "LANGUAGE", "LC_ALL"}

// RunRequest describes one helper invocation.
type RunRequest struct {
	Path       string
	Argument   string
	Invocation models.InvocationContext
}

// RunResult captures the outcome of a helper that ran to completion.
// The exit code is reported but callers only act on Stdout.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner launches helper executables.
type Runner interface {
	// Run executes the helper and waits for it to terminate. It returns an
	// error only when the helper could not run to completion: missing
	// executable, start failure, death by signal or timeout.
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

type processRunner struct {
	timeout time.Duration
	environ func() []string
}

// NewProcessRunner creates a Runner that spawns child processes. A zero
// timeout lets helpers run for as long as they like.
func NewProcessRunner(timeout time.Duration) Runner {
	return &processRunner{timeout: timeout, environ: os.Environ}
}

// BuildEnv returns base with the invocation variables set and the locale
// variables normalized to base's LANG (or en_US.utf8 if unset). Existing
// entries for the overridden keys are dropped.
func BuildEnv(base []string, inv models.InvocationContext) []string {
	lang := defaultLang
	overridden := map[string]bool{EnvSender: true, EnvReceiver: true, EnvPlugin: true}
	for _, k := range localeVars {
		overridden[k] = true
	}

	env := make([]string, 0, len(base)+6)
	for _, kv := range base {
		key, value, _ := strings.Cut(kv, "=")
		if key == "LANG" && value != "" {
			lang = value
		}
		if overridden[key] {
			continue
		}
		env = append(env, kv)
	}

	env = append(env,
		EnvSender+"="+inv.Source,
		EnvReceiver+"="+inv.ReplyTarget,
		EnvPlugin+"=1",
	)
	for _, k := range localeVars {
		env = append(env, k+"="+lang)
	}
	return env
}

// Run starts the helper in its own directory with the single argument.
func (r *processRunner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("running helper: empty path")
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving helper path %s: %w", req.Path, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, req.Argument)
	cmd.Dir = filepath.Dir(path)
	cmd.Env = BuildEnv(r.environ(), req.Invocation)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()

	result := &RunResult{
		Stdout: strings.ToValidUTF8(stdoutBuf.String(), "�"),
		Stderr: strings.ToValidUTF8(stderrBuf.String(), "�"),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("running %s: %w", req.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return result, fmt.Errorf("running %s: killed by signal %s", req.Path, status.Signal())
		}
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("running %s: %w", req.Path, ErrHelperNotFound)
	}
	return result, fmt.Errorf("running %s: %w", req.Path, err)
}
