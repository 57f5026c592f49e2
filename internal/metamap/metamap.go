// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metamap runs a local MetaMap install: it checks for and starts the
// tagger and word sense disambiguation servers, then pipes text through the
// metamap binary in MMI or JSON mode.
package metamap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/cabinet/pkg/types"
)

// ErrNotInitialized is returned by Run before Initialize has succeeded.
var ErrNotInitialized = errors.New("metamap is not initialized, run Initialize first")

// Process markers that show up in `ps -ef` when the servers are up.
const (
	taggerMarker = "taggerServer"
	wsdMarker    = "wsd.server.DisambiguatorServer"
)

// PollInterval is the first wait between server checks after starting the
// servers. Tests override this to avoid real sleeps.
var PollInterval = time.Second

// Output is the result of one MetaMap run.
type Output struct {
	Index  int                 `json:"index" yaml:"index"`
	Format types.MetaMapFormat `json:"format" yaml:"format"`

	// Lines holds MMI output lines, without the echoed input line.
	Lines []string `json:"lines,omitempty" yaml:"lines,omitempty"`

	// Raw holds the JSON output as printed by MetaMap.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Runner runs MetaMap from a public_mm install.
type Runner struct {
	location       string
	binary         string
	startupTimeout time.Duration
	workers        int
	exec           executor
	log            logrus.FieldLogger
	initialized    atomic.Bool
}

// New validates cfg.Location and returns a Runner. The location must be an
// existing directory, normally the public_mm directory.
func New(cfg types.MetaMapConfig, log logrus.FieldLogger) (*Runner, error) {
	return newRunner(cfg, log, defaultExec)
}

func newRunner(cfg types.MetaMapConfig, log logrus.FieldLogger, exec executor) (*Runner, error) {
	location, err := expandHome(cfg.Location)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("metamap location %s: %w", location, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("metamap location %s is not a directory, expected the public_mm directory", location)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	r := &Runner{
		location:       location,
		binary:         cfg.Binary,
		startupTimeout: cfg.StartupTimeout,
		workers:        cfg.Workers,
		exec:           exec,
		log:            log,
	}
	if r.binary == "" {
		r.binary = "metamap"
	}
	if r.startupTimeout <= 0 {
		r.startupTimeout = 60 * time.Second
	}
	if r.workers <= 0 {
		r.workers = 4
	}
	return r, nil
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// Location returns the resolved public_mm directory.
func (r *Runner) Location() string { return r.location }

// Initialized reports whether Initialize has succeeded.
func (r *Runner) Initialized() bool { return r.initialized.Load() }

// ServersRunning reports whether both the tagger server and the WSD server
// appear in the process list.
func (r *Runner) ServersRunning(ctx context.Context) (bool, error) {
	out, err := r.exec.Output(ctx, "ps", "-ef")
	if err != nil {
		return false, fmt.Errorf("listing processes: %w", err)
	}
	ps := string(out)
	return strings.Contains(ps, taggerMarker) && strings.Contains(ps, wsdMarker), nil
}

// Initialize makes sure the MetaMap servers are running. When they are not it
// starts them and polls with exponential backoff until they come up or the
// startup timeout passes.
func (r *Runner) Initialize(ctx context.Context) error {
	running, err := r.ServersRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		r.log.Info("metamap servers are already running")
		r.initialized.Store(true)
		return nil
	}

	r.log.Warn("metamap servers are not running, starting them")
	for _, ctl := range []string{"skrmedpostctl", "wsdserverctl"} {
		bin := filepath.Join(r.location, "bin", ctl)
		if err := r.exec.Run(ctx, bin, "start"); err != nil {
			return fmt.Errorf("starting %s: %w", ctl, err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = PollInterval
	b.MaxElapsedTime = r.startupTimeout
	b.Reset()

	errDown := errors.New("servers not up")
	err = backoff.RetryNotify(func() error {
		running, err := r.ServersRunning(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !running {
			return errDown
		}
		return nil
	}, backoff.WithContext(b, ctx), func(_ error, wait time.Duration) {
		r.log.WithField("wait", wait).Debug("waiting for metamap servers")
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, errDown) {
			return fmt.Errorf("metamap servers failed to start within %v, check the install at %s", r.startupTimeout, r.location)
		}
		return err
	}

	r.log.Info("metamap servers are now running")
	r.initialized.Store(true)
	return nil
}

func (r *Runner) args(format types.MetaMapFormat) ([]string, error) {
	switch format {
	case types.FormatMMI, "":
		// silent, fielded MMI, word sense disambiguation
		return []string{"--silent", "-N", "-y"}, nil
	case types.FormatJSON:
		// silent, unformatted JSON, word sense disambiguation, negation
		return []string{"--silent", "--JSONn", "-y", "--negex"}, nil
	default:
		return nil, fmt.Errorf("unknown metamap format %q", format)
	}
}

// Run pipes text through MetaMap. MMI output drops the first line, which
// echoes the input; JSON output is returned as printed.
func (r *Runner) Run(ctx context.Context, text string, format types.MetaMapFormat) (Output, error) {
	if !r.Initialized() {
		return Output{}, ErrNotInitialized
	}
	args, err := r.args(format)
	if err != nil {
		return Output{}, err
	}
	if format == "" {
		format = types.FormatMMI
	}

	var stdout bytes.Buffer
	if err := r.exec.RunPiped(ctx, r.binary, args, strings.NewReader(text+"\n"), &stdout); err != nil {
		return Output{}, fmt.Errorf("running %s: %w", r.binary, err)
	}

	out := Output{Format: format}
	if format == types.FormatJSON {
		out.Raw = stdout.String()
		return out, nil
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) > 1 {
		out.Lines = lines[1:]
	}
	return out, nil
}

// RunMMI runs text in MMI mode and parses every MMI line. Other line types
// (such as AA abbreviation lines) are skipped.
func (r *Runner) RunMMI(ctx context.Context, text string) ([]types.MMIRecord, error) {
	out, err := r.Run(ctx, text, types.FormatMMI)
	if err != nil {
		return nil, err
	}

	return ParseMMILines(out.Lines)
}

// RunMany runs texts in parallel with at most workers concurrent MetaMap
// processes. Zero uses the configured worker count. Outputs keep input order.
func (r *Runner) RunMany(ctx context.Context, texts []string, format types.MetaMapFormat, workers int) ([]Output, error) {
	if !r.Initialized() {
		return nil, ErrNotInitialized
	}
	if workers <= 0 {
		workers = r.workers
	}

	outputs := make([]Output, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, text := range texts {
		g.Go(func() error {
			out, err := r.Run(gctx, text, format)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out.Index = i
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
