// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metamap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cabinet/pkg/types"
)

func init() {
	PollInterval = time.Millisecond
}

const psRunning = `root  101  1  0 10:00 ?  00:00:05 java -Dtagger.port=1795 taggerServer
root  102  1  0 10:00 ?  00:00:09 java -Xmx2g wsd.server.DisambiguatorServer
`

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	mu      sync.Mutex
	calls   []string
	psCalls int32

	// psOutput returns the process list for the nth ps call (1-based).
	psOutput func(n int32) string
	runErr   error
	pipeFunc func(args []string, stdin io.Reader, stdout io.Writer) error
}

func (m *mockExecutor) record(name string, args ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
}

func (m *mockExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	m.record(name, args...)
	n := atomic.AddInt32(&m.psCalls, 1)
	if m.psOutput == nil {
		return nil, errors.New("ps failed")
	}
	return []byte(m.psOutput(n)), nil
}

func (m *mockExecutor) Run(_ context.Context, name string, args ...string) error {
	m.record(name, args...)
	return m.runErr
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	m.record(name, args...)
	if m.pipeFunc != nil {
		return m.pipeFunc(args, stdin, stdout)
	}
	return nil
}

func testRunner(t *testing.T, exec *mockExecutor) (*Runner, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r, err := newRunner(types.MetaMapConfig{
		Location:       t.TempDir(),
		StartupTimeout: 200 * time.Millisecond,
		Workers:        2,
	}, logger, exec)
	require.NoError(t, err)
	return r, hook
}

func TestNewValidatesLocation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "metamap")
	require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh"), 0o755))

	_, err := New(types.MetaMapConfig{Location: filepath.Join(dir, "missing")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = New(types.MetaMapConfig{Location: file}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	r, err := New(types.MetaMapConfig{Location: dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, r.Location())
	assert.False(t, r.Initialized())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/public_mm")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "public_mm"), got)

	got, err = expandHome("/opt/public_mm")
	require.NoError(t, err)
	assert.Equal(t, "/opt/public_mm", got)
}

func TestServersRunning(t *testing.T) {
	tests := []struct {
		name string
		ps   string
		want bool
	}{
		{"both", psRunning, true},
		{"tagger only", "java taggerServer\n", false},
		{"wsd only", "java wsd.server.DisambiguatorServer\n", false},
		{"none", "bash\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := testRunner(t, &mockExecutor{psOutput: func(int32) string { return tt.ps }})
			got, err := r.ServersRunning(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeAlreadyRunning(t *testing.T) {
	exec := &mockExecutor{psOutput: func(int32) string { return psRunning }}
	r, hook := testRunner(t, exec)

	require.NoError(t, r.Initialize(context.Background()))
	assert.True(t, r.Initialized())
	assert.Equal(t, []string{"ps -ef"}, exec.calls)
	assert.Equal(t, "metamap servers are already running", hook.LastEntry().Message)
}

func TestInitializeStartsServers(t *testing.T) {
	exec := &mockExecutor{psOutput: func(n int32) string {
		if n < 3 {
			return "bash\n"
		}
		return psRunning
	}}
	r, _ := testRunner(t, exec)

	require.NoError(t, r.Initialize(context.Background()))
	assert.True(t, r.Initialized())
	assert.Contains(t, exec.calls, filepath.Join(r.Location(), "bin", "skrmedpostctl")+" start")
	assert.Contains(t, exec.calls, filepath.Join(r.Location(), "bin", "wsdserverctl")+" start")
}

func TestInitializeTimesOut(t *testing.T) {
	exec := &mockExecutor{psOutput: func(int32) string { return "bash\n" }}
	r, _ := testRunner(t, exec)

	err := r.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
	assert.False(t, r.Initialized())
}

func TestInitializeStartError(t *testing.T) {
	exec := &mockExecutor{
		psOutput: func(int32) string { return "" },
		runErr:   errors.New("permission denied"),
	}
	r, _ := testRunner(t, exec)

	err := r.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting skrmedpostctl")
}

func TestRunRequiresInitialize(t *testing.T) {
	r, _ := testRunner(t, &mockExecutor{})

	_, err := r.Run(context.Background(), "lung cancer", types.FormatMMI)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = r.RunMany(context.Background(), []string{"a"}, types.FormatMMI, 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

const mmiOutput = `lung cancer
USER|MMI|5.18|Malignant neoplasm of lung|C0242379|[neop]|["Lung Cancer"-tx-1-"lung cancer"-noun-0]|TX|0/11|C04.588.894.797.520
USER|AA|LC|lung cancer|1|2|0|11|0:11
`

func TestRun(t *testing.T) {
	var gotArgs []string
	var gotStdin string
	exec := &mockExecutor{
		psOutput: func(int32) string { return psRunning },
		pipeFunc: func(args []string, stdin io.Reader, stdout io.Writer) error {
			gotArgs = args
			data, _ := io.ReadAll(stdin)
			gotStdin = string(data)
			if args[1] == "--JSONn" {
				_, err := io.WriteString(stdout, `{"AllDocuments":[]}`)
				return err
			}
			_, err := io.WriteString(stdout, mmiOutput)
			return err
		},
	}
	r, _ := testRunner(t, exec)
	require.NoError(t, r.Initialize(context.Background()))

	out, err := r.Run(context.Background(), "lung cancer", types.FormatMMI)
	require.NoError(t, err)
	assert.Equal(t, []string{"--silent", "-N", "-y"}, gotArgs)
	assert.Equal(t, "lung cancer\n", gotStdin)
	require.Len(t, out.Lines, 2)
	assert.True(t, strings.HasPrefix(out.Lines[0], "USER|MMI|"))

	out, err = r.Run(context.Background(), "lung cancer", types.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"--silent", "--JSONn", "-y", "--negex"}, gotArgs)
	assert.Equal(t, `{"AllDocuments":[]}`, out.Raw)

	_, err = r.Run(context.Background(), "x", "xml")
	assert.Error(t, err)
}

func TestRunMMI(t *testing.T) {
	exec := &mockExecutor{
		psOutput: func(int32) string { return psRunning },
		pipeFunc: func(_ []string, _ io.Reader, stdout io.Writer) error {
			_, err := io.WriteString(stdout, mmiOutput)
			return err
		},
	}
	r, _ := testRunner(t, exec)
	require.NoError(t, r.Initialize(context.Background()))

	records, err := r.RunMMI(context.Background(), "lung cancer")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "C0242379", records[0].CUI)
	assert.Equal(t, []string{"neop"}, records[0].SemanticTypes)
}

func TestRunMany(t *testing.T) {
	var inFlight, peak int32
	exec := &mockExecutor{
		psOutput: func(int32) string { return psRunning },
		pipeFunc: func(_ []string, stdin io.Reader, stdout io.Writer) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)

			data, _ := io.ReadAll(stdin)
			_, err := fmt.Fprintf(stdout, "%sUSER|MMI|1.00|%s|C1|[x]|t|TX|0/1|\n", data, strings.TrimSpace(string(data)))
			return err
		},
	}
	r, _ := testRunner(t, exec)
	require.NoError(t, r.Initialize(context.Background()))

	texts := []string{"a", "b", "c", "d", "e", "f"}
	outs, err := r.RunMany(context.Background(), texts, types.FormatMMI, 0)
	require.NoError(t, err)
	require.Len(t, outs, len(texts))
	for i, out := range outs {
		assert.Equal(t, i, out.Index)
		require.Len(t, out.Lines, 1)
		assert.Contains(t, out.Lines[0], "|"+texts[i]+"|")
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunManyError(t *testing.T) {
	exec := &mockExecutor{
		psOutput: func(int32) string { return psRunning },
		pipeFunc: func([]string, io.Reader, io.Writer) error { return errors.New("exit status 1") },
	}
	r, _ := testRunner(t, exec)
	require.NoError(t, r.Initialize(context.Background()))

	_, err := r.RunMany(context.Background(), []string{"a"}, types.FormatJSON, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}
