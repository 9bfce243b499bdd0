package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/provekit/internal/exec"
	"github.com/ShayCichocki/provekit/internal/registry"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// fakeRunner records invocations and snapshots the proof file while the
// "process" is running.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []exec.Invocation
	contents map[string]string
	result   *exec.Result
	err      error
	delay    time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, inv exec.Invocation) (*exec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	if f.contents == nil {
		f.contents = map[string]string{}
	}
	for _, arg := range append(inv.Args, inv.StdinPath) {
		if data, err := os.ReadFile(arg); err == nil {
			f.contents[arg] = string(data)
		}
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.result, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &exec.Result{}, nil
}

func (f *fakeRunner) lastCall(t *testing.T) exec.Invocation {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestVerify_ScratchFileLifecycle(t *testing.T) {
	scratch := t.TempDir()
	runner := &fakeRunner{result: &exec.Result{ExitCode: 0, Output: []byte("unsat\n")}}
	v := New(runner, WithScratchDir(scratch))

	res, err := v.Verify(context.Background(), models.ProverZ3, []byte("(assert true)(check-sat)"), "")
	require.NoError(t, err)

	call := runner.lastCall(t)
	assert.Equal(t, "z3", call.Name)
	require.Len(t, call.Args, 1)
	path := call.Args[0]
	assert.Equal(t, ".smt2", filepath.Ext(path))
	assert.Equal(t, "(assert true)(check-sat)", runner.contents[path])

	assert.Equal(t, models.StatusVerified, res.Status)
	assert.Equal(t, "Proof verified", res.Message)
	assert.Equal(t, "unsat\n", res.ProverOutput)
	assert.Equal(t, models.ProverZ3, res.Prover)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "scratch file should be removed")
	assert.Empty(t, dirEntries(t, scratch), "scratch directory should be removed")
}

func TestVerify_NonZeroExitFails(t *testing.T) {
	runner := &fakeRunner{result: &exec.Result{ExitCode: 1, Output: []byte("sat\n")}}
	v := New(runner, WithScratchDir(t.TempDir()))

	res, err := v.Verify(context.Background(), models.ProverCVC5, []byte("(check-sat)"), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Equal(t, "Proof failed", res.Message)
	assert.Equal(t, "sat\n", res.ProverOutput)

	// CVC5 shares .smt2 with Z3 and uses its first extension for scratch files.
	assert.Equal(t, ".smt2", filepath.Ext(runner.lastCall(t).Args[0]))
}

func TestVerify_IsabelleBuildsSessionDirectory(t *testing.T) {
	runner := &fakeRunner{}
	v := New(runner)

	_, err := v.Verify(context.Background(), models.ProverIsabelle, nil, "/tmp/sess/A.thy")
	require.NoError(t, err)

	assert.Equal(t, []string{"isabelle", "build", "-d", "/tmp/sess", "-a"}, runner.lastCall(t).Argv())
}

func TestVerify_StdinAndFlagStrategies(t *testing.T) {
	runner := &fakeRunner{}
	v := New(runner, WithScratchDir(t.TempDir()))

	_, err := v.Verify(context.Background(), models.ProverHOLLight, []byte("prove_thm;;"), "")
	require.NoError(t, err)
	call := runner.lastCall(t)
	assert.Equal(t, []string{"hol_light"}, call.Argv())
	assert.Equal(t, ".ml", filepath.Ext(call.StdinPath))
	assert.Equal(t, "prove_thm;;", runner.contents[call.StdinPath])

	_, err = v.Verify(context.Background(), models.ProverPVS, nil, "theory.pvs")
	require.NoError(t, err)
	assert.Equal(t, []string{"pvs", "-batch", "theory.pvs"}, runner.lastCall(t).Argv())
}

func TestVerify_ExecutableOverride(t *testing.T) {
	runner := &fakeRunner{}
	v := New(runner, WithExecutable(models.ProverCoq, "/opt/coq/bin/coqc"))

	_, err := v.Verify(context.Background(), models.ProverCoq, nil, "Lemma.v")
	require.NoError(t, err)
	assert.Equal(t, "/opt/coq/bin/coqc", runner.lastCall(t).Name)
	assert.Equal(t, "/opt/coq/bin/coqc", v.Executable(models.ProverCoq))
	assert.Equal(t, "lean", v.Executable(models.ProverLean))
}

func TestVerify_SpawnFailureIsRecovered(t *testing.T) {
	scratch := t.TempDir()
	v := New(exec.NewRunner(), WithScratchDir(scratch),
		WithExecutable(models.ProverZ3, "provekit-no-such-z3"))

	res, err := v.Verify(context.Background(), models.ProverZ3, []byte("(check-sat)"), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, "Prover execution failed", res.Message)
	assert.Empty(t, res.ProverOutput)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	assert.Empty(t, dirEntries(t, scratch))
}

func TestVerify_TimeoutKeepsPartialOutput(t *testing.T) {
	runner := &fakeRunner{
		result: &exec.Result{Output: []byte("checking...")},
		err:    models.ErrTimeout,
	}
	v := New(runner, WithScratchDir(t.TempDir()))

	res, err := v.Verify(context.Background(), models.ProverLean, []byte("theorem x : True := trivial"), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTimeout, res.Status)
	assert.Equal(t, "Proof timed out", res.Message)
	assert.Equal(t, "checking...", res.ProverOutput)
}

func TestVerify_Cancelled(t *testing.T) {
	runner := &fakeRunner{err: errors.Join(models.ErrSubprocessFailed, context.Canceled)}
	v := New(runner, WithScratchDir(t.TempDir()))

	res, err := v.Verify(context.Background(), models.ProverAgda, []byte("module M where"), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, "Verification cancelled", res.Message)
}

func TestVerify_ProverNotFound(t *testing.T) {
	v := New(&fakeRunner{})

	_, err := v.Verify(context.Background(), models.ProverKind(12), []byte("x"), "")
	assert.ErrorIs(t, err, models.ErrProverNotFound)

	noRule := New(&fakeRunner{}, withLookup(func(k models.ProverKind) (registry.Prover, bool) {
		p, ok := registry.Lookup(k)
		p.Invocation = nil
		return p, ok
	}))
	_, err = noRule.Verify(context.Background(), models.ProverZ3, []byte("x"), "")
	assert.ErrorIs(t, err, models.ErrProverNotFound)
}

func TestVerify_ScratchDirUnavailable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	v := New(&fakeRunner{}, WithScratchDir(missing))

	_, err := v.Verify(context.Background(), models.ProverZ3, []byte("x"), "")
	assert.ErrorIs(t, err, models.ErrResourceExhausted)
}

func TestVerify_ConcurrentCallsUseDistinctScratchFiles(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	v := New(runner, WithScratchDir(t.TempDir()))

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.Verify(context.Background(), models.ProverZ3, []byte("(check-sat)"), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, c := range runner.calls {
		seen[c.Args[0]] = true
	}
	assert.Len(t, seen, n)
}

func TestVerify_CallerFileIsNeverDeleted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the prover")
	}

	dir := t.TempDir()
	proof := filepath.Join(dir, "goal.smt2")
	require.NoError(t, os.WriteFile(proof, []byte("(check-sat)"), 0644))

	fakeZ3 := filepath.Join(dir, "fake-z3")
	require.NoError(t, os.WriteFile(fakeZ3, []byte("#!/bin/sh\necho unsat\nexit 0\n"), 0755))

	v := New(exec.NewRunner(exec.WithTimeout(10*time.Second)), WithExecutable(models.ProverZ3, fakeZ3))

	first, err := v.Verify(context.Background(), models.ProverZ3, nil, proof)
	require.NoError(t, err)
	second, err := v.Verify(context.Background(), models.ProverZ3, nil, proof)
	require.NoError(t, err)

	assert.Equal(t, models.StatusVerified, first.Status)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, "unsat\n", second.ProverOutput)

	data, err := os.ReadFile(proof)
	require.NoError(t, err)
	assert.Equal(t, "(check-sat)", string(data))
}

func TestVerify_RealProcessExitCodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the prover")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-lean")
	// Accept proofs containing "trivial", reject everything else.
	body := "#!/bin/sh\nif grep -q trivial \"$1\"; then exit 0; fi\necho 'error: unsolved goals' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))

	v := New(exec.NewRunner(exec.WithTimeout(10*time.Second)),
		WithScratchDir(t.TempDir()),
		WithExecutable(models.ProverLean, script))

	ok, err := v.Verify(context.Background(), models.ProverLean, []byte("theorem t : True := trivial"), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, ok.Status)

	bad, err := v.Verify(context.Background(), models.ProverLean, []byte("theorem t : False := sorry"), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, bad.Status)
	assert.Contains(t, bad.ProverOutput, "unsolved goals")
}

func TestVerify_RealProcessTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the prover")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "slow-coq")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0755))

	scratch := t.TempDir()
	v := New(exec.NewRunner(exec.WithTimeout(150*time.Millisecond), exec.WithWaitDelay(time.Second)),
		WithScratchDir(scratch),
		WithExecutable(models.ProverCoq, script))

	res, err := v.Verify(context.Background(), models.ProverCoq, []byte("Lemma l : True."), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTimeout, res.Status)
	assert.Less(t, res.DurationMs, int64(10_000))
	assert.Empty(t, dirEntries(t, scratch))
}

func TestVerify_ContextDoneBeforeStart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses true(1) as the prover")
	}

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		ctx         context.Context
		wantStatus  models.ProofStatus
		wantMessage string
	}{
		{"expired deadline", expired, models.StatusTimeout, "Proof timed out"},
		{"cancelled", cancelled, models.StatusError, "Verification cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scratch := t.TempDir()
			v := New(exec.NewRunner(exec.WithTimeout(10*time.Second)),
				WithScratchDir(scratch),
				WithExecutable(models.ProverZ3, "true"))

			res, err := v.Verify(tt.ctx, models.ProverZ3, []byte("(check-sat)"), "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantMessage, res.Message)
			assert.Empty(t, dirEntries(t, scratch))
		})
	}
}
