package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/m8prep/internal/config"
	"github.com/backmassage/m8prep/internal/ffmpeg"
	"github.com/backmassage/m8prep/internal/logging"
	"github.com/backmassage/m8prep/internal/probe"
)

// --- Fixtures ---

// fakeConverter writes a small file at the job output (resolved against the
// destination filesystem) or fails for sources listed in fail.
type fakeConverter struct {
	dest  billy.Filesystem
	fail  map[string]error // keyed by source base name
	delay time.Duration

	mu     sync.Mutex
	jobs   []ffmpeg.Job
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeConverter) Convert(ctx context.Context, job ffmpeg.Job) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()

	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	rel, err := filepath.Rel(f.dest.Root(), job.Output)
	if err != nil {
		return err
	}
	if err := util.WriteFile(f.dest, rel, []byte("RIFF"+job.Source), 0o644); err != nil {
		return err
	}
	if err, ok := f.fail[filepath.Base(job.Source)]; ok {
		return err
	}
	return nil
}

func (f *fakeConverter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// fakeProber returns a canned result per source base name; unknown names get
// a single 16-bit PCM stream.
type fakeProber struct {
	results map[string]*probe.Result
}

func (p *fakeProber) Probe(_ context.Context, path string) (*probe.Result, error) {
	if r, ok := p.results[filepath.Base(path)]; ok {
		if r == nil {
			return nil, errors.New("ffprobe: invalid data")
		}
		return r, nil
	}
	return audioResult(1.0), nil
}

func audioResult(seconds float64) *probe.Result {
	return &probe.Result{AudioStreams: []probe.AudioStream{{
		Codec: "pcm_s16le", SampleFmt: "s16", SampleRate: 44100, Channels: 1,
		BitsPerSample: 16, Duration: seconds,
	}}}
}

type testEnv struct {
	src, dest billy.Filesystem
	cfg       *config.Config
	conv      *fakeConverter
	logBuf    *bytes.Buffer
}

func newTestEnv(t *testing.T, files ...string) *testEnv {
	t.Helper()
	root := memfs.New()
	src, err := root.Chroot("/src")
	require.NoError(t, err)
	dest, err := root.Chroot("/dest")
	require.NoError(t, err)
	require.NoError(t, src.MkdirAll("", 0o755))

	for _, f := range files {
		require.NoError(t, util.WriteFile(src, f, []byte("data"), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.SourceDir = "/src"
	cfg.DestDir = "/dest"
	cfg.ErrorLog = filepath.Join(t.TempDir(), "error.log")

	return &testEnv{
		src:    src,
		dest:   dest,
		cfg:    &cfg,
		conv:   &fakeConverter{dest: dest},
		logBuf: &bytes.Buffer{},
	}
}

func (e *testEnv) deps() Deps {
	return Deps{
		Source:    e.src,
		Dest:      e.dest,
		Converter: e.conv,
		Log:       logging.New(e.logBuf, e.logBuf, true),
	}
}

func (e *testEnv) run(t *testing.T) *Result {
	t.Helper()
	res, err := Run(context.Background(), e.cfg, e.deps())
	require.NoError(t, err)
	return res
}

func exists(fs billy.Filesystem, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

func plannedDests(res *Result) []string {
	var out []string
	for _, e := range res.Planned {
		out = append(out, e.Dest)
	}
	return out
}

// --- Discover tests ---

func TestDiscover_SortedHiddenSkipped(t *testing.T) {
	env := newTestEnv(t,
		"b.wav",
		"a/z.wav",
		"a/c.WAV",
		".hidden.wav",
		"._b.wav",
		".git/obj.wav",
		"notes.txt",
	)

	var rels []string
	var supported []bool
	for e, err := range Discover(env.src, []string{"wav"}) {
		require.NoError(t, err)
		rels = append(rels, e.Rel)
		supported = append(supported, e.Supported)
	}

	assert.Equal(t, []string{"a/c.WAV", "a/z.wav", "b.wav", "notes.txt"}, rels)
	assert.Equal(t, []bool{true, true, true, false}, supported)
}

func TestDiscover_EntryFields(t *testing.T) {
	env := newTestEnv(t, "Pack/Kick.AIF")

	for e, err := range Discover(env.src, []string{"*.aif"}) {
		require.NoError(t, err)
		assert.Equal(t, "Pack/Kick.AIF", e.Rel)
		assert.Equal(t, "/src/Pack/Kick.AIF", e.Path)
		assert.Equal(t, "aif", e.Ext)
		assert.Equal(t, int64(4), e.Size)
		assert.True(t, e.Supported)
	}
}

func TestDiscover_EarlyBreak(t *testing.T) {
	env := newTestEnv(t, "a.wav", "b.wav", "c.wav")

	var got []string
	for e := range Discover(env.src, []string{"wav"}) {
		got = append(got, e.Rel)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a.wav", "b.wav"}, got)
}

// --- Run tests ---

func TestRun_ConvertsAndFlattens(t *testing.T) {
	env := newTestEnv(t,
		"Drums/Kick 01.wav",
		"Drums/Snare.flac",
		"Loops/Break 90bpm.mp3",
		"readme.txt",
	)

	res := env.run(t)

	assert.Equal(t, 4, res.Stats.Found)
	assert.Equal(t, 1, res.Stats.Ignored)
	assert.Equal(t, 3, res.Stats.Converted)
	assert.Zero(t, res.Stats.Failed)
	assert.Equal(t, int64(12), res.Stats.InputBytes)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.Interrupted)

	assert.Equal(t, []string{"drums/kick-01.wav", "drums/snare.wav", "loops/break-90bpm.wav"}, plannedDests(res))
	for _, d := range plannedDests(res) {
		assert.True(t, exists(env.dest, d), d)
		assert.False(t, exists(env.dest, d+partialSuffix), d)
	}

	require.Len(t, env.conv.jobs, 3)
	job := env.conv.jobs[0]
	assert.Equal(t, "/src/Drums/Kick 01.wav", job.Source)
	assert.Equal(t, "/dest/drums/kick-01.wav.partial", job.Output)
	assert.Equal(t, 16, job.BitDepth)

	_, err := os.Stat(env.cfg.ErrorLog)
	assert.True(t, os.IsNotExist(err), "no failure log without failures")
}

func TestRun_SkipExistingIsIncremental(t *testing.T) {
	env := newTestEnv(t, "Drums/Kick.wav", "Drums/Snare.wav")

	first := env.run(t)
	require.Equal(t, 2, first.Stats.Converted)
	require.Equal(t, 2, env.conv.calls())

	second := env.run(t)
	assert.Equal(t, 2, second.Stats.Skipped)
	assert.Zero(t, second.Stats.Converted)
	assert.Equal(t, 2, env.conv.calls(), "no conversion on an unchanged tree")

	require.NoError(t, util.WriteFile(env.src, "Drums/Clap.wav", []byte("data"), 0o644))
	third := env.run(t)
	assert.Equal(t, 1, third.Stats.Converted)
	assert.Equal(t, 2, third.Stats.Skipped)
	assert.Equal(t, 3, env.conv.calls())
}

func TestRun_ForceOverwrites(t *testing.T) {
	env := newTestEnv(t, "Drums/Kick.wav")
	env.run(t)

	env.cfg.SkipExisting = false
	res := env.run(t)

	assert.Equal(t, 1, res.Stats.Converted)
	assert.Zero(t, res.Stats.Skipped)
	assert.Equal(t, 2, env.conv.calls())
	assert.True(t, exists(env.dest, "drums/kick.wav"))
}

func TestRun_CollisionsNumberedInOrder(t *testing.T) {
	env := newTestEnv(t, "Pack/Kick.aif", "Pack/Kick.wav", "Pack/kick.flac")

	res := env.run(t)

	assert.Equal(t, []string{"pack/kick.wav", "pack/kick_01.wav", "pack/kick_02.wav"}, plannedDests(res))
	assert.Equal(t, 2, res.Stats.Collisions)
	assert.Equal(t, 3, res.Stats.Converted)
	assert.Contains(t, env.logBuf.String(), "Name collision: Pack/Kick.wav -> pack/kick_01.wav")

	// A second run maps identically and skips everything.
	again := env.run(t)
	assert.Equal(t, plannedDests(res), plannedDests(again))
	assert.Equal(t, 3, again.Stats.Skipped)
}

func TestRun_FailureContinuesAndIsLogged(t *testing.T) {
	env := newTestEnv(t, "Pack/Bad.wav", "Pack/Good.wav", "Pack/Worse.wav")
	env.conv.fail = map[string]error{
		"Bad.wav":   &ffmpeg.ConversionError{Reason: "corrupt or truncated input", Attempts: 2},
		"Worse.wav": errors.New("exec: not started"),
	}

	res := env.run(t)

	assert.Equal(t, 1, res.Stats.Converted)
	assert.Equal(t, 2, res.Stats.Failed)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "Pack/Bad.wav", res.Failures[0].Entry.Rel)
	assert.Equal(t, "corrupt or truncated input", res.Failures[0].Reason)
	assert.Equal(t, "conversion failed: exec: not started", res.Failures[1].Reason)

	assert.False(t, exists(env.dest, "pack/bad.wav"))
	assert.False(t, exists(env.dest, "pack/bad.wav"+partialSuffix), "partial output removed")
	assert.True(t, exists(env.dest, "pack/good.wav"))

	data, err := os.ReadFile(env.cfg.ErrorLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run="+res.RunID+" Pack/Bad.wav -> pack/bad.wav: corrupt or truncated input")

	// The log is appended, never truncated.
	env.run(t)
	data, err = os.ReadFile(env.cfg.ErrorLog)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 4)
}

func TestRun_DryRun(t *testing.T) {
	env := newTestEnv(t, "Drums/Kick.wav", "Drums/Snare.wav")
	env.cfg.DryRun = true

	res := env.run(t)

	assert.Equal(t, 2, res.Stats.Planned)
	assert.Zero(t, env.conv.calls())
	assert.False(t, exists(env.dest, ""), "destination not created in dry run")
	assert.Contains(t, env.logBuf.String(), "[DRY] Drums/Kick.wav -> drums/kick.wav")
}

func TestRun_ProberRejectsSilentFiles(t *testing.T) {
	env := newTestEnv(t, "Fx/Blank.wav", "Fx/Broken.wav", "Fx/Riser.wav")
	deps := env.deps()
	deps.Prober = &fakeProber{results: map[string]*probe.Result{
		"Blank.wav":  {OtherStreams: 1},
		"Broken.wav": nil,
	}}

	res, err := Run(context.Background(), env.cfg, deps)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Converted)
	assert.Equal(t, 2, res.Stats.Failed)
	assert.Equal(t, 1, env.conv.calls(), "only the file with audio is converted")
	assert.Equal(t, "no audio stream", res.Failures[0].Reason)
	assert.Equal(t, "probe failed: ffprobe: invalid data", res.Failures[1].Reason)
}

func TestRun_ParallelWorkers(t *testing.T) {
	var files []string
	for _, c := range "abcdefghijklmnopqrst" {
		files = append(files, "Hits/"+string(c)+"-hit.wav")
	}
	env := newTestEnv(t, files...)
	env.dest = &lockedFS{Filesystem: env.dest}
	env.conv.dest = env.dest
	env.cfg.Jobs = 4
	env.conv.delay = 5 * time.Millisecond

	res := env.run(t)

	assert.Equal(t, 20, res.Stats.Converted)
	assert.Equal(t, 20, env.conv.calls())
	assert.LessOrEqual(t, env.conv.peak.Load(), int32(4))
	assert.Len(t, res.Planned, 20)
}

func TestRun_CancelledContext(t *testing.T) {
	env := newTestEnv(t, "a.wav", "b.wav")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, env.cfg, env.deps())
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Zero(t, env.conv.calls())
}

func TestRun_SetupErrors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		env := newTestEnv(t)
		missing, err := memfs.New().Chroot("/nope")
		require.NoError(t, err)
		deps := env.deps()
		deps.Source = missing

		_, err = Run(context.Background(), env.cfg, deps)
		var se *SetupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "source", se.Op)
		assert.ErrorIs(t, err, ErrSourceUnreadable)
	})

	t.Run("unwritable destination", func(t *testing.T) {
		env := newTestEnv(t, "a.wav")
		deps := env.deps()
		deps.Dest = readOnlyFS{env.dest}

		_, err := Run(context.Background(), env.cfg, deps)
		assert.ErrorIs(t, err, ErrDestUnwritable)
		assert.Zero(t, env.conv.calls())
	})

	t.Run("missing converter", func(t *testing.T) {
		env := newTestEnv(t, "a.wav")
		deps := env.deps()
		deps.Converter = nil

		_, err := Run(context.Background(), env.cfg, deps)
		var se *SetupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "dependencies", se.Op)
		assert.False(t, exists(env.dest, "a.wav"))

		env.cfg.DryRun = true
		res, err := Run(context.Background(), env.cfg, deps)
		require.NoError(t, err, "a dry run needs no converter")
		assert.Equal(t, 1, res.Stats.Planned)
	})

	t.Run("invalid naming options", func(t *testing.T) {
		env := newTestEnv(t, "a.wav")
		env.cfg.MaxFileLength = 3

		_, err := Run(context.Background(), env.cfg, env.deps())
		var se *SetupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "config", se.Op)
	})
}

// lockedFS serializes the metadata operations the runner and the fake
// converter use; memfs is not safe for concurrent use.
type lockedFS struct {
	billy.Filesystem
	mu sync.Mutex
}

func (l *lockedFS) Create(name string) (billy.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Create(name)
}

func (l *lockedFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.OpenFile(name, flag, perm)
}

func (l *lockedFS) Stat(name string) (os.FileInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Stat(name)
}

func (l *lockedFS) Rename(from, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Rename(from, to)
}

func (l *lockedFS) Remove(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Remove(name)
}

func (l *lockedFS) MkdirAll(name string, perm os.FileMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.MkdirAll(name, perm)
}

// readOnlyFS refuses to create files.
type readOnlyFS struct{ billy.Filesystem }

func (readOnlyFS) Create(string) (billy.File, error) { return nil, os.ErrPermission }

func (readOnlyFS) OpenFile(string, int, os.FileMode) (billy.File, error) {
	return nil, os.ErrPermission
}

// --- Failure log ---

func TestWriteFailureLog(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := WriteFailureLog(&buf, "run-1", now, []Outcome{
		{State: StateFailed, Entry: SourceEntry{Rel: "A/b.wav", Dest: "a/b.wav"}, Reason: "no audio stream"},
		{State: StateFailed, Entry: SourceEntry{Rel: "Broken"}, Reason: "unreadable directory"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"2024-05-01T12:00:00Z run=run-1 A/b.wav -> a/b.wav: no audio stream\n"+
			"2024-05-01T12:00:00Z run=run-1 Broken -> -: unreadable directory\n",
		buf.String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "converted", StateConverted.String())
	assert.Equal(t, "planned", StatePlanned.String())
	assert.Equal(t, "unknown", State(42).String())
}

// --- Analyze ---

func TestAnalyze_FlagsLongSamples(t *testing.T) {
	env := newTestEnv(t, "a.wav", "b.wav", "c.wav", "d.wav", "e.wav", "loop.wav", "notes.txt")
	deps := env.deps()
	deps.Prober = &fakeProber{results: map[string]*probe.Result{
		"a.wav":    audioResult(1.0),
		"b.wav":    audioResult(1.1),
		"c.wav":    audioResult(1.2),
		"d.wav":    audioResult(1.3),
		"e.wav":    audioResult(1.4),
		"loop.wav": audioResult(60),
	}}

	var out bytes.Buffer
	rep, err := Analyze(context.Background(), env.cfg, deps, &out)
	require.NoError(t, err)

	require.Len(t, rep.Rows, 6)
	assert.Equal(t, 1, rep.Ignored)
	assert.Equal(t, 1, rep.Extremes)
	assert.Zero(t, rep.Outliers)
	assert.True(t, rep.Durations.Valid)
	assert.Equal(t, classExtreme, rep.Rows[5].Flag)
	assert.Equal(t, "loop.wav", rep.Rows[5].Rel)
	assert.Equal(t, 16, rep.Rows[0].BitDepth)

	table := out.String()
	assert.Contains(t, table, "File")
	assert.Contains(t, table, "60.00s")
	assert.Contains(t, table, "[!]")
	assert.Zero(t, env.conv.calls())
}

func TestAnalyze_RequiresProber(t *testing.T) {
	env := newTestEnv(t, "a.wav")
	_, err := Analyze(context.Background(), env.cfg, env.deps(), &bytes.Buffer{})
	var se *SetupError
	assert.ErrorAs(t, err, &se)
}

func TestComputeStats(t *testing.T) {
	assert.False(t, computeStats([]float64{1, 2, 3}).Valid, "too few values")
	assert.False(t, computeStats([]float64{2, 2, 2, 2, 2}).Valid, "zero spread")

	b := computeStats([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	require.True(t, b.Valid)
	assert.InDelta(t, 2.75, b.Q1, 1e-9)
	assert.InDelta(t, 6.25, b.Q3, 1e-9)
	assert.Equal(t, classNormal, b.classify(5))
	assert.Equal(t, classOutlier, b.classify(13))
	assert.Equal(t, classExtreme, b.classify(100))
	assert.Equal(t, classNormal, b.classify(0), "unknown values are never flagged")
}
