package mex_test

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"mex-go/internal/mex"
	"mex-go/internal/state"
	"mex-go/internal/testutil"
)

// pipelineFixture wires a Pipeline to stub collaborators over a temp
// workspace. The state store is the real file-backed one so the crash
// signal lifecycle is exercised for real.
type pipelineFixture struct {
	pipeline  *mex.Pipeline
	layout    *mex.Layout
	store     *state.FileStore
	backups   *testutil.StubBackups
	packager  *testutil.StubPackager
	recompile *testutil.ScriptedTask
	reobf     *testutil.ScriptedTask
	runs      mex.RunStore
	clock     *testutil.StubClock
}

func newPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	layout := mex.NewLayout(t.TempDir(), "", "")
	clock := testutil.FixedClock()

	fx := &pipelineFixture{
		layout:    layout,
		store:     state.NewFileStore(layout.StateFile(), clock),
		backups:   &testutil.StubBackups{},
		packager:  &testutil.StubPackager{},
		recompile: &testutil.ScriptedTask{},
		reobf:     &testutil.ScriptedTask{},
		runs:      testutil.NewTestRunStore(t),
		clock:     clock,
	}
	fx.pipeline = mex.NewPipeline(layout, fx.store, fx.backups, fx.packager,
		fx.recompile, fx.reobf, fx.runs, mex.NewNopLogger(), clock, testutil.NewStubIDGenerator())
	return fx
}

func TestPipeline_Run(t *testing.T) {
	t.Run("completes all stages and clears the state file", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)

		report, err := fx.pipeline.Run(mex.SideMerged)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if report.RunID != "id-1" {
			t.Errorf("RunID = %q, want %q", report.RunID, "id-1")
		}
		if report.Progress != 100 {
			t.Errorf("Progress = %d, want 100", report.Progress)
		}
		if report.Marker != mex.MarkerFinalize {
			t.Errorf("Marker = %q, want %q", report.Marker, mex.MarkerFinalize)
		}
		if len(report.Artifacts) != 2 {
			t.Errorf("got %d artifacts, want 2", len(report.Artifacts))
		}
		if fx.store.Exists() {
			t.Error("state file still present after successful run")
		}
	})

	t.Run("writes the completion manifest", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)

		if _, err := fx.pipeline.Run(mex.SideMerged); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		data, err := os.ReadFile(fx.layout.ManifestFile())
		if err != nil {
			t.Fatalf("reading manifest: %v", err)
		}
		want := "Export completed: 2024-01-15 10:30:00\nSide: merged\nVersion: unknown\n"
		if string(data) != want {
			t.Errorf("manifest =\n%q\nwant:\n%q", string(data), want)
		}
	})

	t.Run("writes the configured version to the manifest", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.pipeline.Version = "4.2.1"

		if _, err := fx.pipeline.Run(mex.SideClient); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		data, err := os.ReadFile(fx.layout.ManifestFile())
		if err != nil {
			t.Fatalf("reading manifest: %v", err)
		}
		if !strings.Contains(string(data), "Version: 4.2.1\n") {
			t.Errorf("manifest missing version, got:\n%s", data)
		}
		if !strings.Contains(string(data), "Side: client\n") {
			t.Errorf("manifest missing side, got:\n%s", data)
		}
	})

	t.Run("takes a backup before each destructive stage", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)

		if _, err := fx.pipeline.Run(mex.SideMerged); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		got := strings.Join(fx.backups.Created, " ")
		want := "pre_recompile/client pre_recompile/server" +
			" pre_reobf/client pre_reobf/server" +
			" pre_package/client pre_package/server"
		if got != want {
			t.Errorf("backups created = %q, want %q", got, want)
		}
	})

	t.Run("a client run only touches the client side", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)

		report, err := fx.pipeline.Run(mex.SideClient)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		got := strings.Join(fx.backups.Created, " ")
		want := "pre_recompile/client pre_reobf/client pre_package/client"
		if got != want {
			t.Errorf("backups created = %q, want %q", got, want)
		}
		if len(fx.packager.Packaged) != 1 || fx.packager.Packaged[0] != mex.SideClient {
			t.Errorf("packaged sides = %v, want [client]", fx.packager.Packaged)
		}
		if len(report.Artifacts) != 1 {
			t.Errorf("got %d artifacts, want 1", len(report.Artifacts))
		}
	})

	t.Run("records a history row for a successful run", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)

		if _, err := fx.pipeline.Run(mex.SideMerged); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		runs, err := fx.runs.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(runs))
		}
		r := runs[0]
		if r.RunID != "id-1" {
			t.Errorf("RunID = %q, want %q", r.RunID, "id-1")
		}
		if r.Status != mex.RunStatusSuccess {
			t.Errorf("Status = %q, want %q", r.Status, mex.RunStatusSuccess)
		}
		if r.Marker != mex.MarkerFinalize {
			t.Errorf("Marker = %q, want %q", r.Marker, mex.MarkerFinalize)
		}
		if r.Progress != 100 {
			t.Errorf("Progress = %d, want 100", r.Progress)
		}
		if r.Error != "" {
			t.Errorf("Error = %q, want empty", r.Error)
		}
		if r.FinishedAt == nil {
			t.Error("FinishedAt is nil for a finished run")
		}
	})

	t.Run("a failing recompile task stops the run", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.recompile.Err = errors.New("javac exited 1")

		report, err := fx.pipeline.Run(mex.SideClient)
		if err == nil {
			t.Fatal("Run() expected error")
		}

		var stageErr *mex.StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("error = %v, want *StageError", err)
		}
		if stageErr.Stage != mex.StageRecompile {
			t.Errorf("failed stage = %v, want recompile", stageErr.Stage)
		}
		if !strings.Contains(err.Error(), "javac exited 1") {
			t.Errorf("error = %v, want the task failure inside", err)
		}

		if report == nil {
			t.Fatal("Run() returned nil report on failure")
		}
		if report.Marker != mex.MarkerRecompile {
			t.Errorf("Marker = %q, want %q", report.Marker, mex.MarkerRecompile)
		}

		// The state file must survive the failure: it is the crash signal.
		if !fx.store.Exists() {
			t.Fatal("state file missing after failed run")
		}
		st, err := fx.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if st.Stage != mex.MarkerRecompile {
			t.Errorf("state stage = %q, want %q", st.Stage, mex.MarkerRecompile)
		}
		if st.Side != "client" {
			t.Errorf("state side = %q, want %q", st.Side, "client")
		}

		if len(fx.reobf.Sides) != 0 {
			t.Error("reobf ran after recompile failed")
		}
		if len(fx.packager.Packaged) != 0 {
			t.Error("packaging ran after recompile failed")
		}
	})

	t.Run("a failing reobf task leaves the reobf marker", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.reobf.Err = errors.New("mapping file corrupt")

		_, err := fx.pipeline.Run(mex.SideClient)
		var stageErr *mex.StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("error = %v, want *StageError", err)
		}
		if stageErr.Stage != mex.StageReobf {
			t.Errorf("failed stage = %v, want reobf", stageErr.Stage)
		}

		st, err := fx.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if st.Stage != mex.MarkerReobf {
			t.Errorf("state stage = %q, want %q", st.Stage, mex.MarkerReobf)
		}
		if len(fx.recompile.Sides) != 1 {
			t.Errorf("recompile ran %d times, want 1", len(fx.recompile.Sides))
		}
	})

	t.Run("a backup failure is fatal", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.backups.CreateErr = errors.New("disk full")

		_, err := fx.pipeline.Run(mex.SideClient)
		var stageErr *mex.StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("error = %v, want *StageError", err)
		}
		if stageErr.Stage != mex.StageRecompile {
			t.Errorf("failed stage = %v, want recompile", stageErr.Stage)
		}
		if len(fx.recompile.Sides) != 0 {
			t.Error("recompile task ran despite the backup failing first")
		}
	})

	t.Run("a packaging failure aborts the run", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.packager.Err = errors.New("duplicate archive entry: a.class")

		report, err := fx.pipeline.Run(mex.SideClient)
		var stageErr *mex.StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("error = %v, want *StageError", err)
		}
		if stageErr.Stage != mex.StagePackage {
			t.Errorf("failed stage = %v, want package", stageErr.Stage)
		}
		if report.Marker != mex.MarkerPackage {
			t.Errorf("Marker = %q, want %q", report.Marker, mex.MarkerPackage)
		}
		if len(report.Artifacts) != 0 {
			t.Errorf("got %d artifacts, want 0", len(report.Artifacts))
		}

		runs, err := fx.runs.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(runs))
		}
		if runs[0].Status != mex.RunStatusError {
			t.Errorf("Status = %q, want %q", runs[0].Status, mex.RunStatusError)
		}
		if !strings.Contains(runs[0].Error, "duplicate archive entry") {
			t.Errorf("recorded error = %q, want the packaging failure inside", runs[0].Error)
		}
	})

	t.Run("a side with no reobfuscated output is skipped", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.packager.Results = map[mex.Side]*mex.PackageResult{
			mex.SideClient: {Side: mex.SideClient, Skipped: true},
		}

		report, err := fx.pipeline.Run(mex.SideMerged)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.Artifacts) != 1 {
			t.Errorf("got %d artifacts, want 1 (server only)", len(report.Artifacts))
		}
		if len(fx.packager.HookRan) != 1 || fx.packager.HookRan[0] != mex.SideServer {
			t.Errorf("pre_package hook ran for %v, want [server]", fx.packager.HookRan)
		}
	})

	t.Run("a side with no classes yields no artifact but no failure", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.packager.Results = map[mex.Side]*mex.PackageResult{
			mex.SideServer: {Side: mex.SideServer, Empty: true},
		}

		report, err := fx.pipeline.Run(mex.SideMerged)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.Artifacts) != 1 {
			t.Errorf("got %d artifacts, want 1 (client only)", len(report.Artifacts))
		}
	})

	t.Run("consecutive runs share the workspace", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)

		if _, err := fx.pipeline.Run(mex.SideClient); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		report, err := fx.pipeline.Run(mex.SideClient)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if report.Progress != 100 {
			t.Errorf("Progress = %d, want 100", report.Progress)
		}
		if fx.store.Exists() {
			t.Error("state file present after the second run")
		}

		runs, err := fx.runs.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("got %d history rows, want 2", len(runs))
		}
	})

	t.Run("a leftover state file does not block a new run", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.backups.Entries = []mex.BackupEntry{
			{Path: "pre_reobf_client_20240114_090000.zip", Label: "pre_reobf", Side: "client"},
			{Path: "pre_recompile_client_20240114_085500.zip", Label: "pre_recompile", Side: "client"},
		}

		// Simulate a crashed previous run.
		if err := os.MkdirAll(fx.layout.ExportDir(), 0755); err != nil {
			t.Fatalf("creating export dir: %v", err)
		}
		if err := fx.store.Save(mex.MarkerReobf, 55, mex.SideClient); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if _, err := fx.pipeline.Run(mex.SideMerged); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if fx.store.Exists() {
			t.Error("state file still present after successful run")
		}
		// Prepare must have read the stale state and surveyed backups.
		if fx.backups.ListCalls != 1 {
			t.Errorf("backup listing consulted %d times, want 1", fx.backups.ListCalls)
		}
	})

	t.Run("diagnostics are skipped when no state file exists", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.backups.ListErr = errors.New("listing broken")

		if _, err := fx.pipeline.Run(mex.SideClient); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if fx.backups.ListCalls != 0 {
			t.Errorf("backup listing consulted %d times, want 0", fx.backups.ListCalls)
		}
	})

	t.Run("progress never decreases and ends at 100", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.recompile.Progress = []int{90, 10}
		fx.reobf.Progress = []int{50}

		var seq []int
		fx.pipeline.Progress = func(_ mex.Stage, pct int) {
			seq = append(seq, pct)
		}

		if _, err := fx.pipeline.Run(mex.SideClient); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if len(seq) == 0 {
			t.Fatal("no progress reported")
		}
		if seq[0] != 0 {
			t.Errorf("first progress = %d, want 0", seq[0])
		}
		if seq[len(seq)-1] != 100 {
			t.Errorf("last progress = %d, want 100", seq[len(seq)-1])
		}
		for i := 1; i < len(seq); i++ {
			if seq[i] < seq[i-1] {
				t.Fatalf("progress decreased: %v", seq)
			}
		}
	})

	t.Run("sub-task progress is rescaled into the stage band", func(t *testing.T) {
		t.Parallel()
		fx := newPipeline(t)
		fx.recompile.Progress = []int{0, 50, 100}

		var recompilePcts []int
		fx.pipeline.Progress = func(stage mex.Stage, pct int) {
			if stage == mex.StageRecompile {
				recompilePcts = append(recompilePcts, pct)
			}
		}

		if _, err := fx.pipeline.Run(mex.SideClient); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		// Stage entry, the three scripted reports, then stage completion.
		want := "10 10 24 39 39"
		got := strings.Trim(fmt.Sprint(recompilePcts), "[]")
		if got != want {
			t.Errorf("recompile progress = %q, want %q", got, want)
		}
	})
}
