package mex_test

import (
	"testing"

	"mex-go/internal/mex"
)

func TestOverallProgress(t *testing.T) {
	tests := []struct {
		name  string
		stage mex.Stage
		sub   int
		want  int
	}{
		{"prepare passes through", mex.StagePrepare, 5, 5},
		{"recompile start", mex.StageRecompile, 0, 10},
		{"recompile midpoint", mex.StageRecompile, 50, 24},
		{"recompile complete", mex.StageRecompile, 100, 39},
		{"reobf start", mex.StageReobf, 0, 40},
		{"reobf complete", mex.StageReobf, 100, 69},
		{"package start", mex.StagePackage, 0, 70},
		{"package complete", mex.StagePackage, 100, 89},
		{"finalize passes through", mex.StageFinalize, 95, 95},
		{"negative sub-progress clamps to the band start", mex.StageRecompile, -20, 10},
		{"overshoot clamps to the band end", mex.StageReobf, 140, 69},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mex.OverallProgress(tt.stage, tt.sub); got != tt.want {
				t.Errorf("OverallProgress(%v, %d) = %d, want %d", tt.stage, tt.sub, got, tt.want)
			}
		})
	}
}

func TestOverallProgress_BandsStayInRange(t *testing.T) {
	bands := []struct {
		stage mex.Stage
		start int
		done  int
	}{
		{mex.StageRecompile, 10, 39},
		{mex.StageReobf, 40, 69},
		{mex.StagePackage, 70, 89},
	}

	for _, b := range bands {
		prev := b.start
		for sub := 0; sub <= 100; sub++ {
			got := mex.OverallProgress(b.stage, sub)
			if got < b.start || got > b.done {
				t.Fatalf("OverallProgress(%v, %d) = %d, outside [%d,%d]",
					b.stage, sub, got, b.start, b.done)
			}
			if got < prev {
				t.Fatalf("OverallProgress(%v, %d) = %d, decreased from %d",
					b.stage, sub, got, prev)
			}
			prev = got
		}
	}
}
