package mex

// ProgressFunc receives overall progress updates during a pipeline run.
// percent is in [0,100] and never decreases within one run.
type ProgressFunc func(stage Stage, percent int)

// OverallProgress maps a sub-task's own progress (0–100) onto the overall
// export percentage for the given stage. Each external stage owns a fixed
// band: recompile 10–39, reobf 40–69, package 70–89. The coefficients keep
// a stage's full sub-range inside its band without touching the next
// stage's start. Other stages pass sub-progress through unchanged.
func OverallProgress(stage Stage, sub int) int {
	if sub < 0 {
		sub = 0
	}
	if sub > 100 {
		sub = 100
	}
	switch stage {
	case StageRecompile:
		return 10 + int(float64(sub)*0.29)
	case StageReobf:
		return 40 + int(float64(sub)*0.29)
	case StagePackage:
		return 70 + int(float64(sub)*0.19)
	default:
		return sub
	}
}
