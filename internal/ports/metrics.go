package ports

// Metric names recorded by the application services through
// MetricsCollector.
const (
	MetricRuns            = "senate_runs_total"
	MetricRunDuration     = "senate_run_duration_seconds"
	MetricBallots         = "senate_ballots_total"
	MetricCalibrationSave = "senate_calibration_updates_total"
	MetricResolutions     = "ghost_resolutions_total"
	MetricResolveDuration = "ghost_resolve_duration_seconds"
)
