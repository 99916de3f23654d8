package taskname

const (
	// Job tasks
	JobRuntimeWatchdog = "job:runtime:watchdog"
)
