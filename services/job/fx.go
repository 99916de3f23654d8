package job

import "go.uber.org/fx"

var Module = fx.Module("job.module",
	fx.Provide(NewService),
)

// WorkerModule additionally registers the task handlers; only the worker
// binary pulls this in.
var WorkerModule = fx.Module("job.worker",
	fx.Provide(NewService),
	fx.Invoke(RegisterHandlers),
)
