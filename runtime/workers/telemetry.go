package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"portal-dm/contract"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically logs process health (CPU, RAM, goroutines)
// so operators can spot a leaking fan-out or a runaway projection without
// attaching a profiler.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, metricInterval: metricInterval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry worker")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := p.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)

			w.log.Info("Process telemetry",
				"cpu_percent", cpu,
				"ram_percent", ram,
				"alloc_mb", mem.Alloc/1024/1024,
				"num_gc", mem.NumGC,
				"goroutines", runtime.NumGoroutine())
		}
	}
}
