package runtime

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthWorker samples the daemon's own process on a ticker and logs CPU
// and memory usage. Purely observational; it never influences request
// handling.
type HealthWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, interval: interval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping health sampling")
			return nil
		case <-ticker.C:
			cpu, err := proc.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := proc.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			w.log.Info("Process health", "cpu_percent", cpu, "ram_percent", ram)
		}
	}
}
