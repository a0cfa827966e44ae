package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"

	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/logger"
)

// startProfiles starts CPU profiling when cpuFile is set. The returned
// function stops it and writes the heap profile when memFile is set.
func startProfiles(cpuFile, memFile string) (func(), error) {
	var cpu *os.File
	if cpuFile != "" {
		f, err := os.Create(cpuFile) //nolint:gosec // profile path comes from the user
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create CPU profile").
				WithDetail("path", cpuFile)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
		}
		cpu = f
		logger.Info("CPU profiling enabled", zap.String("path", cpuFile))
	}

	return func() {
		if cpu != nil {
			pprof.StopCPUProfile()
			_ = cpu.Close()
		}
		if memFile == "" {
			return
		}
		f, err := os.Create(memFile) //nolint:gosec // profile path comes from the user
		if err != nil {
			logger.Warn("failed to create memory profile", zap.String("path", memFile), zap.Error(err))
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.Warn("failed to write memory profile", zap.String("path", memFile), zap.Error(err))
		}
	}, nil
}
