// Package device resolves the configured accelerator to a compute backend.
package device

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/negvet/model-preparation-algorithm/internal/backend/cpu"
	"github.com/negvet/model-preparation-algorithm/internal/backend/webgpu"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Select resolves an accelerator name and device id list to a compute
// backend. Valid accelerators are "cpu", "webgpu" and "auto" (or empty,
// which means auto). Auto probes for a WebGPU adapter and falls back to
// the CPU when none is found.
//
// Inference is single-device: only the first id of the list is used and
// extra ids are logged and ignored.
//
// The returned cleanup releases backend resources and must be called
// when the run finishes. It is never nil on success.
func Select(accelerator string, ids []int, logger *zap.Logger) (tensor.Backend, func(), error) {
	if len(ids) > 1 {
		logger.Warn("multiple device ids configured, using the first",
			zap.Ints("devices", ids))
	}

	switch accelerator {
	case "cpu":
		return cpu.New(), func() {}, nil

	case "webgpu":
		backend, err := webgpu.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize webgpu backend: %w", err)
		}
		logAdapter(logger, backend)
		return backend, backend.Release, nil

	case "", "auto":
		if webgpu.IsAvailable() {
			backend, err := webgpu.New()
			if err == nil {
				logAdapter(logger, backend)
				return backend, backend.Release, nil
			}
			logger.Warn("webgpu adapter found but initialization failed, falling back to cpu",
				zap.Error(err))
		}
		logger.Info("no gpu adapter available, running on cpu")
		return cpu.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown accelerator %q (want cpu, webgpu or auto)", accelerator)
	}
}

func logAdapter(logger *zap.Logger, backend *webgpu.Backend) {
	if info := backend.AdapterInfo(); info != nil {
		logger.Info("using gpu adapter",
			zap.String("device", info.Device),
			zap.String("vendor", info.Vendor))
		return
	}
	logger.Info("using gpu adapter")
}
