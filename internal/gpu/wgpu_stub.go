//go:build nogpu

package gpu

import "context"

// WGPUDevice is unavailable in nogpu builds.
type WGPUDevice struct{ Device }

// Open always fails in nogpu builds.
func Open(context.Context, DeviceConfig) (*WGPUDevice, error) {
	return nil, ErrNoGPU
}
