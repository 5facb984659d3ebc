package shaderlab

import (
	"strconv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

// Capabilities describes the adapter a playground runs on.
type Capabilities = gpu.Capabilities

// Defines returns the definitions every shader is compiled with, in print
// order: the target size and the adapter's lane counts.
func Defines(caps Capabilities, w, h uint32) shader.Defines {
	u := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
	return shader.Defines{
		{Name: "TARGET_SIZE_X", Value: u(w)},
		{Name: "TARGET_SIZE_Y", Value: u(h)},
		{Name: "WAVE_LANE_COUNT_MIN", Value: u(caps.WaveLaneCountMin)},
		{Name: "WAVE_LANE_COUNT_MAX", Value: u(caps.WaveLaneCountMax)},
		{Name: "TOTAL_LANE_COUNT", Value: u(caps.TotalLaneCount)},
	}
}

// OfflineCapabilities describes a software adapter with the given lane
// overrides. It lets shaders compile without opening a device.
func OfflineCapabilities(lanes gpu.LaneCounts) Capabilities {
	lc := gpu.LookupLanes(gputypes.AdapterInfo{DeviceType: gputypes.DeviceTypeCPU}, lanes)
	return Capabilities{
		AdapterName:      "offline",
		DeviceType:       gputypes.DeviceTypeCPU.String(),
		WaveLaneCountMin: lc.Min,
		WaveLaneCountMax: lc.Max,
		TotalLaneCount:   lc.Total,
	}
}
