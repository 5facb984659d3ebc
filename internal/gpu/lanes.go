package gpu

import "github.com/gogpu/gputypes"

// LaneCounts are the wave (subgroup) sizes of an adapter.
type LaneCounts struct {
	Min   uint32
	Max   uint32
	Total uint32
}

// PCI vendor IDs.
const (
	VendorAMD      = 0x1002
	VendorApple    = 0x106B
	VendorNVIDIA   = 0x10DE
	VendorIntel    = 0x8086
	VendorARM      = 0x13B5
	VendorQualcomm = 0x5143
	VendorMesa     = 0x10005
)

// wgpu does not report subgroup sizes, so they come from the vendor.
var vendorLanes = map[uint32]LaneCounts{
	VendorNVIDIA:   {Min: 32, Max: 32},
	VendorAMD:      {Min: 32, Max: 64},
	VendorIntel:    {Min: 8, Max: 32},
	VendorApple:    {Min: 32, Max: 32},
	VendorARM:      {Min: 4, Max: 16},
	VendorQualcomm: {Min: 64, Max: 128},
}

// softwareLanes apply to CPU adapters and unknown vendors.
var softwareLanes = LaneCounts{Min: 4, Max: 4}

// LookupLanes returns the lane counts for an adapter. Total is Max unless
// an override sets it; any non-zero field of override replaces the table
// value.
func LookupLanes(info gputypes.AdapterInfo, override LaneCounts) LaneCounts {
	lc, ok := vendorLanes[info.VendorID]
	if !ok || info.DeviceType == gputypes.DeviceTypeCPU {
		lc = softwareLanes
	}
	if override.Min != 0 {
		lc.Min = override.Min
	}
	if override.Max != 0 {
		lc.Max = override.Max
	}
	if lc.Max < lc.Min {
		lc.Max = lc.Min
	}
	lc.Total = lc.Max
	if override.Total != 0 {
		lc.Total = override.Total
	}
	return lc
}
