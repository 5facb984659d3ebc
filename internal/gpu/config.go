package gpu

// DeviceConfig selects and configures the adapter Open acquires.
type DeviceConfig struct {
	Label string
	// Backend is "auto" (or empty), "vulkan", "dx12", "metal" or "gl".
	Backend string
	// PowerPreference is "high" (or empty), "low" or "none".
	PowerPreference string
	// ForceFallback requests the software adapter.
	ForceFallback bool
	// Debug enables backend validation layers.
	Debug bool
	// Lanes overrides the vendor lane table field by field.
	Lanes LaneCounts
}
