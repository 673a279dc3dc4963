package syncsession

const (
	// Preparation buffer: lead time between issuing SYNC_PREPARE and the
	// scheduled start, absorbing poll latency and media preload so devices
	// start at the same wall-clock moment.
	baseBufferMs      = 8000
	coldDeviceExtraMs = 1000
	largeWallExtraMs  = 1000
	maxBufferMs       = 12000

	// A wall counts as large at this many devices.
	largeWallDeviceCount = 10
)

// PreparationBufferMs computes the lead time for a session start. An explicit
// override wins outright; otherwise the base window grows when any assigned
// device is cold or the wall is large, capped at the maximum.
func PreparationBufferMs(deviceCount int, anyCold bool, overrideMs *int64) int64 {
	if overrideMs != nil && *overrideMs > 0 {
		return *overrideMs
	}
	ms := int64(baseBufferMs)
	if anyCold {
		ms += coldDeviceExtraMs
	}
	if deviceCount >= largeWallDeviceCount {
		ms += largeWallExtraMs
	}
	if ms > maxBufferMs {
		ms = maxBufferMs
	}
	return ms
}
