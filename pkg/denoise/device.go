package denoise

// Device names the compute device a denoiser runs on.
type Device string

const (
	// DeviceCPU is the default general-purpose device.
	DeviceCPU Device = "cpu"

	// DeviceAuto requests automatic device selection.
	DeviceAuto Device = "auto"
)

// ResolveDevice maps a configuration-supplied device string to a concrete
// device: an explicit value wins; empty or "auto" selects an accelerated
// device when one is available and falls back to the CPU otherwise.
func ResolveDevice(requested string) Device {
	if requested != "" && requested != string(DeviceAuto) {
		return Device(requested)
	}
	if dev, ok := accelerator(); ok {
		return dev
	}
	return DeviceCPU
}

// accelerator reports the accelerated device to prefer, if any backend is
// linked in. None are today; this keeps device selection in one place.
func accelerator() (Device, bool) {
	return "", false
}
