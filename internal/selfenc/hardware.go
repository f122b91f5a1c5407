package selfenc

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HardwareInfo reports what CPU cryptographic acceleration is available on
// the current host. The cipher this package uses (XSalsa20-Poly1305) is not
// accelerated by the AES-NI/ARMv8 AES instructions this detects, so the
// report is informational only — exposed on the debug endpoint to help
// operators reason about future cipher-suite changes, not to gate any
// current code path.
type HardwareInfo struct {
	Architecture  string `json:"architecture"`
	AESHardware   bool   `json:"aes_hardware_support"`
	SHA3Available bool   `json:"sha3_software_only"`
}

// DetectHardware inspects the running CPU for cryptography-relevant features.
func DetectHardware() HardwareInfo {
	var hasAES bool
	switch runtime.GOARCH {
	case "amd64", "386":
		hasAES = cpu.X86.HasAES
	case "arm64":
		hasAES = cpu.ARM64.HasAES
	case "s390x":
		hasAES = cpu.S390X.HasAES
	}
	return HardwareInfo{
		Architecture:  runtime.GOARCH,
		AESHardware:   hasAES,
		SHA3Available: true,
	}
}
