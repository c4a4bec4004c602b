package tailwind

import "runtime"

// releases maps GOOS/GOARCH to the name of the standalone release asset.
var releases = map[string]string{
	"darwin/amd64":  "tailwindcss-macos-x64",
	"darwin/arm64":  "tailwindcss-macos-arm64",
	"linux/amd64":   "tailwindcss-linux-x64",
	"linux/arm64":   "tailwindcss-linux-arm64",
	"linux/arm":     "tailwindcss-linux-armv7",
	"windows/amd64": "tailwindcss-windows-x64.exe",
	"windows/arm64": "tailwindcss-windows-arm64.exe",
}

// assetName returns the release asset for goos/goarch, or "" when Tailwind
// ships no standalone binary for it.
func assetName(goos, goarch string) string {
	return releases[goos+"/"+goarch]
}

func binaryName() string {
	return assetName(runtime.GOOS, runtime.GOARCH)
}

// PlatformName describes the current platform for messages.
func PlatformName() string {
	var osName string
	switch runtime.GOOS {
	case "darwin":
		osName = "macOS"
	case "linux":
		osName = "Linux"
	case "windows":
		osName = "Windows"
	default:
		osName = runtime.GOOS
	}

	switch runtime.GOARCH {
	case "arm64":
		return osName + " ARM64"
	case "amd64":
		return osName + " x64"
	default:
		return osName + " " + runtime.GOARCH
	}
}
