package capture

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
)

// ListVideoDevices returns the video capture devices found under dir
// (normally /dev). Only V4L2 device nodes are enumerated.
func ListVideoDevices(dir string) ([]string, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("device listing is only supported on linux; try: ffmpeg -list_devices true -f %s -i dummy", platformFormat(runtime.GOOS))
	}
	matches, err := filepath.Glob(filepath.Join(dir, "video*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list video devices: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func platformFormat(goos string) string {
	switch goos {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}
