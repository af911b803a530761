package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand picks the launcher for the consent page. $BROWSER wins over the platform default.
func browserCommand(goos, browserEnv, url string) (string, []string, error) {
	if fields := strings.Fields(browserEnv); len(fields) > 0 {
		return fields[0], append(fields[1:], url), nil
	}

	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens url for the Spotify consent step without waiting for the browser to exit.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(getRuntime(), os.Getenv("BROWSER"), url)
	if err != nil {
		return err
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser with %s: %w", name, err)
	}
	return nil
}
