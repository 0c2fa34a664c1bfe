package motw

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFolder indicates the scan root is missing or not a directory.
	ErrInvalidFolder = errors.New("motw: invalid folder")
	// ErrNoSelection indicates an unblock request without any path.
	ErrNoSelection = errors.New("motw: no files selected")
	// ErrExtensionNotAllowed indicates an unblock path whose extension is not on the allowlist.
	ErrExtensionNotAllowed = errors.New("motw: extension not on the allowlist")
	// ErrScanResultParse indicates the scan output did not match the record schema.
	ErrScanResultParse = errors.New("motw: malformed scan result")
)

// ScanFailedError reports a scan whose PowerShell process exited non-zero.
type ScanFailedError struct {
	ExitCode int
	Stderr   string
}

func (e *ScanFailedError) Error() string {
	return failureMessage("scan failed", e.ExitCode, e.Stderr)
}

// UnblockFailedError reports an unblock batch whose process exited non-zero.
type UnblockFailedError struct {
	ExitCode int
	Stderr   string
}

func (e *UnblockFailedError) Error() string {
	return failureMessage("unblock failed", e.ExitCode, e.Stderr)
}

func failureMessage(prefix string, code int, stderr string) string {
	msg := fmt.Sprintf("%s: exit code %d", prefix, code)
	if s := strings.TrimSpace(stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
