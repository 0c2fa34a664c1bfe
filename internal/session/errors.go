package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/powershell"
)

var (
	// ErrBusy is returned when a scan or unblock is requested while another is running.
	ErrBusy = errors.New("session: another operation is in progress")
	// ErrUnknownPath is returned when selecting a path absent from the current scan result.
	ErrUnknownPath = errors.New("session: path is not in the current scan result")
)

// IsValidation reports whether err was raised before any process was started
// and needs the user to fix their input.
func IsValidation(err error) bool {
	return errors.Is(err, motw.ErrInvalidFolder) ||
		errors.Is(err, allowlist.ErrEmptyAllowlist) ||
		errors.Is(err, allowlist.ErrInvalidExtension) ||
		errors.Is(err, motw.ErrNoSelection) ||
		errors.Is(err, motw.ErrExtensionNotAllowed)
}

// Describe turns err into the single status line shown to the user.
func Describe(err error) string {
	var scanErr *motw.ScanFailedError
	var unblockErr *motw.UnblockFailedError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "Another operation is still running."
	case errors.Is(err, motw.ErrInvalidFolder):
		return "Please select a valid folder first."
	case errors.Is(err, allowlist.ErrEmptyAllowlist):
		return "Please select at least one allowed extension."
	case errors.Is(err, motw.ErrNoSelection):
		return "Please select at least one file to unblock."
	case errors.Is(err, motw.ErrExtensionNotAllowed):
		return fmt.Sprintf("Only files with an allowed extension can be unblocked: %s",
			strings.TrimPrefix(err.Error(), motw.ErrExtensionNotAllowed.Error()+": "))
	case errors.Is(err, allowlist.ErrInvalidExtension):
		return fmt.Sprintf("Invalid extension: %v", err)
	case errors.As(err, &scanErr):
		return fmt.Sprintf("Scan failed. Exit code: %d", scanErr.ExitCode)
	case errors.As(err, &unblockErr):
		return fmt.Sprintf("Unblock step failed. Exit code: %d", unblockErr.ExitCode)
	case errors.Is(err, motw.ErrScanResultParse):
		return fmt.Sprintf("Failed to parse scan results: %v", err)
	case errors.Is(err, powershell.ErrToolInvocationFailed):
		return fmt.Sprintf("Could not run PowerShell: %v", err)
	default:
		return err.Error()
	}
}
