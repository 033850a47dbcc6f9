package scraper

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ClassifyFetchError maps a fetch failure to its ScrapeStatus. Browser
// navigation errors surface Chromium net codes in their message, so those
// are matched alongside the plain Go network error types.
func ClassifyFetchError(err error) ScrapeStatus {
	if err == nil {
		return StatusSuccess
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return StatusDNSError
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return StatusConnectionRefused
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "ERR_NAME_NOT_RESOLVED"):
		return StatusDNSError
	case strings.Contains(msg, "ERR_CONNECTION_REFUSED"):
		return StatusConnectionRefused
	case strings.Contains(msg, "ERR_TIMED_OUT"),
		strings.Contains(msg, "ERR_CONNECTION_TIMED_OUT"),
		strings.Contains(msg, "context deadline exceeded"):
		return StatusTimeout
	case strings.Contains(msg, "ERR_"):
		return StatusBrowserError
	}
	return StatusBrowserError
}
