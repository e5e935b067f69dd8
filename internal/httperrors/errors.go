// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors provides user-friendly error handling for requests to the
// identity provider.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	apperrors "sessionctl/cli/internal/errors"
)

// Category is the kind of transport failure behind an error.
type Category int

const (
	// NotNetwork means the error did not come from the transport.
	NotNetwork Category = iota
	Timeout
	DNS
	ConnectionRefused
	TLS
	Generic
)

// Classify reports which transport failure err represents. Provider
// rejections (upstream_auth_failure) are answers, not transport failures,
// and classify as NotNetwork.
func Classify(err error) Category {
	if err == nil || apperrors.Is(err, apperrors.UpstreamAuthFailure) && !hasTransportCause(err) {
		return NotNetwork
	}
	switch {
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return ConnectionRefused
	case isSSLError(err):
		return TLS
	case hasTransportCause(err):
		return Generic
	}
	return NotNetwork
}

func hasTransportCause(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

// FormatNetworkError shows a troubleshooting message for transport failures
// talking to host and returns the wrapped error. Errors that are not
// transport failures are returned unchanged and nothing is printed.
func FormatNetworkError(err error, context, host string) error {
	cat := Classify(err)
	if cat == NotNetwork {
		return err
	}

	switch cat {
	case Timeout:
		showTimeoutError(context)
	case DNS:
		showDNSError(context, host)
	case ConnectionRefused:
		showConnectionRefusedError(context, host)
	case TLS:
		showSSLError(context)
	default:
		showGenericError(context, host, err.Error())
	}
	return fmt.Errorf("network error: %w", err)
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

func showTimeoutError(context string) {
	pterm.Printf("⏱️  Connection timeout while %s\n", context)
	pterm.Println()
	pterm.Println("The identity provider took too long to respond. This could mean:")
	pterm.Println("  • Slow internet connection")
	pterm.Println("  • The provider is under heavy load")
	pterm.Println("  • Network firewall is blocking the connection")
	pterm.Println()
}

func showDNSError(context, host string) {
	pterm.Printf("🌐 Cannot resolve %s while %s\n", host, context)
	pterm.Println()
	pterm.Println("Please check:")
	pterm.Println("  • Your internet connection is working")
	pterm.Println("  • provider.base_url in your sessionctl config")
	pterm.Println("  • DNS settings are correct")
	pterm.Println()
}

func showConnectionRefusedError(context, host string) {
	pterm.Printf("🚫 Connection to %s refused while %s\n", host, context)
	pterm.Println()
	pterm.Println("Nothing is accepting connections there. This could mean:")
	pterm.Println("  • A local identity provider is not running")
	pterm.Println("  • Wrong server address or port in provider.base_url")
	pterm.Println()
}

func showSSLError(context string) {
	pterm.Printf("🔒 Secure connection failed while %s\n", context)
	pterm.Println()
	pterm.Println("Try:")
	pterm.Println("  • Check your system date and time")
	pterm.Println("  • Verify network proxy settings")
	pterm.Println()
}

func showGenericError(context, host, errDetails string) {
	pterm.Printf("❌ Cannot reach %s while %s\n", host, context)
	pterm.Println()
	if len(errDetails) > 100 {
		errDetails = errDetails[:100] + "..."
	}
	pterm.Debug.Printf("Technical details: %s\n", errDetails)
	pterm.Println()
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "the identity provider"
	}
	return u.Host
}
