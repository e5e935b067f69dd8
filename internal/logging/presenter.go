// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	apperrors "sessionctl/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// FormatFault formats a recovered session fault in a user-friendly way.
// The fault kind picks the explanation; the masked error text follows as
// technical detail.
func FormatFault(err error) string {
	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("Session reset"))
	builder.WriteString("\n\n")

	switch apperrors.KindOf(err) {
	case apperrors.NoActiveToken:
		builder.WriteString("There is no stored access token to refresh.\n")
		builder.WriteString("Any leftover session data has been cleared.\n")
	case apperrors.CorruptedPersistedData:
		builder.WriteString("The stored session could not be read and was discarded.\n")
	case apperrors.PersistenceUnavailable:
		builder.WriteString("The OS credential store is not available.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • No keyring daemon is running (Linux)\n")
		builder.WriteString("  • The keychain is locked or access was denied\n")
	case apperrors.UpstreamAuthFailure:
		builder.WriteString("The identity provider rejected the session.\n")
		builder.WriteString("Your session may have expired or been revoked.\n")
	default:
		builder.WriteString("The session could not be kept and was cleared.\n")
	}

	builder.WriteString("\n")
	builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please run 'sessionctl login' and try again"))
	builder.WriteString("\n")

	if err != nil && strings.TrimSpace(err.Error()) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	}

	return builder.String()
}

// PresentFault displays a formatted session fault.
func PresentFault(err error) {
	fmt.Println()
	fmt.Println(FormatFault(err))
	fmt.Println()
}
