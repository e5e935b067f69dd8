package httperrors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
	"testing"

	apperrors "sessionctl/cli/internal/errors"
)

func TestClassify(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://127.0.0.1:1/token", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{name: "nil", err: nil, want: NotNetwork},
		{name: "plain", err: errors.New("boom"), want: NotNetwork},
		{name: "provider rejection", err: apperrors.New(apperrors.UpstreamAuthFailure, "400 Invalid login credentials"), want: NotNetwork},
		{name: "refused", err: refused, want: ConnectionRefused},
		{name: "refused behind sign-in kind", err: apperrors.Wrap(apperrors.UpstreamAuthFailure, "sign in", refused), want: ConnectionRefused},
		{name: "dns", err: &url.Error{Op: "Get", URL: "https://nope.invalid", Err: &net.DNSError{Err: "no such host", Name: "nope.invalid"}}, want: DNS},
		{name: "deadline", err: &url.Error{Op: "Post", URL: "https://x", Err: context.DeadlineExceeded}, want: Timeout},
		{name: "generic transport", err: &url.Error{Op: "Post", URL: "https://x", Err: errors.New("EOF")}, want: Generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatNetworkErrorPassesThroughRejections(t *testing.T) {
	rejection := apperrors.New(apperrors.UpstreamAuthFailure, "invalid credentials")
	if got := FormatNetworkError(rejection, "signing in", "auth.example.com"); got != rejection {
		t.Errorf("expected the rejection back unchanged, got %v", got)
	}
}

func TestExtractHostFromURL(t *testing.T) {
	if got := ExtractHostFromURL("https://abc.supabase.co/auth/v1"); got != "abc.supabase.co" {
		t.Errorf("got %q", got)
	}
	if got := ExtractHostFromURL(""); got != "the identity provider" {
		t.Errorf("got %q", got)
	}
}
