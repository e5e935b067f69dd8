package session

import "context"

// Navigator sends the user back to the application root after the session
// is dropped by sign-out or a failed refresh.
type Navigator interface {
	ToRoot(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) ToRoot(ctx context.Context) { f(ctx) }

// NopNavigator goes nowhere.
type NopNavigator struct{}

func (NopNavigator) ToRoot(context.Context) {}
