package focus

import (
	"context"
	"encoding/json"
)

// Driver is the automation backend the manager arbitrates. All calls after
// SwitchToWindow act on that window.
type Driver interface {
	WindowHandles(ctx context.Context) ([]string, error)
	// NewWindow requests a new window. The handle is discovered through a
	// later WindowHandles call.
	NewWindow(ctx context.Context) error
	SwitchToWindow(ctx context.Context, handle string) error
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	ExecuteScript(ctx context.Context, script string) (json.RawMessage, error)
}
