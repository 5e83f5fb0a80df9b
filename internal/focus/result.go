package focus

import "fmt"

// CoverageMap is the coverage object collected from the page before teardown.
type CoverageMap map[string]any

type TestResultError struct {
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// SessionResult is what a stopped session reports back. BrowserLogs is filled
// in by callers that capture console output.
type SessionResult struct {
	BrowserLogs []any             `json:"browserLogs"`
	Coverage    CoverageMap       `json:"coverage,omitempty"`
	Errors      []TestResultError `json:"errors"`
}

type StopOutcome struct {
	Result *SessionResult
	Err    error
}

// navigationError reports an unexpected navigation given the URLs a window
// went through, oldest first. It returns nil when the window stayed put.
func navigationError(history []string) *TestResultError {
	if len(history) < 2 {
		return nil
	}
	first, last := history[0], history[len(history)-1]
	if first == last {
		return nil
	}
	return &TestResultError{
		Name: "NavigationError",
		Message: fmt.Sprintf("Tests were interrupted because the page navigated from %s to %s. "+
			"This can happen when clicking a link, submitting a form or interacting with window.location.", first, last),
	}
}
