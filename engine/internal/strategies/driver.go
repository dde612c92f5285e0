// Package strategies implements the three concrete fetch mechanisms (HTTP,
// Headless, Manual) behind the uniform Strategy contract the Fallback Chain
// dispatches through.
package strategies

import (
	"context"
	"time"
)

// BrowserSession is an opaque handle to an attached browser debug session.
type BrowserSession any

// BrowserTab is an opaque handle to one open tab within a session.
type BrowserTab any

// BrowserDriver is the injected collaborator that talks to a concrete
// browser automation protocol. The core depends only on these primitives;
// no concrete protocol is assumed.
type BrowserDriver interface {
	Attach(ctx context.Context, endpoint string) (BrowserSession, error)
	NewTab(ctx context.Context, session BrowserSession, url string) (BrowserTab, error)
	WaitFor(ctx context.Context, tab BrowserTab, state string, timeout time.Duration) error
	EvaluateJavaScript(ctx context.Context, tab BrowserTab, expr string) (any, error)
	GetHTML(ctx context.Context, tab BrowserTab) (string, error)
	GetURL(ctx context.Context, tab BrowserTab) (string, error)
	CloseTab(ctx context.Context, tab BrowserTab) error
	// ActiveTab returns the tab the operator currently has focused; used by
	// the Manual strategy to read back whatever the human navigated to.
	ActiveTab(ctx context.Context, session BrowserSession) (BrowserTab, error)
}

// RecoveryOutcome is the mapped exit code of the external session-recovery
// command invoked when the debug endpoint is unreachable.
type RecoveryOutcome int

const (
	RecoveryHealthy RecoveryOutcome = iota
	RecoveryPortConflict
	RecoveryParamError
	RecoveryPermission
	RecoveryTimeout
	RecoveryOther
)

// remediation is the user-facing guidance for each non-zero recovery
// outcome, printed once at the strategy transition, never on every retry.
var remediation = map[RecoveryOutcome]string{
	RecoveryPortConflict: "the browser debug port is already in use by another process; free it or configure a different port",
	RecoveryParamError:   "the browser launch parameters are invalid; check the configured executable path and flags",
	RecoveryPermission:   "the current user lacks permission to launch the browser; check executable permissions",
	RecoveryTimeout:      "the browser did not become reachable within the startup timeout; it may be slow to start or crash-looping",
	RecoveryOther:        "the browser session could not be recovered for an unspecified reason",
}

// SessionRecovery invokes whatever external mechanism (re)starts the
// browser debug session when the fast-path probe finds it unreachable.
type SessionRecovery interface {
	Ensure(ctx context.Context) (RecoveryOutcome, error)
}

// Prompter surfaces the Manual strategy's human-in-the-loop handoff: print
// a message, then block until the operator confirms or cancels.
type Prompter interface {
	Prompt(ctx context.Context, message string) error
}
