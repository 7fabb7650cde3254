// Package session runs the call-screening loop: wait for a caller-ID line,
// check it against the whitelist and blacklist, hang up on blacklisted
// callers and, for unlisted ones, offer the called party a short window to
// blacklist the caller with a key press.
package session

import "fmt"

// State is the controller's position in the call cycle.
type State int32

const (
	StateInit State = iota
	StateWaitingForCall
	StateLineReceived
	StateAccepted
	StateTerminated
	// StatePolling is the ring count taken before a window is offered
	StatePolling
	StateAuthorizationWindow
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateWaitingForCall:
		return "WAITING_FOR_CALL"
	case StateLineReceived:
		return "LINE_RECEIVED"
	case StateAccepted:
		return "ACCEPTED"
	case StateTerminated:
		return "TERMINATED"
	case StatePolling:
		return "POLLING"
	case StateAuthorizationWindow:
		return "AUTHORIZATION_WINDOW"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Outcome is how one call was handled.
type Outcome int

const (
	// OutcomeWhitelisted calls were accepted without a blacklist check
	OutcomeWhitelisted Outcome = iota
	// OutcomeBlacklisted calls were hung up
	OutcomeBlacklisted
	// OutcomeUnlisted calls were left ringing with no window offered
	OutcomeUnlisted
	// OutcomeWindowExpired calls got a window but no key press
	OutcomeWindowExpired
	// OutcomeAuthorized calls were added to the blacklist during the window
	OutcomeAuthorized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWhitelisted:
		return "whitelisted"
	case OutcomeBlacklisted:
		return "blacklisted"
	case OutcomeUnlisted:
		return "unlisted"
	case OutcomeWindowExpired:
		return "window-expired"
	case OutcomeAuthorized:
		return "authorized"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}
