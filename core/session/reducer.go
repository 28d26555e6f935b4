package session

import "github.com/trezcool/masomo-portal/core/user"

type eventKind int

const (
	eventRestored eventKind = iota
	eventAuthenticated
	eventSignedOut
)

// restoreResult is the outcome of validating persisted credentials.
type restoreResult struct {
	token    string
	identity user.User
	err      error
}

type event struct {
	kind     eventKind
	token    string
	identity user.User
	restore  restoreResult
}

func restored(res restoreResult) event { return event{kind: eventRestored, restore: res} }

func authenticated(token string, usr user.User) event {
	return event{kind: eventAuthenticated, token: token, identity: usr}
}

func signedOut() event { return event{kind: eventSignedOut} }

func anonymousState() State { return State{Status: StatusAnonymous} }

func authenticatedState(token string, usr user.User) State {
	if token == "" {
		return anonymousState()
	}
	return State{Status: StatusAuthenticated, Token: token, Identity: &usr}
}

// reduce computes the next state. It never mutates s.
func reduce(s State, e event) State {
	switch e.kind {
	case eventRestored:
		if e.restore.err != nil {
			return anonymousState()
		}
		return authenticatedState(e.restore.token, e.restore.identity)
	case eventAuthenticated:
		return authenticatedState(e.token, e.identity)
	case eventSignedOut:
		return anonymousState()
	}
	return s
}
