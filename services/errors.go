package services

import (
	"errors"
	"fmt"
)

// Kind classifies every error the engine returns to callers.
type Kind string

const (
	KindInvalidArgument    Kind = "InvalidArgument"
	KindPermissionDenied   Kind = "PermissionDenied"
	KindNotFound           Kind = "NotFound"
	KindFailedPrecondition Kind = "FailedPrecondition"
	KindAlreadyExists      Kind = "AlreadyExists"
	KindInternal           Kind = "Internal"
)

// Error carries a Kind and a human-readable message. Err is the sentinel or
// underlying cause and stays reachable through errors.Is and errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, sentinel error, format string, args ...any) *Error {
	msg := sentinel.Error()
	if format != "" {
		msg = fmt.Sprintf("%s: %s", msg, fmt.Sprintf(format, args...))
	}
	return &Error{Kind: kind, Message: msg, Err: sentinel}
}

func invalidArgument(sentinel error, format string, args ...any) error {
	return newError(KindInvalidArgument, sentinel, format, args...)
}

func permissionDenied(sentinel error, format string, args ...any) error {
	return newError(KindPermissionDenied, sentinel, format, args...)
}

func notFound(sentinel error, format string, args ...any) error {
	return newError(KindNotFound, sentinel, format, args...)
}

func failedPrecondition(sentinel error, format string, args ...any) error {
	return newError(KindFailedPrecondition, sentinel, format, args...)
}

func alreadyExists(sentinel error, format string, args ...any) error {
	return newError(KindAlreadyExists, sentinel, format, args...)
}

func internal(sentinel error, format string, args ...any) error {
	return newError(KindInternal, sentinel, format, args...)
}

// KindOf returns the kind of err, Internal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrNotFound            = errors.New("requested resource not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRatingNotFound      = errors.New("rating profile not found")

	ErrValidationFailed    = errors.New("validation failed")
	ErrScoreInvalid        = errors.New("invalid score")
	ErrScoreWinnerMismatch = errors.New("score does not favour the declared winner")
	ErrSeedOutOfRange      = errors.New("seed out of range")
	ErrDuplicateSeed       = errors.New("seed assigned to more than one participant")
	ErrInvalidStatus       = errors.New("invalid competition status")

	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrNotInMatch         = errors.New("caller is not a participant of this match")

	ErrWrongCompetitionKind      = errors.New("operation not supported for this competition type")
	ErrInvalidStatusTransition   = errors.New("invalid competition status transition")
	ErrRegistrationClosed        = errors.New("competition no longer accepts entries")
	ErrSeedingClosed             = errors.New("seeds can only change while in draft or registration")
	ErrNotEnoughParticipants     = errors.New("not enough participants (minimum 2)")
	ErrCompetitionNotRunning     = errors.New("competition is not running")
	ErrMatchAlreadyCompleted     = errors.New("match already completed")
	ErrMatchNotReady             = errors.New("match participants are not resolved yet")
	ErrMatchAlreadyStarted       = errors.New("match already started")
	ErrRoundNotResolved          = errors.New("earlier rounds are not fully resolved")
	ErrRegularSeasonIncomplete   = errors.New("not all regular season matches are completed")
	ErrNotEnoughQualifiers       = errors.New("not enough qualifiers for playoffs (minimum 2)")
	ErrNoResultAvailable         = errors.New("no final result available")
	ErrBracketAlreadyGenerated   = errors.New("matches were already generated")
	ErrParticipantAlreadyEntered = errors.New("participant or player already registered")
	ErrCompetitionExists         = errors.New("competition already exists")

	ErrWinnerNotInMatch  = errors.New("winner is not one of the match participants")
	ErrCorruptStandings  = errors.New("standings are corrupt")
	ErrCorruptMatchGraph = errors.New("match graph is corrupt")
	ErrTransactionFailed = errors.New("transaction failed")
)
