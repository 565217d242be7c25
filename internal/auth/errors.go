package auth

import "fmt"

// FailureKind classifies why a credential was rejected. The set is closed.
type FailureKind int

const (
	// FailureUnauthenticated means no credential was presented
	FailureUnauthenticated FailureKind = iota + 1
	// FailureInvalidCredential covers bad signatures, wrong algorithms, malformed tokens and missing claims
	FailureInvalidCredential
	// FailureExpired means the credential was genuine but is past its expiry
	FailureExpired
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnauthenticated:
		return "unauthenticated"
	case FailureInvalidCredential:
		return "invalid_credential"
	case FailureExpired:
		return "expired"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Error is returned by Verify. Err holds the underlying parser error for logs.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
	}
	return "auth: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrExpired) works on wrapped values
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrUnauthenticated   = &Error{Kind: FailureUnauthenticated}
	ErrInvalidCredential = &Error{Kind: FailureInvalidCredential}
	ErrExpired           = &Error{Kind: FailureExpired}
)

func failure(kind FailureKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
