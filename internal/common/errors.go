package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")

	// Registration and invite errors.
	ErrInviteRequired = errors.New("invite token required")
	ErrInvalidInvite  = errors.New("invalid invite token")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrAlreadyExists  = errors.New("already exists")

	// Token errors. Expired, malformed and wrong-purpose tokens all map here.
	ErrInvalidToken = errors.New("invalid token")
)

// Stable error kinds reported to clients.
const (
	KindInviteRequired = "InviteRequired"
	KindInvalidInvite  = "InvalidInvite"
	KindDuplicateEmail = "DuplicateEmail"
	KindInvalidToken   = "InvalidToken"
	KindUnauthorized   = "Unauthorized"
	KindAlreadyExists  = "AlreadyExists"
	KindNotFound       = "NotFound"
	KindValidation     = "Validation"
	KindInternal       = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInviteRequired, KindInviteRequired},
	{ErrInvalidInvite, KindInvalidInvite},
	{ErrDuplicateEmail, KindDuplicateEmail},
	{ErrInvalidToken, KindInvalidToken},
	{ErrUnauthorized, KindUnauthorized},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrorNotFound, KindNotFound},
	{ErrValidation, KindValidation},
}

// Kind maps err (possibly wrapped) to its stable kind. Unknown errors are
// reported as KindInternal.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
