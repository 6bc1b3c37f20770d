package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")

	ErrEmptyContent     = fmt.Errorf("message content is empty")
	ErrSelfMessage      = fmt.Errorf("sender and receiver are the same user")
	ErrContentTooLong   = fmt.Errorf("message content exceeds the maximum length")
	ErrUnauthorized     = fmt.Errorf("no valid session")
	ErrNotAllowed       = fmt.Errorf("messaging policy denies this pair")
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
	ErrFeedClosed       = fmt.Errorf("change feed subscription closed")
	ErrInvalidToken     = fmt.Errorf("invalid or expired token")
	ErrEmptyQuery       = fmt.Errorf("search query is empty")
)
