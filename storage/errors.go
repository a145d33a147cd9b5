package storage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

var (
	// ErrNotFound indicates that no row exists for the requested task id.
	ErrNotFound = errors.New("task not found")
	// ErrConflict indicates that a row with the same keys already exists.
	ErrConflict = errors.New("task already exists")
	// ErrInvalidPageToken is returned for malformed continuation tokens.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// classify maps table service failures onto the package sentinels. Errors
// that are neither NotFound nor Conflict are returned wrapped as-is.
func classify(op string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == http.StatusNotFound && respErr.ErrorCode != "TableNotFound":
			return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
		case respErr.StatusCode == http.StatusConflict:
			return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
