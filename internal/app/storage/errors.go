package storage

import (
	"errors"

	apperrors "github.com/flockhq/flock/internal/errors"
)

// Translate maps store sentinels to client-facing errors. Other errors pass
// through unchanged.
func Translate(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound(resource, id)
	case errors.Is(err, ErrConflict):
		return apperrors.Conflict(resource + " already exists")
	}
	return err
}
