package gate

import (
	"errors"

	"github.com/playperu/huntgate/internal/hunt"
)

// storageError maps an unexpected store error to a domain error so the
// caller always sees a specific code.
func storageError(msg string, err error) error {
	var domainErr *hunt.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, hunt.ErrNotFound) {
		return hunt.WrapError(hunt.CodeNotFound, msg, err)
	}
	return hunt.WrapError(hunt.CodeStorageUnavailable, msg, err)
}
