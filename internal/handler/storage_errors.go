package handler

import (
	"errors"

	"wadash/internal/app/storage"
	"wadash/internal/pkg/errs"
)

// storageError maps a storage client error onto the business error returned to the dashboard.
// The storage error stays attached as the cause; only the mapped message reaches clients.
func storageError(err error) *errs.CustomError {
	if err == nil {
		return nil
	}
	return storageCode(err).WithCause(err)
}

func storageCode(err error) *errs.CustomError {
	switch {
	case errors.Is(err, storage.ErrClockSkew):
		return errs.NewError(errs.ErrStorageClockSkew)
	case errors.Is(err, storage.ErrAuthRejected):
		return errs.NewError(errs.ErrStorageAuthRejected)
	case errors.Is(err, storage.ErrNetwork):
		return errs.NewError(errs.ErrStorageUnavailable)
	case errors.Is(err, storage.ErrForeignURL):
		return errs.NewError(errs.ErrForeignObjectURL)
	case errors.Is(err, storage.ErrInvalidKey):
		return errs.NewError(errs.ErrInvalidParams)
	case errors.Is(err, storage.ErrUploadFailed):
		return errs.NewError(errs.ErrFileStorageFailed)
	default:
		return errs.NewError(errs.ErrUnknown)
	}
}
