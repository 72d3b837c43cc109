/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Media Business Logic Errors
	ErrMediaCategoryInvalid: {Code: ErrMediaCategoryInvalid, Message: "Unknown media category.", Status: http.StatusNotFound},
	ErrFileMissing:          {Code: ErrFileMissing, Message: "No file was uploaded.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:     {Code: ErrFileSizeTooLarge, Message: "File is too large. The limit is %s.", Status: http.StatusRequestEntityTooLarge},
	ErrFileTypeNotAllowed:   {Code: ErrFileTypeNotAllowed, Message: "File type %s is not allowed here.", Status: http.StatusUnsupportedMediaType},
	ErrFolderInvalid:        {Code: ErrFolderInvalid, Message: "Invalid folder name.", Status: http.StatusBadRequest},
	ErrForeignObjectURL:     {Code: ErrForeignObjectURL, Message: "URL does not belong to this storage bucket.", Status: http.StatusBadRequest},
	ErrFileEmpty:            {Code: ErrFileEmpty, Message: "The uploaded file is empty.", Status: http.StatusBadRequest},
	ErrObjectNotManaged:     {Code: ErrObjectNotManaged, Message: "This file was not uploaded through the dashboard.", Status: http.StatusBadRequest},

	// 3xxx: Operator Session and Security Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrForbidden:    {Code: ErrForbidden, Message: "You are not allowed to do this.", Status: http.StatusForbidden},

	// 4xxx: Object Storage Errors
	ErrStorageUnavailable:  {Code: ErrStorageUnavailable, Message: "File storage is unreachable. Please try again later.", Status: http.StatusBadGateway},
	ErrStorageAuthRejected: {Code: ErrStorageAuthRejected, Message: "File storage rejected the server credentials.", Status: http.StatusBadGateway},
	ErrStorageClockSkew:    {Code: ErrStorageClockSkew, Message: "Server clock is out of sync with file storage.", Status: http.StatusBadGateway},
	ErrFileStorageFailed:   {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
