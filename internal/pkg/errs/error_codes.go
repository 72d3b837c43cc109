/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with the dashboard.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Media Business Logic Errors
const (
	// ErrMediaCategoryInvalid indicates that the upload category is not one of the known categories.
	ErrMediaCategoryInvalid = 2101

	// ErrFileMissing indicates that the multipart form carried no file part.
	ErrFileMissing = 2102

	// ErrFileSizeTooLarge indicates that the file exceeds the category's size limit.
	ErrFileSizeTooLarge = 2103

	// ErrFileTypeNotAllowed indicates that the detected MIME type is not allowed for the category.
	ErrFileTypeNotAllowed = 2104

	// ErrFolderInvalid indicates that the optional folder segment contains forbidden characters.
	ErrFolderInvalid = 2105

	// ErrForeignObjectURL indicates that the URL does not point into the configured bucket.
	ErrForeignObjectURL = 2106

	// ErrFileEmpty indicates that the file part is present but has no content.
	ErrFileEmpty = 2107

	// ErrObjectNotManaged indicates that the object was not created by a media upload.
	ErrObjectNotManaged = 2108
)

// 3xxx: Operator Session and Security Errors
const (
	// ErrUnauthorized indicates that the request carries no valid operator token.
	ErrUnauthorized = 3001

	// ErrForbidden indicates that the token is valid but its role may not perform the operation.
	ErrForbidden = 3002
)

// 4xxx: Object Storage Errors
const (
	// ErrStorageUnavailable indicates that the object store could not be reached.
	ErrStorageUnavailable = 4001

	// ErrStorageAuthRejected indicates that the object store rejected the request signature or credentials.
	ErrStorageAuthRejected = 4002

	// ErrStorageClockSkew indicates that the object store rejected the request time.
	ErrStorageClockSkew = 4003

	// ErrFileStorageFailed indicates that the object store refused to store the file.
	ErrFileStorageFailed = 4004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
