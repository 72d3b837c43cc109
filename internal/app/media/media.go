/*
Package media defines the upload categories the dashboard widgets use and the rules
that turn an uploaded file into an object key: size limits, allowed MIME types,
content sniffing and key layout.
*/
package media

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"wadash/internal/pkg/errs"
	"wadash/internal/pkg/randx"
)

const (
	// CategoryProfilePhoto holds WhatsApp profile pictures.
	CategoryProfilePhoto = "profile-photo"

	// CategoryGroupImage holds group avatar images.
	CategoryGroupImage = "group-image"

	// CategoryTutorialVideo holds onboarding and tutorial videos.
	CategoryTutorialVideo = "tutorial-video"

	// CategoryTutorialDocument holds tutorial PDFs and office documents.
	CategoryTutorialDocument = "tutorial-document"

	genericMIME = "application/octet-stream"
)

// Category describes what may be uploaded under one key prefix.
type Category struct {
	Name         string
	MaxSize      int64
	AllowedTypes []string
}

var categories = map[string]Category{
	CategoryProfilePhoto: {
		Name:         CategoryProfilePhoto,
		MaxSize:      5 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
	},
	CategoryGroupImage: {
		Name:         CategoryGroupImage,
		MaxSize:      10 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
	},
	CategoryTutorialVideo: {
		Name:         CategoryTutorialVideo,
		MaxSize:      200 << 20,
		AllowedTypes: []string{"video/mp4", "video/webm", "video/quicktime"},
	},
	CategoryTutorialDocument: {
		Name:    CategoryTutorialDocument,
		MaxSize: 25 << 20,
		AllowedTypes: []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"text/plain",
		},
	},
}

// LookupCategory returns the category with the given name.
func LookupCategory(name string) (Category, *errs.CustomError) {
	c, ok := categories[name]
	if !ok {
		return Category{}, errs.NewError(errs.ErrMediaCategoryInvalid)
	}
	return c, nil
}

// MaxUploadSize is the largest MaxSize over all categories. It bounds request bodies
// before the category is known.
func MaxUploadSize() int64 {
	var limit int64
	for _, c := range categories {
		limit = max(limit, c.MaxSize)
	}
	return limit
}

// ValidateFileSize checks if the provided file size is within the category limit.
func (c Category) ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrFileEmpty)
	}

	if fileSize > c.MaxSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, humanize.IBytes(uint64(c.MaxSize)))
	}

	return nil
}

// ResolveType decides the MIME type of data. A specific declared type is kept when
// the content agrees with it or cannot be identified; otherwise the sniffed type wins.
func ResolveType(declared string, data []byte) string {
	detected := mimetype.Detect(data)
	declared = baseType(declared)

	switch {
	case declared == "" || declared == genericMIME:
		return baseType(detected.String())
	case detected.Is(declared):
		return declared
	case detected.Is(genericMIME):
		return declared
	default:
		return baseType(detected.String())
	}
}

// ValidateFileType checks the resolved MIME type against the category allowlist.
func (c Category) ValidateFileType(mimeType string) *errs.CustomError {
	mimeType = baseType(mimeType)
	for _, allowed := range c.AllowedTypes {
		if allowed == mimeType {
			return nil
		}
	}
	return errs.NewError(errs.ErrFileTypeNotAllowed, mimeType)
}

// Extension picks the object key extension for mimeType, falling back to the
// original file name's extension when the type has no registered one.
func Extension(mimeType string, fileName string) string {
	if m := mimetype.Lookup(baseType(mimeType)); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 || !randx.IsValidFolder(ext[1:]) {
		return ""
	}
	return ext
}

// ObjectKey builds "{category}/{folder}/{uuid}{ext}". The folder may be empty.
func (c Category) ObjectKey(folder string, ext string) (string, *errs.CustomError) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if !randx.IsValidFolder(folder) {
		return "", errs.NewError(errs.ErrFolderInvalid)
	}
	return path.Join(c.Name, folder, randx.ObjectID()+ext), nil
}

// IsManagedKey reports whether key has the layout ObjectKey produces: a known category
// prefix and a UUID base name.
func IsManagedKey(key string) bool {
	category, _, ok := strings.Cut(key, "/")
	if !ok {
		return false
	}
	if _, known := categories[category]; !known {
		return false
	}
	base := path.Base(key)
	return randx.IsValidObjectID(strings.TrimSuffix(base, path.Ext(base)))
}

func baseType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
