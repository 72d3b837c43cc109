/*
Package randx provides functions for generating cryptographically secure random identifiers
and validating the user-supplied path segments that accompany them.

It is primarily used to generate UUID object names for uploaded media and Base62 token IDs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// TokenIDLength is the length of the Base62 identifier stamped on issued tokens.
	TokenIDLength = 12

	// MaxFolderDepth is the maximum number of segments in a caller-chosen folder.
	MaxFolderDepth = 3

	// MaxSegmentLength is the maximum length of one folder segment.
	MaxSegmentLength = 64
)

// Base62 returns a Base62 string of the given length drawn from crypto/rand.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for base62 id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ObjectID generates a standard UUID v4 string used as the stored object's base name.
func ObjectID() string {
	return uuid.New().String()
}

// IsValidObjectID checks that id is a canonical UUID string.
func IsValidObjectID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// IsValidFolder checks a slash-separated folder path. Each segment must be 1 to
// MaxSegmentLength characters from Base62Chars, '-' or '_', and there may be at most
// MaxFolderDepth segments. The empty string is valid and means no folder.
func IsValidFolder(folder string) bool {
	if folder == "" {
		return true
	}

	segments := strings.Split(folder, "/")
	if len(segments) > MaxFolderDepth {
		return false
	}

	for _, segment := range segments {
		if segment == "" || len(segment) > MaxSegmentLength {
			return false
		}
		for _, char := range segment {
			if char != '-' && char != '_' && !strings.ContainsRune(Base62Chars, char) {
				return false
			}
		}
	}

	return true
}
