package storage

import (
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidKey = errors.New("invalid asset key")

// allowed asset extensions and their content types
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// ContentType returns the content type for an allowed key, or "" otherwise.
func ContentType(key string) string {
	return imageTypes[strings.ToLower(path.Ext(key))]
}

// ValidateKey rejects keys that could escape the bucket prefix or that do
// not name an image.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return ErrInvalidKey
	case strings.HasPrefix(key, "/"), strings.Contains(key, "\\"):
		return ErrInvalidKey
	case ContentType(key) == "":
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// NewKey builds "<folder>/<uuid><ext>" from an uploaded filename. Folder is
// optional and must itself be a clean relative path.
func NewKey(folder, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := imageTypes[ext]; !ok {
		return "", ErrInvalidKey
	}
	name := uuid.NewString() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name, nil
	}
	key := folder + "/" + name
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
