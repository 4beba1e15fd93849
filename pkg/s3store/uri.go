package s3store

import (
	"errors"
	"fmt"
	"strings"
)

const scheme = "s3://"

// ErrInvalidURI indicates a location that is not a usable s3://bucket/key.
var ErrInvalidURI = errors.New("invalid S3 URI")

// IsS3URI reports whether loc names an S3 object rather than a local path.
func IsS3URI(loc string) bool {
	return strings.HasPrefix(loc, scheme)
}

// ParseS3URI splits s3://bucket/key. A map is a single object, so the key
// must be present and must not name a prefix.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("%w: %q must start with %s", ErrInvalidURI, uri, scheme)
	}

	path := strings.TrimPrefix(uri, scheme)
	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q is missing a bucket name", ErrInvalidURI, uri)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q does not name an object", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}
