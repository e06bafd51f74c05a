// Package blob stores uploaded onboarding documents. Objects are addressed
// by a stable URL of the form <endpoint>/<bucket>/<key>; Delete accepts
// the same URL back.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrForeignURL = errors.New("url does not belong to this store")
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

// locator converts between object keys and public URLs for one bucket.
type locator struct {
	base   url.URL
	bucket string
}

func newLocator(scheme, host, bucket string) locator {
	return locator{base: url.URL{Scheme: scheme, Host: host}, bucket: bucket}
}

func (l locator) url(key string) string {
	u := l.base
	u.Path = "/" + l.bucket + "/" + strings.TrimPrefix(key, "/")
	return u.String()
}

func (l locator) key(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrForeignURL, err)
	}
	if u.Scheme != l.base.Scheme || u.Host != l.base.Host {
		return "", ErrForeignURL
	}
	key, ok := strings.CutPrefix(u.Path, "/"+l.bucket+"/")
	if !ok || key == "" {
		return "", ErrForeignURL
	}
	return key, nil
}

// ObjectKey builds the storage key for a user's upload. The file name is
// reduced to its base so callers cannot escape the user's prefix.
func ObjectKey(userID, documentID, fileName string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return userID + "/" + documentID + "/" + name
}
