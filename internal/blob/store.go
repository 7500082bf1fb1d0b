package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// Object is a stored blob with the metadata needed to serve it back.
type Object struct {
	Data        []byte
	ContentType string
	ETag        string
}

// NewObject builds an Object whose ETag is the hex SHA-256 of the data.
func NewObject(data []byte, contentType string) Object {
	sum := sha256.Sum256(data)
	return Object{
		Data:        data,
		ContentType: contentType,
		ETag:        hex.EncodeToString(sum[:]),
	}
}

// Store is a key-addressed blob store for uploaded images.
type Store interface {
	Put(ctx context.Context, filename string, obj Object) error
	Get(ctx context.Context, filename string) (*Object, error)
}
