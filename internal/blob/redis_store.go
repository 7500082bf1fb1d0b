package blob

import (
	"context"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "event_image:"

// RedisStore keeps each blob in a redis hash keyed by filename, with the
// bytes and serving metadata as hash fields.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (r *RedisStore) Put(ctx context.Context, filename string, obj Object) error {
	return r.Client.HSet(ctx, keyPrefix+filename, map[string]interface{}{
		"data":         obj.Data,
		"content_type": obj.ContentType,
		"etag":         obj.ETag,
	}).Err()
}

func (r *RedisStore) Get(ctx context.Context, filename string) (*Object, error) {
	fields, err := r.Client.HGetAll(ctx, keyPrefix+filename).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return &Object{
		Data:        []byte(fields["data"]),
		ContentType: fields["content_type"],
		ETag:        fields["etag"],
	}, nil
}
