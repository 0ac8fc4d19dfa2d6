package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisLookupPrefix   = "wikigraph:lookup:"
	redisRedirectPrefix = "wikigraph:redirect:"
	redisScanCount      = 1000
)

// Redis stores each entry as a string key written with SETNX, so the
// server decides which insert came first.  Lookup values are encoded
// as "offset:length".
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to the server at the given redis:// URL.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrapf(err, "parse redis url %s", url)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", url)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) setOnce(ctx context.Context, key, val string) error {
	ok, err := r.client.SetNX(ctx, key, val, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateKey
	}
	return nil
}

func (r *Redis) get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

func encodeLookup(e LookupEntry) string {
	return strconv.FormatUint(uint64(e.Offset), 10) + ":" + strconv.FormatUint(uint64(e.Length), 10)
}

func decodeLookup(title, val string) (LookupEntry, error) {
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return LookupEntry{}, errors.Errorf("bad lookup value %q for %q", val, title)
	}
	offset, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return LookupEntry{}, err
	}
	length, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return LookupEntry{}, err
	}
	return LookupEntry{Title: title, Offset: uint32(offset), Length: uint32(length)}, nil
}

func (r *Redis) PutLookup(ctx context.Context, e LookupEntry) error {
	return r.setOnce(ctx, redisLookupPrefix+e.Title, encodeLookup(e))
}

func (r *Redis) PutRedirect(ctx context.Context, e RedirectEntry) error {
	return r.setOnce(ctx, redisRedirectPrefix+e.From, e.To)
}

func (r *Redis) Lookup(ctx context.Context, title string) (LookupEntry, error) {
	val, err := r.get(ctx, redisLookupPrefix+title)
	if err != nil {
		return LookupEntry{}, err
	}
	return decodeLookup(title, val)
}

func (r *Redis) Redirect(ctx context.Context, from string) (string, error) {
	return r.get(ctx, redisRedirectPrefix+from)
}

// each walks every key with the given prefix.  Keys that vanish
// between SCAN and GET are skipped.
func (r *Redis) each(ctx context.Context, prefix string, fn func(key, val string) error) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := r.get(ctx, key)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(strings.TrimPrefix(key, prefix), val); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *Redis) EachLookup(ctx context.Context, fn func(LookupEntry) error) error {
	return r.each(ctx, redisLookupPrefix, func(title, val string) error {
		e, err := decodeLookup(title, val)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

func (r *Redis) EachRedirect(ctx context.Context, fn func(RedirectEntry) error) error {
	return r.each(ctx, redisRedirectPrefix, func(from, to string) error {
		return fn(RedirectEntry{From: from, To: to})
	})
}

func (r *Redis) Close() error {
	return r.client.Close()
}
