// Package storage persists JSON-serializable collections under string keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// ErrQuotaExceeded is returned when a store refuses a write because it is full.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store loads and saves values by key.
//
// Load decodes the stored value into dst and reports whether it did. Absent keys
// and undecodable payloads both return false with dst untouched, so callers
// pre-fill dst with their default. An error means the medium itself failed.
type Store interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, value any) error
}

func encode(value any) ([]byte, error) {
	b, err := sonic.ConfigStd.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return b, nil
}

// decodeInto reports false for payloads that cannot be decoded into dst. The
// payload is decoded into a fresh value first because the decoder may fill part
// of its target before it fails; dst only changes on success.
func decodeInto(key string, payload []byte, dst any) bool {
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		log.WithField("key", key).Errorf("storage: cannot decode into %T", dst)
		return false
	}
	fresh := reflect.New(target.Elem().Type())
	if err := sonic.ConfigStd.Unmarshal(payload, fresh.Interface()); err != nil {
		log.WithField("key", key).Warnf("storage: unreadable payload, using default: %v", err)
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}

type namespaced struct {
	base   Store
	prefix string
}

// Namespaced prefixes every key with "<namespace>_" before delegating to base.
func Namespaced(base Store, namespace string) Store {
	if namespace == "" {
		return base
	}
	return &namespaced{base: base, prefix: namespace + "_"}
}

func (n *namespaced) Load(ctx context.Context, key string, dst any) (bool, error) {
	return n.base.Load(ctx, n.prefix+key, dst)
}

func (n *namespaced) Save(ctx context.Context, key string, value any) error {
	return n.base.Save(ctx, n.prefix+key, value)
}
