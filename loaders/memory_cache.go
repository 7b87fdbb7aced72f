package loaders

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheEngine stores fetched metadata documents until their HTTP expiry.
type CacheEngine interface {
	Get(key string) (data []byte, expireTime time.Time, err error)
	Set(key string, data []byte, expireTime time.Time) error
}

type cachedDocument struct {
	data       []byte
	expireTime time.Time
}

type memoryCacheEngine struct {
	m         sync.RWMutex
	cache     map[string]*cachedDocument
	embedDocs map[string][]byte
}

func (m *memoryCacheEngine) Get(key string) ([]byte, time.Time, error) {
	if m.embedDocs != nil {
		data, ok := m.embedDocs[key]
		if ok {
			return data, time.Now().Add(time.Hour), nil
		}
	}

	m.m.RLock()
	defer m.m.RUnlock()

	cd, ok := m.cache[key]
	if ok {
		return cd.data, cd.expireTime, nil
	}
	return nil, time.Time{}, ErrCacheMiss
}

func (m *memoryCacheEngine) Set(key string, data []byte,
	expireTime time.Time) error {

	if m.embedDocs != nil {
		// if we have the document in the embedded cache, do not overwrite it
		// with the new value.
		_, ok := m.embedDocs[key]
		if ok {
			return nil
		}
	}

	m.m.Lock()
	defer m.m.Unlock()

	m.cache[key] = &cachedDocument{
		data:       data,
		expireTime: expireTime,
	}

	return nil
}

type MemoryCacheEngineOption func(*memoryCacheEngine)

// WithEmbeddedDocumentBytes pins a document that is always served from
// memory and never expires or gets overwritten.
func WithEmbeddedDocumentBytes(u string, doc []byte) MemoryCacheEngineOption {
	return func(engine *memoryCacheEngine) {
		if engine.embedDocs == nil {
			engine.embedDocs = make(map[string][]byte)
		}

		engine.embedDocs[u] = doc
	}
}

func NewMemoryCacheEngine(opts ...MemoryCacheEngineOption) CacheEngine {
	e := &memoryCacheEngine{
		cache: make(map[string]*cachedDocument),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
