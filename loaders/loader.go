package loaders

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
	"github.com/pquerna/cachecontrol"
)

// Loader is the basic interface for raw content loaders.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// ErrorURLEmpty is empty url error
var ErrorURLEmpty = errors.New("URL is empty")

// CIDEmptyError is for error when CID is empty
var CIDEmptyError = errors.New("CID is empty")

// HTTP is loader for http / https content
type HTTP struct {
	URL string

	// Client overrides http.DefaultClient when set.
	Client *http.Client

	// Cache, when set, serves unexpired bodies and stores responses the
	// cache-control headers allow.
	Cache CacheEngine
}

// Load fetches the URL body, honoring the cache when one is configured.
func (l HTTP) Load(ctx context.Context) ([]byte, error) {
	if l.URL == "" {
		return nil, ErrorURLEmpty
	}

	if l.Cache != nil {
		data, expire, err := l.Cache.Get(l.URL)
		switch {
		case errors.Is(err, ErrCacheMiss):
		case err != nil:
			return nil, err
		case expire.After(time.Now()):
			return data, nil
		}
	}

	newCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(newCtx, http.MethodGet, l.URL, http.NoBody)
	if err != nil {
		return nil, err
	}

	c := l.Client
	if c == nil {
		c = http.DefaultClient
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, errors.WithMessage(err, "http request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("request failed with status code %v",
			resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		reasons, expire, ccErr := cachecontrol.CachableResponse(req, resp,
			cachecontrol.Options{})
		if ccErr == nil && len(reasons) == 0 {
			if err = l.Cache.Set(l.URL, data, expire); err != nil {
				return nil, err
			}
		}
	}

	return data, nil
}

// IPFS is loader for content-addressed data served by an IPFS node
type IPFS struct {
	URL string
	CID string
}

// Load method IPFS implementation
func (l IPFS) Load(ctx context.Context) ([]byte, error) {
	if l.URL == "" {
		return nil, ErrorURLEmpty
	}

	if l.CID == "" {
		return nil, CIDEmptyError
	}

	sh := shell.NewShell(l.URL)
	sh.SetTimeout(30 * time.Second)

	data, err := sh.Cat(l.CID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = data.Close() }()

	buf := new(bytes.Buffer)
	if _, err = buf.ReadFrom(data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
