package loaders

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ProposalOption is one question of a proposal together with its accepted
// answers.
type ProposalOption struct {
	Title    string   `json:"title"`
	Variants []string `json:"variants"`
}

// ProposalMetadata is the off-chain part of a proposal, stored in
// content-addressed storage and referenced by CID from the proposal config.
type ProposalMetadata struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	AcceptedOptions []ProposalOption `json:"acceptedOptions"`
	ImageCID        string           `json:"imageCid,omitempty"`
	IsRanking       bool             `json:"isRanking,omitempty"`
}

const metadataSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "acceptedOptions"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "acceptedOptions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "variants"],
        "properties": {
          "title": {"type": "string"},
          "variants": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "imageCid": {"type": "string"},
    "isRanking": {"type": "boolean"}
  }
}`

// MetadataLoader fetches and validates proposal metadata. Documents come
// from an IPFS node, an IPFS HTTP gateway or a plain http(s) URL; gateway
// and http bodies are cached per the response's cache-control headers. The
// content is untrusted, so it is schema-validated before decoding.
type MetadataLoader struct {
	ipfsNode    string
	ipfsGW      string
	cacheEngine CacheEngine
	noCache     bool
	httpClient  *http.Client
	schema      *jsonschema.Schema
}

type MetadataLoaderOption func(*MetadataLoader)

func WithCacheEngine(cacheEngine CacheEngine) MetadataLoaderOption {
	return func(loader *MetadataLoader) {
		if cacheEngine == nil {
			loader.noCache = true
			return
		}

		loader.cacheEngine = cacheEngine
	}
}

func WithHTTPClient(client *http.Client) MetadataLoaderOption {
	return func(loader *MetadataLoader) {
		loader.httpClient = client
	}
}

// NewMetadataLoader creates a metadata loader with an in-memory cache for
// http fetches. ipfs node fetches are not cached.
func NewMetadataLoader(ipfsNode, ipfsGW string,
	opts ...MetadataLoaderOption) (*MetadataLoader, error) {

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("metadata.json",
		strings.NewReader(metadataSchema)); err != nil {
		return nil, errors.Wrap(err, "adding metadata schema resource")
	}

	schema, err := compiler.Compile("metadata.json")
	if err != nil {
		return nil, errors.Wrap(err, "compiling metadata schema")
	}

	loader := &MetadataLoader{
		ipfsNode:   ipfsNode,
		ipfsGW:     ipfsGW,
		httpClient: http.DefaultClient,
		schema:     schema,
	}

	for _, opt := range opts {
		opt(loader)
	}

	if loader.cacheEngine == nil && !loader.noCache {
		loader.cacheEngine = NewMemoryCacheEngine()
	}

	return loader, nil
}

// Load fetches, validates and decodes the metadata document at u.
// Supported URLs:
// ipfs://<cid>
// ipfs://<cid>/dir/metadata.json
// http(s)://...
func (l *MetadataLoader) Load(ctx context.Context, u string) (*ProposalMetadata, error) {
	const ipfsPrefix = "ipfs://"

	var loader Loader

	switch {
	case strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://"):
		loader = l.httpLoader(u)

	case strings.HasPrefix(u, ipfsPrefix):
		path := u[len(ipfsPrefix):]

		switch {
		case l.ipfsNode != "":
			loader = IPFS{URL: l.ipfsNode, CID: path}
		case l.ipfsGW != "":
			loader = l.httpLoader(gatewayURL(l.ipfsGW, path))
		default:
			return nil, errors.New("ipfs is not configured")
		}

	default:
		return nil, errors.Errorf("unsupported URL schema in %q", u)
	}

	data, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	return l.decode(data)
}

func (l *MetadataLoader) httpLoader(u string) Loader {
	return HTTP{URL: u, Client: l.httpClient, Cache: l.cacheEngine}
}

func gatewayURL(gw, path string) string {
	return strings.TrimRight(gw, "/") + "/ipfs/" + strings.TrimLeft(path, "/")
}

func (l *MetadataLoader) decode(data []byte) (*ProposalMetadata, error) {
	var c interface{}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "metadata is not valid json")
	}

	if err := l.schema.Validate(c); err != nil {
		return nil, errors.Wrap(err, "metadata does not match schema")
	}

	var metadata ProposalMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, errors.Wrap(err, "decoding metadata")
	}

	return &metadata, nil
}
