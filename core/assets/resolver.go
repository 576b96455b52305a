package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
	"github.com/MrDemonWolf/linkden-sub002/core/schema"
)

// DefaultMaxAssetBytes caps one image payload. Oversized images are rejected
// rather than truncated or resized.
const DefaultMaxAssetBytes = 1 << 20

// Fetcher retrieves the raw bytes behind one image reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref schema.ImageRef) ([]byte, error)
}

// HTTPFetcher fetches URL references with a shared client. Inline blob
// references are returned as-is without touching the network.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref schema.ImageRef) ([]byte, error) {
	if len(ref.Blob) > 0 {
		return ref.Blob, nil
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.URL, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ref.URL, response.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(response.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.URL, err)
	}
	if int64(len(payload)) > maxBytes {
		return nil, errTooLarge
	}
	return payload, nil
}

// errTooLarge marks the fetcher-level size rejection so the resolver can
// classify it without string matching.
var errTooLarge = fmt.Errorf("payload exceeds asset size limit")

// Resolver resolves every image reference in a wallet config into a
// validated Set.
type Resolver struct {
	Fetcher  Fetcher
	MaxBytes int64
}

// NewResolver returns a resolver backed by an HTTP fetcher with the default
// size cap.
func NewResolver(client *http.Client) *Resolver {
	return &Resolver{
		Fetcher:  &HTTPFetcher{Client: client, MaxBytes: DefaultMaxAssetBytes},
		MaxBytes: DefaultMaxAssetBytes,
	}
}

type assetRequest struct {
	baseName string
	name2x   string
	ref      schema.ImageRef
	required bool
}

// Resolve fetches, validates, and names every asset the config references.
// Distinct assets are fetched concurrently; any failure aborts the build.
// Configs without an icon reference fall back to the bundled default icon so
// the icon invariant always holds.
func (r *Resolver) Resolve(ctx context.Context, config schema.WalletConfig) (Set, error) {
	requests := []assetRequest{
		{baseName: NameIcon, name2x: NameIcon2x, ref: config.Icon, required: true},
		{baseName: NameLogo, name2x: NameLogo2x, ref: config.Logo},
		{baseName: NameStrip, name2x: NameStrip2x, ref: config.Strip},
		{baseName: NameThumbnail, name2x: NameThumbnail2x, ref: config.Thumbnail},
	}

	set := make(Set)
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make([]error, len(requests))

	for i, request := range requests {
		if request.ref.IsZero() {
			if request.required {
				icon, icon2x := DefaultIcon()
				set[request.baseName] = icon
				set[request.name2x] = icon2x
			}
			continue
		}
		wg.Add(1)
		go func(index int, request assetRequest) {
			defer wg.Done()
			payload, err := r.fetchOne(ctx, request)
			if err != nil {
				errs[index] = err
				return
			}
			mu.Lock()
			defer mu.Unlock()
			set[request.baseName] = payload
			// The admin UI stores a single rendition per image; the retina
			// slot reuses it so the wallet always finds an @2x entry.
			set[request.name2x] = payload
		}(i, request)
	}
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *Resolver) fetchOne(ctx context.Context, request assetRequest) ([]byte, error) {
	fetcher := r.Fetcher
	if fetcher == nil {
		fetcher = &HTTPFetcher{MaxBytes: r.MaxBytes}
	}
	payload, err := fetcher.Fetch(ctx, request.ref)
	if err != nil {
		if err == errTooLarge {
			return nil, tooLarge(request.baseName, int64(0))
		}
		return nil, coreerrors.Classify(
			coreerrors.ErrAssetFetch,
			fmt.Errorf("%s: %w", request.baseName, err),
			coreerrors.CategoryAssetResolution,
			"asset_fetch_failed",
			"check that the image source is reachable",
			true,
		)
	}
	maxBytes := r.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}
	if int64(len(payload)) > maxBytes {
		return nil, tooLarge(request.baseName, int64(len(payload)))
	}
	if err := SniffPNG(request.baseName, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func tooLarge(name string, size int64) error {
	cause := fmt.Errorf("%s exceeds the asset size limit", name)
	if size > 0 {
		cause = fmt.Errorf("%s is %d bytes, over the asset size limit", name, size)
	}
	return coreerrors.Classify(
		coreerrors.ErrAssetTooLarge,
		cause,
		coreerrors.CategoryAssetResolution,
		"asset_too_large",
		"shrink the image below the configured size limit",
		false,
	)
}

func firstError(errs []error) error {
	indexes := make([]int, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return nil
	}
	sort.Ints(indexes)
	return errs[indexes[0]]
}
