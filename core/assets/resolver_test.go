package assets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
	"github.com/MrDemonWolf/linkden-sub002/core/schema"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	icon, _ := DefaultIcon()
	return icon
}

func TestResolveBlobReferences(t *testing.T) {
	resolver := NewResolver(nil)
	config := schema.WalletConfig{
		Icon: schema.ImageRef{Blob: pngBytes(t)},
		Logo: schema.ImageRef{Blob: pngBytes(t)},
	}
	set, err := resolver.Resolve(context.Background(), config)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	for _, name := range []string{NameIcon, NameIcon2x, NameLogo, NameLogo2x} {
		if len(set[name]) == 0 {
			t.Fatalf("expected %s in set", name)
		}
	}
	if _, ok := set[NameStrip]; ok {
		t.Fatalf("strip must be absent when not referenced")
	}
}

func TestResolveDefaultIconFallback(t *testing.T) {
	resolver := NewResolver(nil)
	set, err := resolver.Resolve(context.Background(), schema.WalletConfig{})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if len(set[NameIcon]) == 0 || len(set[NameIcon2x]) == 0 {
		t.Fatalf("expected bundled default icon pair")
	}
	if string(set[NameIcon]) == string(set[NameIcon2x]) {
		t.Fatalf("default icon renditions must differ in size")
	}
}

func TestResolveHTTPSource(t *testing.T) {
	payload := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	resolver := NewResolver(server.Client())
	config := schema.WalletConfig{Icon: schema.ImageRef{URL: server.URL + "/icon.png"}}
	set, err := resolver.Resolve(context.Background(), config)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if string(set[NameIcon]) != string(payload) {
		t.Fatalf("fetched bytes differ from served bytes")
	}
}

func TestResolveUnreachableSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := NewResolver(server.Client())
	config := schema.WalletConfig{Icon: schema.ImageRef{URL: server.URL + "/missing.png"}}
	if _, err := resolver.Resolve(context.Background(), config); !errors.Is(err, coreerrors.ErrAssetFetch) {
		t.Fatalf("expected ErrAssetFetch, got %v", err)
	}
}

func TestResolveRejectsNonPNG(t *testing.T) {
	resolver := NewResolver(nil)
	config := schema.WalletConfig{Icon: schema.ImageRef{Blob: []byte("GIF89a not a png")}}
	if _, err := resolver.Resolve(context.Background(), config); !errors.Is(err, coreerrors.ErrUnsupportedImageFormat) {
		t.Fatalf("expected ErrUnsupportedImageFormat, got %v", err)
	}
}

func TestResolveRejectsOversizedAsset(t *testing.T) {
	payload := pngBytes(t)
	resolver := &Resolver{
		Fetcher:  &HTTPFetcher{MaxBytes: int64(len(payload))},
		MaxBytes: int64(len(payload)) - 1,
	}
	config := schema.WalletConfig{Icon: schema.ImageRef{Blob: payload}}
	if _, err := resolver.Resolve(context.Background(), config); !errors.Is(err, coreerrors.ErrAssetTooLarge) {
		t.Fatalf("expected ErrAssetTooLarge, got %v", err)
	}
}

func TestHTTPFetcherSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	resolver := &Resolver{
		Fetcher:  &HTTPFetcher{Client: server.Client(), MaxBytes: 1024},
		MaxBytes: 1024,
	}
	config := schema.WalletConfig{Icon: schema.ImageRef{URL: server.URL}}
	if _, err := resolver.Resolve(context.Background(), config); !errors.Is(err, coreerrors.ErrAssetTooLarge) {
		t.Fatalf("expected ErrAssetTooLarge, got %v", err)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resolver := NewResolver(server.Client())
	config := schema.WalletConfig{Icon: schema.ImageRef{URL: server.URL}}
	if _, err := resolver.Resolve(ctx, config); !errors.Is(err, coreerrors.ErrAssetFetch) {
		t.Fatalf("expected ErrAssetFetch for cancelled fetch, got %v", err)
	}
}

func TestSetValidate(t *testing.T) {
	icon, icon2x := DefaultIcon()

	valid := Set{NameIcon: icon, NameIcon2x: icon2x}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}

	missing := Set{NameIcon: icon}
	if err := missing.Validate(); !errors.Is(err, coreerrors.ErrAssetFetch) {
		t.Fatalf("expected missing icon pair rejection, got %v", err)
	}

	unknown := Set{NameIcon: icon, NameIcon2x: icon2x, "banner.png": icon}
	if err := unknown.Validate(); !errors.Is(err, coreerrors.ErrAssetFetch) {
		t.Fatalf("expected unrecognized name rejection, got %v", err)
	}
}

func TestSniffPNGIgnoresName(t *testing.T) {
	if err := SniffPNG("icon.png", []byte("plain text pretending to be png")); !errors.Is(err, coreerrors.ErrUnsupportedImageFormat) {
		t.Fatalf("expected sniff rejection, got %v", err)
	}
	if err := SniffPNG("anything", pngBytes(t)); err != nil {
		t.Fatalf("valid png rejected: %v", err)
	}
}
