package regen

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrDemonWolf/linkden-sub002/core/builder"
	"github.com/MrDemonWolf/linkden-sub002/core/canon"
	"github.com/MrDemonWolf/linkden-sub002/core/schema"
	"github.com/MrDemonWolf/linkden-sub002/core/signing"
)

// Gate wraps the build pipeline with content-addressed caching. It is the
// only component allowed to short-circuit around the signer, and it only
// ever serves bytes it produced via the pipeline itself.
type Gate struct {
	Store   Store
	Builder *builder.Builder
	Logger  logrus.FieldLogger
	Clock   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a gate over the given store and builder.
func New(store Store, passBuilder *builder.Builder) *Gate {
	return &Gate{
		Store:   store,
		Builder: passBuilder,
		locks:   make(map[string]*sync.Mutex),
	}
}

// fingerprintInputs is the exact input surface that affects bundle bytes:
// the whole configuration, the profile fields the descriptor consumes, and
// the signing certificate identity. Certificate rotation therefore
// invalidates every cached pass signed with the old certificate.
type fingerprintInputs struct {
	Config      schema.WalletConfig `json:"config"`
	ProfileID   string              `json:"profileId"`
	DisplayName string              `json:"displayName"`
	Email       string              `json:"email,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	Website     string              `json:"website,omitempty"`
	CertKey     string              `json:"certKey"`
}

// Fingerprint computes the stable digest over everything that affects the
// produced archive.
func Fingerprint(config schema.WalletConfig, profile schema.ProfileSnapshot, identity signing.Identity) (string, error) {
	payload := fingerprintInputs{
		Config:      config,
		ProfileID:   profile.ProfileID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Phone:       profile.Phone,
		Website:     profile.Website,
		CertKey:     identity.Fingerprint(),
	}
	canonical, err := canon.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("serialize fingerprint inputs: %w", err)
	}
	return canon.DigestSHA256(canonical)
}

// GetOrBuild returns the cached archive when the recomputed fingerprint
// matches the stored one, and otherwise runs the full pipeline and stores
// the fresh result. A failed or cancelled rebuild leaves the prior entry
// untouched. Builds for the same pass identity are serialized; distinct
// identities build fully in parallel.
func (g *Gate) GetOrBuild(ctx context.Context, config schema.WalletConfig, profile schema.ProfileSnapshot, identity signing.Identity) ([]byte, bool, error) {
	fingerprint, err := Fingerprint(config, profile, identity)
	if err != nil {
		return nil, false, err
	}
	passID := schema.PassID(config, profile)

	lock := g.lockFor(passID)
	lock.Lock()
	defer lock.Unlock()

	log := g.logger().WithFields(logrus.Fields{
		"pass_id":     passID,
		"fingerprint": fingerprint,
	})

	entry, ok, err := g.Store.Get(passID)
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	if ok && entry.Fingerprint == fingerprint {
		log.Debug("serving cached pass bundle")
		return entry.Archive, true, nil
	}

	result, err := g.passBuilder().Build(ctx, config, profile, identity)
	if err != nil {
		// Prior Built entry stays valid for its own fingerprint.
		return nil, false, err
	}
	if ctx.Err() != nil {
		// A cancelled build never writes a cache entry.
		return nil, false, ctx.Err()
	}

	fresh := Entry{
		PassID:      passID,
		Fingerprint: fingerprint,
		Archive:     result.Archive,
		CreatedAt:   g.now(),
	}
	if err := g.Store.Put(passID, fresh); err != nil {
		return nil, false, fmt.Errorf("cache store: %w", err)
	}
	log.WithField("serial_number", result.SerialNumber).Info("pass bundle rebuilt")
	return result.Archive, false, nil
}

// Invalidate drops the cached entry for one pass identity, forcing the next
// request through the pipeline.
func (g *Gate) Invalidate(config schema.WalletConfig, profile schema.ProfileSnapshot) error {
	return g.Store.Delete(schema.PassID(config, profile))
}

func (g *Gate) lockFor(passID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locks == nil {
		g.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := g.locks[passID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[passID] = lock
	}
	return lock
}

func (g *Gate) passBuilder() *builder.Builder {
	if g.Builder != nil {
		return g.Builder
	}
	return &builder.Builder{}
}

func (g *Gate) logger() logrus.FieldLogger {
	if g.Logger != nil {
		return g.Logger
	}
	return silentLogger()
}

func (g *Gate) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}

var (
	discardOnce   sync.Once
	discardLogger *logrus.Logger
)

func silentLogger() logrus.FieldLogger {
	discardOnce.Do(func() {
		discardLogger = logrus.New()
		discardLogger.SetOutput(io.Discard)
	})
	return discardLogger
}
