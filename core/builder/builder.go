// Package builder runs the full pass pipeline: field mapping, asset
// resolution, manifest construction, signing, and packaging. It owns the
// caller-supplied timeout and the build-scoped logging context.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrDemonWolf/linkden-sub002/core/assets"
	"github.com/MrDemonWolf/linkden-sub002/core/bundle"
	"github.com/MrDemonWolf/linkden-sub002/core/descriptor"
	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
	"github.com/MrDemonWolf/linkden-sub002/core/manifest"
	"github.com/MrDemonWolf/linkden-sub002/core/schema"
	"github.com/MrDemonWolf/linkden-sub002/core/signing"
)

// DefaultTimeout bounds one build when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Builder wires the pipeline stages together. The zero value works with a
// default HTTP asset resolver, the default timeout, and silent logging.
type Builder struct {
	Resolver *assets.Resolver
	Logger   logrus.FieldLogger
	Timeout  time.Duration
}

// Result carries the finished archive plus the metadata callers key caches
// and logs by. Archive bytes are immutable once returned.
type Result struct {
	Archive      []byte
	SerialNumber string
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

func (b *Builder) logger() logrus.FieldLogger {
	if b.Logger != nil {
		return b.Logger
	}
	return silentLogger()
}

func (b *Builder) resolver() *assets.Resolver {
	if b.Resolver != nil {
		return b.Resolver
	}
	return assets.NewResolver(nil)
}

// Build runs the whole pipeline once. Every failure is terminal for the
// attempt: there is no partial or degraded pass.
func (b *Builder) Build(ctx context.Context, config schema.WalletConfig, profile schema.ProfileSnapshot, identity signing.Identity) (Result, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	buildID := uuid.NewString()
	log := b.logger().WithFields(logrus.Fields{
		"build_id": buildID,
		"pass_id":  schema.PassID(config, profile),
	})

	result, err := b.run(ctx, log, config, profile, identity)
	if err != nil {
		if ctx.Err() != nil {
			err = coreerrors.Classify(
				coreerrors.ErrBuildTimeout, err,
				coreerrors.CategoryTimeout,
				"build_deadline_exceeded",
				"the build exceeded its deadline or was cancelled",
				true,
			)
		}
		log.WithFields(logrus.Fields{
			"error_code":     coreerrors.CodeOf(err),
			"error_category": string(coreerrors.CategoryOf(err)),
		}).WithError(err).Warn("pass build failed")
		return Result{}, err
	}
	log.WithFields(logrus.Fields{
		"serial_number": result.SerialNumber,
		"archive_bytes": len(result.Archive),
	}).Info("pass build complete")
	return result, nil
}

func (b *Builder) run(ctx context.Context, log logrus.FieldLogger, config schema.WalletConfig, profile schema.ProfileSnapshot, identity signing.Identity) (Result, error) {
	pass, err := descriptor.Map(config, profile)
	if err != nil {
		return Result{}, err
	}
	log.WithField("serial_number", pass.SerialNumber).Debug("descriptor mapped")

	set, err := b.resolver().Resolve(ctx, config)
	if err != nil {
		return Result{}, err
	}
	log.WithField("asset_count", len(set)).Debug("assets resolved")

	descriptorBytes, entries, err := manifest.Build(pass, set)
	if err != nil {
		return Result{}, coreerrors.Classify(
			coreerrors.ErrPackaging, err,
			coreerrors.CategoryPackaging,
			"manifest_build_failed",
			"descriptor or assets could not be digested",
			false,
		)
	}
	manifestBytes, err := entries.Canonical()
	if err != nil {
		return Result{}, coreerrors.Classify(
			coreerrors.ErrPackaging, err,
			coreerrors.CategoryPackaging,
			"manifest_serialize_failed",
			"manifest could not be serialized canonically",
			false,
		)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("before signing: %w", err)
	}
	signatureBytes, err := signing.Sign(manifestBytes, identity)
	if err != nil {
		return Result{}, err
	}

	archive, err := bundle.Pack(descriptorBytes, set, manifestBytes, signatureBytes)
	if err != nil {
		return Result{}, err
	}
	return Result{Archive: archive, SerialNumber: pass.SerialNumber}, nil
}

// IsTerminal reports whether err belongs to the build taxonomy at all;
// anything else is an internal failure the caller should treat as a bug.
func IsTerminal(err error) bool {
	for _, sentinel := range []error{
		coreerrors.ErrInvalidConfig,
		coreerrors.ErrEmptyFieldSet,
		coreerrors.ErrAssetFetch,
		coreerrors.ErrAssetTooLarge,
		coreerrors.ErrUnsupportedImageFormat,
		coreerrors.ErrSigningKey,
		coreerrors.ErrCertificateExpired,
		coreerrors.ErrSignatureFailure,
		coreerrors.ErrPackaging,
		coreerrors.ErrBuildTimeout,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
