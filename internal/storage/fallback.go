package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"mangavault/pkg/apierr"
)

// Fallback tries the primary strategy and, when it fails with a
// non-validation error, retries on the secondary. Validation failures are
// final: the secondary would reject the same input for the same reason.
type Fallback struct {
	primary   Strategy
	secondary Strategy
	logger    *zap.Logger

	// onFallback, when set, observes each failover (metrics hook).
	onFallback func()
}

func NewFallback(primary, secondary Strategy, logger *zap.Logger, onFallback func()) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger, onFallback: onFallback}
}

func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) Upload(ctx context.Context, req UploadRequest) (*Object, error) {
	// The primary may consume part of the body before failing, so buffer it
	// once and hand each strategy a fresh reader. The handler already bounds
	// the body by the configured upload limit.
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, apierr.Upstream("reading upload body", err)
	}

	req.Body = bytes.NewReader(data)
	obj, err := f.primary.Upload(ctx, req)
	if err == nil {
		return obj, nil
	}

	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Kind == apierr.KindValidation {
		return nil, err
	}

	f.logger.Warn("storage: primary upload failed, falling back",
		zap.String("primary", f.primary.Name()),
		zap.String("secondary", f.secondary.Name()),
		zap.Error(err))
	if f.onFallback != nil {
		f.onFallback()
	}
	req.Body = bytes.NewReader(data)
	return f.secondary.Upload(ctx, req)
}
