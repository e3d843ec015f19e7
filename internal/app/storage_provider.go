package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/gcp"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

var newImageBucket = gcp.NewImageBucket

// reasonConnect covers every bucket failure that is not a config problem.
const reasonConnect = "connect_failed"

// BucketSetupError reports why the record image bucket could not be opened.
// Reason is one of the gcp config error codes or "connect_failed".
type BucketSetupError struct {
	Reason       string
	Mode         gcp.ObjectStorageMode
	EmulatorHost string
	Err          error
}

func (e *BucketSetupError) Error() string {
	return fmt.Sprintf("image bucket setup (%s, mode=%q emulator=%q): %v", e.Reason, e.Mode, e.EmulatorHost, e.Err)
}

func (e *BucketSetupError) Unwrap() error { return e.Err }

func newBucketSetupError(sc gcp.ObjectStorageConfig, err error) *BucketSetupError {
	reason := reasonConnect
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) && cfgErr.Code != "" {
		reason = string(cfgErr.Code)
	}
	return &BucketSetupError{Reason: reason, Mode: sc.Mode, EmulatorHost: sc.EmulatorHost, Err: err}
}

// bucketSetupReason extracts the reason from err, defaulting to connect_failed.
func bucketSetupReason(err error) string {
	var se *BucketSetupError
	if errors.As(err, &se) {
		return se.Reason
	}
	return reasonConnect
}

func resolveImageBucket(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (*gcp.ImageBucket, error) {
	sc := cfg.ObjectStorage
	log = log.With("storage_mode", sc.Mode, "bucket", sc.Bucket)

	bucket, err := newImageBucket(ctx, log, sc)
	metrics.IncStorageOp("bootstrap", err)
	if err != nil {
		setupErr := newBucketSetupError(sc, err)
		log.Error("Image bucket unavailable", "reason", setupErr.Reason, "emulator_host", sc.EmulatorHost, "error", err)
		return nil, setupErr
	}
	log.Info("Image bucket ready")
	return bucket, nil
}
