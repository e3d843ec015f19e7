package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

// ObjectStorageConfig describes the record image bucket. Mode may be left
// empty; ResolveObjectStorageConfig picks the emulator when EmulatorHost is set.
type ObjectStorageConfig struct {
	Mode          ObjectStorageMode
	EmulatorHost  string
	Bucket        string
	CDNDomain     string
	PublicBaseURL string

	CompatibilityFallback bool
}

func IsSupportedObjectStorageMode(mode ObjectStorageMode) bool {
	switch mode {
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		return true
	default:
		return false
	}
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

func (cfg ObjectStorageConfig) ModeSource() string {
	if cfg.CompatibilityFallback {
		return "compatibility_fallback"
	}
	return "explicit_or_default"
}

type ObjectStorageConfigErrorCode string

const (
	ObjectStorageConfigErrorInvalidMode         ObjectStorageConfigErrorCode = "invalid_mode"
	ObjectStorageConfigErrorMissingBucket       ObjectStorageConfigErrorCode = "missing_bucket"
	ObjectStorageConfigErrorMissingEmulatorHost ObjectStorageConfigErrorCode = "missing_emulator_host"
	ObjectStorageConfigErrorInvalidURL          ObjectStorageConfigErrorCode = "invalid_url"
)

type ObjectStorageConfigError struct {
	Code  ObjectStorageConfigErrorCode
	Field string
	Value string
	Cause error
}

func (e *ObjectStorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case ObjectStorageConfigErrorInvalidMode:
		return fmt.Sprintf(
			"invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)",
			e.Value,
			ObjectStorageModeGCS,
			ObjectStorageModeGCSEmulator,
		)
	case ObjectStorageConfigErrorMissingBucket:
		return "missing RECORD_GCS_BUCKET_NAME"
	case ObjectStorageConfigErrorMissingEmulatorHost:
		return fmt.Sprintf(
			"OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set",
			ObjectStorageModeGCSEmulator,
		)
	case ObjectStorageConfigErrorInvalidURL:
		return fmt.Sprintf("invalid %s=%q; expected absolute URL like http://fake-gcs:4443", e.Field, e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *ObjectStorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveObjectStorageConfig normalizes raw settings and validates them.
func ResolveObjectStorageConfig(raw ObjectStorageConfig) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		EmulatorHost:  strings.TrimRight(strings.TrimSpace(raw.EmulatorHost), "/"),
		Bucket:        strings.TrimSpace(raw.Bucket),
		CDNDomain:     strings.Trim(strings.TrimSpace(raw.CDNDomain), "/"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(raw.PublicBaseURL), "/"),
	}

	rawMode := strings.TrimSpace(string(raw.Mode))
	switch mode := ObjectStorageMode(strings.ToLower(rawMode)); mode {
	case "":
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
			cfg.CompatibilityFallback = true
		} else {
			cfg.Mode = ObjectStorageModeGCS
		}
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: rawMode}
	}

	if cfg.IsEmulatorMode() && cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.EmulatorHost
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	if !IsSupportedObjectStorageMode(cfg.Mode) {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
	if cfg.Bucket == "" {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingBucket}
	}
	if cfg.PublicBaseURL != "" {
		if err := validateAbsoluteURL("OBJECT_STORAGE_PUBLIC_BASE_URL", cfg.PublicBaseURL); err != nil {
			return err
		}
	}
	if !cfg.IsEmulatorMode() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingEmulatorHost}
	}
	return validateAbsoluteURL("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
}

func validateAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &ObjectStorageConfigError{
			Code:  ObjectStorageConfigErrorInvalidURL,
			Field: field,
			Value: raw,
			Cause: err,
		}
	}
	return nil
}
