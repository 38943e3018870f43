package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotRegistered     = errors.New("mobile number not registered")
	ErrInvalidCode       = errors.New("invalid one-time code")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNoSelection       = errors.New("no photos selected")
	ErrNothingUploaded   = errors.New("no photos were uploaded successfully")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrAlreadyUploaded   = errors.New("photo already uploaded")
	ErrInvalidFileFormat = errors.New("invalid file format")
	ErrSchemaValidation  = errors.New("schema validation failed")
	ErrJobNotFound       = errors.New("sync job not found")

	// Kind markers matched by the typed errors below through errors.Is.
	ErrConfig  = errors.New("configuration error")
	ErrUpload  = errors.New("upload error")
	ErrStorage = errors.New("storage error")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// ConfigError lists every unusable setting found before a network call was attempted.
type ConfigError struct {
	Problems []string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", strings.Join(e.Problems, "; "))
}

func (e ConfigError) Is(target error) bool {
	return target == ErrConfig
}

type UploadError struct {
	Key string
	Err error
}

func (e UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %s", e.Key, e.Err.Error())
}

func (e UploadError) Unwrap() error {
	return e.Err
}

func (e UploadError) Is(target error) bool {
	return target == ErrUpload
}

func NewUploadError(key string, err error) error {
	return UploadError{
		Key: key,
		Err: err,
	}
}

type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %s", e.Op, e.Err.Error())
}

func (e StorageError) Unwrap() error {
	return e.Err
}

func (e StorageError) Is(target error) bool {
	return target == ErrStorage
}

func NewStorageError(op string, err error) error {
	return StorageError{
		Op:  op,
		Err: err,
	}
}
