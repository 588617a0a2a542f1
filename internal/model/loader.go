package model

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "superkart/internal/errors"
	"superkart/internal/metrics"
)

// NotFoundError is returned when the model file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Model file not found at: %s", e.Path)
}

func (e *NotFoundError) Kind() string { return apperrors.KindModelNotFound }

func (e *NotFoundError) Meta() map[string]any {
	return map[string]any{"path": e.Path}
}

// InvalidError is returned when the model file exists but cannot be used.
type InvalidError struct {
	Path string
	Err  error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("Failed to load model from %s: %v", e.Path, e.Err)
}

func (e *InvalidError) Unwrap() error { return e.Err }

func (e *InvalidError) Kind() string { return apperrors.KindModelInvalid }

func (e *InvalidError) Meta() map[string]any {
	return map[string]any{"path": e.Path}
}

type notLoadedError struct{}

func (notLoadedError) Error() string        { return "Model not loaded" }
func (notLoadedError) Kind() string         { return apperrors.KindModelNotLoaded }
func (notLoadedError) Meta() map[string]any { return nil }

// ErrNotLoaded is returned by Get before a model has been loaded.
var ErrNotLoaded error = notLoadedError{}

// Handle is one loaded model together with where and when it came from.
// Handles are immutable once published.
type Handle struct {
	Predictor
	Path     string
	LoadedAt time.Time
}

// Loader owns the process-wide model handle. Get returns whatever handle
// is current; Reload builds a new one off to the side and publishes it with
// a single atomic store, so in-flight predictions finish on the handle they
// started with.
type Loader struct {
	path    string
	current atomic.Pointer[Handle]
	logger  *slog.Logger
	metrics *metrics.Registry
}

func NewLoader(path string, logger *slog.Logger, reg *metrics.Registry) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{path: path, logger: logger, metrics: reg}
}

// Load reads the model file and publishes it. On failure the current
// handle, if any, is left in place.
func (l *Loader) Load() error {
	l.logger.Info("loading model", "path", l.path)

	m, err := ReadFile(l.path)
	if err != nil {
		l.logger.Error("failed to load model", "path", l.path, "error", err)
		l.metrics.SetModelLoaded(l.IsLoaded())
		return err
	}

	l.current.Store(&Handle{Predictor: m, Path: l.path, LoadedAt: time.Now().UTC()})
	l.metrics.SetModelLoaded(true)
	l.logger.Info("model loaded", "path", l.path, "model_type", m.Type())
	return nil
}

func (l *Loader) Reload() error {
	l.logger.Info("reloading model")
	err := l.Load()
	l.metrics.ObserveReload(err)
	return err
}

func (l *Loader) Get() (*Handle, error) {
	h := l.current.Load()
	if h == nil {
		return nil, ErrNotLoaded
	}
	return h, nil
}

func (l *Loader) IsLoaded() bool {
	return l.current.Load() != nil
}

// ReadFile parses a YAML model artifact.
func ReadFile(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Path: path}
	}
	if err != nil {
		return nil, &InvalidError{Path: path, Err: err}
	}

	var m LinearModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &InvalidError{Path: path, Err: err}
	}
	if err := m.check(); err != nil {
		return nil, &InvalidError{Path: path, Err: err}
	}
	return &m, nil
}
