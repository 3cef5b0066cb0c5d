package telemetry

import "errors"

var (
	// ErrUnknownExporter is returned for an unsupported span exporter name.
	ErrUnknownExporter = errors.New("unknown span exporter")
	// ErrExporterFailed wraps exporter construction errors.
	ErrExporterFailed = errors.New("exporter failed")
	// ErrShutdownFailed wraps flush and shutdown errors.
	ErrShutdownFailed = errors.New("shutdown failed")
)
