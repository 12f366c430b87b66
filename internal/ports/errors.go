package ports

import "errors"

// Standard application-level errors.
// Adapters and the simulation core wrap underlying failures with these
// sentinels so callers can branch with errors.Is.
var (
	// ErrEndOfSimulation signals that the simulation clock ran past the last
	// scheduled trading day. It is a clean termination condition, not a
	// failure; callers stop ticking when they see it.
	ErrEndOfSimulation = errors.New("simulation schedule exhausted")

	// ErrInvalidTime is returned for a clock seek outside the schedule or
	// misaligned with the clock's time step.
	ErrInvalidTime = errors.New("datetime outside the trading schedule")

	// ErrInvalidRange is returned for a historical request whose date range
	// is empty or inverted.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrUnsupportedResolution is returned when a subscription requests a
	// resolution the simulation clock cannot honor.
	ErrUnsupportedResolution = errors.New("resolution unsupported by the simulation time step")

	// ErrIllegalFill is returned when a simulated execution would violate
	// the order's own quantity or limit-price constraints.
	ErrIllegalFill = errors.New("execution violates order constraints")

	// ErrSchemaMismatch is returned when on-disk cache data carries a schema
	// version other than the one requested. Cached data is never migrated.
	ErrSchemaMismatch = errors.New("cached data schema version mismatch")

	// ErrNotImplemented is returned by providers that do not support the
	// requested data kind. It propagates to the retriever's caller as-is.
	ErrNotImplemented = errors.New("not implemented by this provider")

	// Persistence and configuration errors.
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")
)
