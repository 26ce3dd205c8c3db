package hal

import "errors"

// Contract errors.
var (
	// ErrAPIVersion rejects a backend built against another API version.
	ErrAPIVersion = errors.New("backend API version mismatch")

	// ErrDuplicateFamily rejects a second backend with an already loaded family name.
	ErrDuplicateFamily = errors.New("backend family already loaded")

	// ErrUnknownFamily indicates no backend with that family is loaded.
	ErrUnknownFamily = errors.New("unknown backend family")

	// ErrInUse refuses to unload a family while hardware still uses it.
	ErrInUse = errors.New("backend family in use")

	// ErrNotInitialized indicates an operation on an instance that was never initialized.
	ErrNotInitialized = errors.New("instance not initialized")

	// ErrReleased indicates an operation on an instance after deinit.
	ErrReleased = errors.New("instance already released")

	// ErrInvalidState indicates a call out of lifecycle order.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrUnsupportedKind is returned by Get for object kinds the backend does not serve.
	ErrUnsupportedKind = errors.New("unsupported object kind")

	// ErrUnsupportedFormat rejects a pixel format the backend cannot drive.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrInvalidValue rejects an object value, e.g. a negative LED count.
	ErrInvalidValue = errors.New("invalid object value")

	// ErrIDTooLong rejects a device identifier longer than MaxIDLen bytes.
	ErrIDTooLong = errors.New("device id too long")

	// ErrMalformedID rejects an empty identifier or one with control characters.
	ErrMalformedID = errors.New("malformed device id")

	// ErrDuplicateHardware rejects a second hardware with an already used name.
	ErrDuplicateHardware = errors.New("hardware name already in use")

	// ErrUnknownHardware names a hardware the loader does not track.
	ErrUnknownHardware = errors.New("unknown hardware")

	// ErrInvalidArgument indicates a missing or malformed argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoDevice indicates a pipeline call while no device is open.
	ErrNoDevice = errors.New("no device bound")
)
