package repository

import "errors"

// Sentinel errors shared by all repository implementations.
var (
	// ErrSnapshotNotFound is returned when an asset has no prior successful capture.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrAssetNotFound is returned when the asset id does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrChangeNotFound is returned when the change id does not exist.
	ErrChangeNotFound = errors.New("change not found")

	// ErrChangeExists is returned when a change for the same snapshot pair
	// has already been recorded.
	ErrChangeExists = errors.New("change already exists for snapshot pair")

	// ErrInvalidTransition is returned when a status update does not match
	// the change lifecycle (detected -> classified -> rejected | alerted).
	ErrInvalidTransition = errors.New("invalid change status transition")

	// ErrAlreadyAlerted is returned when an alert already exists for a change.
	ErrAlreadyAlerted = errors.New("change already alerted")
)
