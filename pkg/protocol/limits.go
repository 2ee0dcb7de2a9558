package protocol

// Per-message limits. They sit below MaxCollectionCount and keep a single
// frame from describing more work than a page can plausibly need.
const (
	// MaxSections caps the sections in one Layout event.
	MaxSections = 256

	// MaxPatchesPerFrame caps the patches in one Patches frame.
	MaxPatchesPerFrame = 1024

	// MaxIDLength caps element ids and event names.
	MaxIDLength = 256
)
