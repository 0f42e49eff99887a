package analyzer

// Options tunes the local photo-quality hints
type Options struct {
	// Laplacian variance below this marks the photo blurry
	BlurThreshold float64

	// Mean luminance (0-255) outside [DarkThreshold, BrightThreshold]
	// marks a lighting issue
	DarkThreshold   float64
	BrightThreshold float64

	// Longest side of the sampled grayscale copy
	MaxSampleSide int
}

// DefaultOptions returns default analysis options
func DefaultOptions() Options {
	return Options{
		BlurThreshold:   100.0,
		DarkThreshold:   50.0,
		BrightThreshold: 220.0,
		MaxSampleSide:   512,
	}
}

// WithCustomThresholds allows setting custom quality thresholds
func (opts Options) WithCustomThresholds(blur, dark, bright float64) Options {
	opts.BlurThreshold = blur
	opts.DarkThreshold = dark
	opts.BrightThreshold = bright
	return opts
}

// WithSampleSide changes the sampling resolution
func (opts Options) WithSampleSide(side int) Options {
	if side > 0 {
		opts.MaxSampleSide = side
	}
	return opts
}
