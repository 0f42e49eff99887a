package analyzer

import "image"

// MetricsCalculator handles pixel statistics on a grayscale copy
type MetricsCalculator interface {
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateBrightness(gray *image.Gray) float64
}
