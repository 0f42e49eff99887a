// Package analyzer derives blur and lighting hints from photo pixels. The
// hints only ever add warnings to the vision model's photo quality.
package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"go-meal-analyzer/pkg/models"
)

// ErrUndecodable is returned for formats the standard decoders cannot read
// (webp, heic).
var ErrUndecodable = errors.New("photo format cannot be decoded locally")

// Hints are the local pixel verdicts.
type Hints struct {
	LaplacianVar  float64 `json:"laplacian_var"`
	AvgLuminance  float64 `json:"avg_luminance"`
	Blurry        bool    `json:"blurry"`
	LightingIssue bool    `json:"lighting_issue"`
}

// QualityAnalyzer computes Hints for JPEG and PNG photos.
type QualityAnalyzer struct {
	metrics MetricsCalculator
	opts    Options
}

// NewQualityAnalyzer creates an analyzer with the given options
func NewQualityAnalyzer(opts Options) *QualityAnalyzer {
	if opts.MaxSampleSide <= 0 {
		opts.MaxSampleSide = DefaultOptions().MaxSampleSide
	}
	return &QualityAnalyzer{
		metrics: NewMetricsCalculator(),
		opts:    opts,
	}
}

// Analyze decodes data and returns its hints.
func (qa *QualityAnalyzer) Analyze(data []byte, contentType string) (Hints, error) {
	if contentType != "image/jpeg" && contentType != "image/png" {
		return Hints{}, ErrUndecodable
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Hints{}, fmt.Errorf("failed to decode photo: %w", err)
	}
	return qa.AnalyzeImage(img), nil
}

// AnalyzeImage computes hints on an already decoded image.
func (qa *QualityAnalyzer) AnalyzeImage(img image.Image) Hints {
	gray := sampleGray(img, qa.opts.MaxSampleSide)

	h := Hints{
		LaplacianVar: qa.metrics.CalculateLaplacianVariance(gray),
		AvgLuminance: qa.metrics.CalculateBrightness(gray),
	}
	h.Blurry = h.LaplacianVar < qa.opts.BlurThreshold
	h.LightingIssue = h.AvgLuminance < qa.opts.DarkThreshold || h.AvgLuminance > qa.opts.BrightThreshold
	return h
}

// Apply ORs the hints into the model's assessment.
func (h Hints) Apply(pq models.PhotoQuality) models.PhotoQuality {
	return pq.Merge(models.PhotoQuality{
		IsBlurry:      h.Blurry,
		LightingIssue: h.LightingIssue,
	})
}

// sampleGray returns a nearest-neighbour grayscale copy whose longest side
// is at most maxSide.
func sampleGray(img image.Image, maxSide int) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}

	step := 1
	if longest := max(w, h); longest > maxSide {
		step = (longest + maxSide - 1) / maxSide
	}
	sw, sh := (w+step-1)/step, (h+step-1)/step

	gray := image.NewGray(image.Rect(0, 0, sw, sh))
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			c := img.At(bounds.Min.X+x*step, bounds.Min.Y+y*step)
			gray.SetGray(x, y, color.GrayModel.Convert(c).(color.Gray))
		}
	}
	return gray
}
