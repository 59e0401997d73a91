package constants

// Confidence bounds. OCR engines report 0..100 and are scaled into this range.
const (
	MinConfidence = 0.0
	MaxConfidence = 1.0

	// EngineConfidenceScale divides raw engine word confidences.
	EngineConfidenceScale = 100.0
)
