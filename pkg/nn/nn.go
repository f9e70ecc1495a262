package nn

// Package nn is a neural network interface layer.
// Concrete model backends (eg nnremote) implement ObjectDetector.

import (
	"encoding/json"
	"os"

	"github.com/bmharper/cimg/v2"
)

// Probability threshold that backends apply before returning candidates.
// This is intentionally lower than the service-level confidence filter,
// so that the service owns the final cut.
const DefaultProbabilityThreshold = 0.1

// NN object detection parameters
type DetectionParams struct {
	ProbabilityThreshold float32 // Value between 0 and 1. Lower values will find more objects. Zero value will use the default.
}

// Create a default DetectionParams object
func NewDetectionParams() *DetectionParams {
	return &DetectionParams{
		ProbabilityThreshold: DefaultProbabilityThreshold,
	}
}

// ObjectDetection is an object that a neural network has found in an image.
// The box is in absolute pixel coordinates of the input image, and is not
// guaranteed to lie inside the image bounds.
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// ObjectDetector is given an image, and returns zero or more detected objects
type ObjectDetector interface {
	// Close closes the detector (you MUST call this when finished)
	Close()

	// DetectObjects returns a list of objects detected in the image.
	// img is expected to be a 3 channel RGB image.
	// You can create a default DetectionParams with NewDetectionParams()
	DetectObjects(img *cimg.Image, params *DetectionParams) ([]ObjectDetection, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the detector has been created.
	Config() *ModelConfig
}

// ModelConfig describes the model behind a detector: its architecture and
// the label table used to resolve class ids to class names.
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "yolov8m"
	Width        int      `json:"width"`        // eg 640
	Height       int      `json:"height"`       // eg 640
	Classes      []string `json:"classes"`      // eg ["person", "bicycle", "car", ...]
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// ClassName resolves a class id to a name via the label table.
// Ids outside the table resolve to "", so callers can detect a
// backend that disagrees with the configured labels.
func (c *ModelConfig) ClassName(class int) string {
	if class < 0 || class >= len(c.Classes) {
		return ""
	}
	return c.Classes[class]
}
