// Package detect holds the object detection service logic: it filters,
// clips and crops the raw candidates that come out of an nn.ObjectDetector,
// and selects keyframes from batches of video frames.
package detect

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/spotter/pkg/nn"
)

const (
	DefaultConfidenceThreshold = 0.3
	DefaultMaxKeyframes        = 10
	DefaultVideoWorkers        = 4
	DefaultJPEGQuality         = 85
)

type Options struct {
	ConfidenceThreshold float32 // Discard detections with confidence strictly below this
	MaxKeyframes        int     // Top-N cap on the keyframe list
	VideoWorkers        int     // Number of frames processed concurrently in a batch
	JPEGQuality         int     // Quality of re-encoded crops
}

func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxKeyframes:        DefaultMaxKeyframes,
		VideoWorkers:        DefaultVideoWorkers,
		JPEGQuality:         DefaultJPEGQuality,
	}
}

// Detector runs a model over frames and normalizes its output.
// The model handle is shared and read-only; Detector itself holds no
// per-request state, so one Detector serves all requests.
type Detector struct {
	log     logs.Log
	model   nn.ObjectDetector
	options Options
}

// Detection is one object found in one frame, with its box clipped to the
// image bounds, and the boxed region re-encoded as JPEG (nil if the clipped
// box has zero area).
type Detection struct {
	ClassName  string  // Original-case class name from the label table
	Confidence float32 // Unrounded. Round for display only.
	Box        nn.Rect // Clipped, so 0 <= x1 <= x2 <= width, 0 <= y1 <= y2 <= height
	Cropped    []byte  // JPEG of the boxed region, or nil
}

func NewDetector(log logs.Log, model nn.ObjectDetector, options Options) *Detector {
	if options.ConfidenceThreshold == 0 {
		options.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if options.MaxKeyframes == 0 {
		options.MaxKeyframes = DefaultMaxKeyframes
	}
	if options.VideoWorkers == 0 {
		options.VideoWorkers = DefaultVideoWorkers
	}
	if options.JPEGQuality == 0 {
		options.JPEGQuality = DefaultJPEGQuality
	}
	return &Detector{
		log:     log,
		model:   model,
		options: options,
	}
}

func (d *Detector) Options() Options {
	return d.options
}

func (d *Detector) ModelName() string {
	return d.model.Config().Architecture
}

// DetectFrame runs the model on one frame and returns the surviving detections,
// in the order the model produced them.
// classFilter is an exact, case-sensitive allow-list. Empty means no filtering.
func (d *Detector) DetectFrame(img *cimg.Image, classFilter []string) ([]Detection, error) {
	allow := map[string]bool{}
	for _, class := range classFilter {
		allow[class] = true
	}
	keep := func(className string) bool {
		return len(allow) == 0 || allow[className]
	}
	return d.detect(img, keep)
}

// detect is the shared filter/clip/crop pipeline. keep decides class
// membership, which is the only thing the two endpoints disagree on.
func (d *Detector) detect(img *cimg.Image, keep func(className string) bool) ([]Detection, error) {
	objects, err := d.model.DetectObjects(img, nn.NewDetectionParams())
	if err != nil {
		return nil, NewError(KindInternal, "model inference failed: %v", err)
	}
	config := d.model.Config()

	detections := []Detection{}
	for _, obj := range objects {
		// Threshold cut uses the unrounded confidence. Equal-to-threshold survives.
		if obj.Confidence < d.options.ConfidenceThreshold {
			continue
		}
		className := config.ClassName(obj.Class)
		if className == "" {
			className = fmt.Sprintf("class %v", obj.Class)
		}
		if !keep(className) {
			continue
		}
		box := obj.Box.Clip(img.Width, img.Height)
		cropped, err := d.cropJPEG(img, box)
		if err != nil {
			return nil, NewError(KindInternal, "crop failed: %v", err)
		}
		detections = append(detections, Detection{
			ClassName:  className,
			Confidence: obj.Confidence,
			Box:        box,
			Cropped:    cropped,
		})
	}
	return detections, nil
}

// cropJPEG re-encodes the boxed region of img. A zero-area box (the model
// placed it entirely outside the image) yields nil, not an error.
func (d *Detector) cropJPEG(img *cimg.Image, box nn.Rect) ([]byte, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return nil, nil
	}
	crop := cimg.NewImage(box.Width, box.Height, cimg.PixelFormatRGB)
	crop.CopyImageRect(img, box.X, box.Y, box.X2(), box.Y2(), 0, 0)
	return cimg.Compress(crop, cimg.MakeCompressParams(cimg.Sampling420, d.options.JPEGQuality, 0))
}
