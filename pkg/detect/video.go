package detect

import (
	"context"
	"sort"
	"strings"

	"github.com/cyclopcam/spotter/pkg/imagecodec"
	"golang.org/x/sync/errgroup"
)

// Frame is one entry of a batch analysis request.
// Image is the base64 JPEG payload, passed through untouched into any
// keyframe built from this frame.
type Frame struct {
	Timestamp float64
	Image     string
}

// Keyframe is a frame that contained at least one detection of the target class.
type Keyframe struct {
	Timestamp      float64
	FrameImage     string  // The original input payload, not re-encoded
	BestConfidence float32 // Max confidence among this frame's detections (unrounded)
	Detections     []Detection
}

// VideoStats summarizes a batch analysis.
// TotalFrames counts every input entry, including frames that were skipped
// or dropped, and FramesWithTarget counts matching frames before the top-N
// truncation, so the two can both exceed the returned keyframe count.
type VideoStats struct {
	TotalFrames       int
	FramesWithTarget  int
	AverageConfidence float32 // Mean of retained frames' best confidences, 0 if none
	MaxConfidence     float32 // Max of retained frames' best confidences, 0 if none
	SkippedFrames     int     // Missing image field, or payload failed to decode
	FailedFrames      int     // Inference failed; frame dropped, batch continued
}

// outcome of analyzing a single frame
type frameResult struct {
	matched    bool
	skipped    bool
	failed     bool
	detections []Detection
	best       float32
}

// SelectKeyframes runs detection over every frame, keeps the frames where the
// target class appears, and returns the top MaxKeyframes of them by best
// confidence, descending. Ties keep input order.
//
// The class match here is deliberately looser than DetectFrame's allow-list:
// case-insensitive, and a detection qualifies if either string contains the
// other (so "phone" finds "cell phone", and vice versa). An empty targetClass
// matches everything.
//
// Frames with a missing image field or an undecodable payload are skipped
// silently. Frames where inference itself fails are also dropped, but counted
// in stats.FailedFrames; one bad frame does not abort the batch.
func (d *Detector) SelectKeyframes(ctx context.Context, frames []Frame, targetClass string) ([]Keyframe, VideoStats, error) {
	stats := VideoStats{
		TotalFrames: len(frames),
	}
	if len(frames) == 0 {
		return nil, stats, NewError(KindValidation, "No frames provided")
	}

	targetLower := strings.ToLower(targetClass)
	keep := func(className string) bool {
		if targetLower == "" {
			return true
		}
		nameLower := strings.ToLower(className)
		return strings.Contains(nameLower, targetLower) || strings.Contains(targetLower, nameLower)
	}

	results := make([]frameResult, len(frames))
	g := errgroup.Group{}
	g.SetLimit(d.options.VideoWorkers)
	for i := range frames {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = d.analyzeFrame(&frames[i], keep)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, stats, NewError(KindInternal, "analysis aborted: %v", err)
	}

	keyframes := []Keyframe{}
	sumConfidence := float32(0)
	for i, res := range results {
		switch {
		case res.skipped:
			stats.SkippedFrames++
		case res.failed:
			stats.FailedFrames++
		case res.matched:
			stats.FramesWithTarget++
			sumConfidence += res.best
			if res.best > stats.MaxConfidence {
				stats.MaxConfidence = res.best
			}
			keyframes = append(keyframes, Keyframe{
				Timestamp:      frames[i].Timestamp,
				FrameImage:     frames[i].Image,
				BestConfidence: res.best,
				Detections:     res.detections,
			})
		}
	}
	if stats.FramesWithTarget > 0 {
		stats.AverageConfidence = sumConfidence / float32(stats.FramesWithTarget)
	}

	// Top-N by confidence. SliceStable keeps input order on ties.
	sort.SliceStable(keyframes, func(i, j int) bool {
		return keyframes[i].BestConfidence > keyframes[j].BestConfidence
	})
	if len(keyframes) > d.options.MaxKeyframes {
		keyframes = keyframes[:d.options.MaxKeyframes]
	}
	return keyframes, stats, nil
}

func (d *Detector) analyzeFrame(frame *Frame, keep func(className string) bool) frameResult {
	if frame.Image == "" {
		return frameResult{skipped: true}
	}
	img, err := imagecodec.DecodeBase64(frame.Image)
	if err != nil {
		return frameResult{skipped: true}
	}
	detections, err := d.detect(img, keep)
	if err != nil {
		d.log.Errorf("Frame at %.2f failed: %v", frame.Timestamp, err)
		return frameResult{failed: true}
	}
	if len(detections) == 0 {
		return frameResult{}
	}
	best := float32(0)
	for _, det := range detections {
		if det.Confidence > best {
			best = det.Confidence
		}
	}
	return frameResult{
		matched:    true,
		detections: detections,
		best:       best,
	}
}
