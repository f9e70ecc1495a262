package server

import (
	"math"
	"net/http"
	"time"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/spotter/pkg/detect"
	"github.com/cyclopcam/spotter/pkg/imagecodec"
	"github.com/cyclopcam/www"
)

type detectRequestJSON struct {
	Image         string   `json:"image"`
	TargetClasses []string `json:"targetClasses"`
	Annotate      bool     `json:"annotate"`
}

type detectionJSON struct {
	ClassName    string  `json:"className"`
	Confidence   float32 `json:"confidence"`
	BBox         [4]int  `json:"bbox"` // x1,y1,x2,y2
	CroppedImage *string `json:"croppedImage"`
}

type detectResponseJSON struct {
	Success        bool            `json:"success"`
	Detections     []detectionJSON `json:"detections"`
	Count          int             `json:"count"`
	AnnotatedImage string          `json:"annotatedImage,omitempty"`
}

type analyzeRequestJSON struct {
	Frames          []frameJSON `json:"frames"`
	TargetClass     string      `json:"targetClass"`
	ItemName        string      `json:"itemName"`
	ItemDescription string      `json:"itemDescription"`
}

type frameJSON struct {
	Image     string  `json:"image"`
	Timestamp float64 `json:"timestamp"`
}

type keyframeJSON struct {
	Timestamp  float64         `json:"timestamp"`
	FrameImage string          `json:"frameImage"`
	Confidence float32         `json:"confidence"`
	Detections []detectionJSON `json:"detections"`
}

type analyzeStatsJSON struct {
	TotalFramesAnalyzed int     `json:"totalFramesAnalyzed"`
	FramesWithTarget    int     `json:"framesWithTarget"`
	AverageConfidence   float32 `json:"averageConfidence"`
	MaxConfidence       float32 `json:"maxConfidence"`
}

type analyzeResponseJSON struct {
	Success         bool             `json:"success"`
	Keyframes       []keyframeJSON   `json:"keyframes"`
	Stats           analyzeStatsJSON `json:"stats"`
	TargetClass     string           `json:"targetClass"`
	ItemName        string           `json:"itemName"`
	ItemDescription string           `json:"itemDescription"`
}

// confidences and timestamps are rounded to 2 decimals for display only
func round2(v float32) float32 {
	return math32.Round(v*100) / 100
}

func round2f64(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Server) toDetectionJSON(detections []detect.Detection) []detectionJSON {
	out := make([]detectionJSON, 0, len(detections))
	for _, det := range detections {
		j := detectionJSON{
			ClassName:  det.ClassName,
			Confidence: round2(det.Confidence),
			BBox:       [4]int{det.Box.X, det.Box.Y, det.Box.X2(), det.Box.Y2()},
		}
		if det.Cropped != nil {
			enc := imagecodec.EncodeBase64Raw(det.Cropped)
			j.CroppedImage = &enc
		}
		out = append(out, j)
	}
	return out
}

func (s *Server) httpDetect(w http.ResponseWriter, r *http.Request) {
	req := detectRequestJSON{}
	www.ReadJSON(w, r, &req, s.cfg.MaxBodyMB*1024*1024)

	if s.detector == nil {
		s.sendError(w, r, detect.NewError(detect.KindServiceUnavailable, "Model not loaded"))
		return
	}
	if req.Image == "" {
		s.sendError(w, r, detect.NewError(detect.KindValidation, "No image provided"))
		return
	}
	img, err := imagecodec.DecodeBase64(req.Image)
	if err != nil {
		s.sendError(w, r, detect.NewError(detect.KindDecode, "Invalid image data"))
		return
	}

	start := time.Now()
	detections, err := s.detector.DetectFrame(img, req.TargetClasses)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	inferenceSeconds.Observe(time.Since(start).Seconds())
	detectionsTotal.Add(float64(len(detections)))

	resp := &detectResponseJSON{
		Success:    true,
		Detections: s.toDetectionJSON(detections),
		Count:      len(detections),
	}
	if req.Annotate {
		annotated, err := imagecodec.EncodeBase64JPEG(detect.Annotate(img, detections), detect.DefaultJPEGQuality)
		if err != nil {
			s.sendError(w, r, err)
			return
		}
		resp.AnnotatedImage = annotated
	}
	www.SendJSON(w, resp)
}

func (s *Server) httpAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	req := analyzeRequestJSON{}
	www.ReadJSON(w, r, &req, s.cfg.MaxBodyMB*1024*1024)

	if s.detector == nil {
		s.sendError(w, r, detect.NewError(detect.KindServiceUnavailable, "Model not loaded"))
		return
	}

	frames := make([]detect.Frame, 0, len(req.Frames))
	for _, f := range req.Frames {
		frames = append(frames, detect.Frame{
			Timestamp: f.Timestamp,
			Image:     f.Image,
		})
	}

	start := time.Now()
	keyframes, stats, err := s.detector.SelectKeyframes(r.Context(), frames, req.TargetClass)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	inferenceSeconds.Observe(time.Since(start).Seconds())
	framesAnalyzedTotal.Add(float64(stats.TotalFrames))
	frameFailuresTotal.Add(float64(stats.FailedFrames))

	resp := &analyzeResponseJSON{
		Success:         true,
		Keyframes:       make([]keyframeJSON, 0, len(keyframes)),
		TargetClass:     req.TargetClass,
		ItemName:        req.ItemName,
		ItemDescription: req.ItemDescription,
		Stats: analyzeStatsJSON{
			TotalFramesAnalyzed: stats.TotalFrames,
			FramesWithTarget:    stats.FramesWithTarget,
			AverageConfidence:   round2(stats.AverageConfidence),
			MaxConfidence:       round2(stats.MaxConfidence),
		},
	}
	for _, kf := range keyframes {
		resp.Keyframes = append(resp.Keyframes, keyframeJSON{
			Timestamp:  round2f64(kf.Timestamp),
			FrameImage: kf.FrameImage,
			Confidence: round2(kf.BestConfidence),
			Detections: s.toDetectionJSON(kf.Detections),
		})
	}
	www.SendJSON(w, resp)
}
