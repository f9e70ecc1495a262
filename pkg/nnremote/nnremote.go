// Package nnremote implements nn.ObjectDetector on top of a remote inference
// server. The server receives a JPEG and replies with raw candidate boxes,
// so this process stays free of any NN runtime.
package nnremote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/spotter/pkg/nn"
)

// Detector talks to a remote inference server.
// It is safe to share the struct between goroutines, but concurrent
// DetectObjects calls are only as safe as the remote server makes them,
// so callers who fan out should wrap us in nn.Serialized().
type Detector struct {
	log    logs.Log
	url    string // eg "http://localhost:8500"
	client *http.Client
	config *nn.ModelConfig
}

// wire format of the inference server
type predictionJSON struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        [4]int  `json:"box"` // x1,y1,x2,y2 in input image pixels, unclipped
}

type predictResponseJSON struct {
	Detections []predictionJSON `json:"detections"`
}

func NewDetector(log logs.Log, inferenceURL, modelName string) (*Detector, error) {
	if inferenceURL == "" {
		return nil, fmt.Errorf("no inference URL configured")
	}
	return &Detector{
		log: log,
		url: strings.TrimSuffix(inferenceURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		config: &nn.ModelConfig{
			Architecture: modelName,
			Classes:      nn.COCOClasses,
		},
	}, nil
}

func (d *Detector) DetectObjects(img *cimg.Image, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 90, 0))
	if err != nil {
		return nil, fmt.Errorf("compress frame: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(jpg)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	threshold := params.ProbabilityThreshold
	if threshold == 0 {
		threshold = nn.DefaultProbabilityThreshold
	}
	writer.WriteField("threshold", strconv.FormatFloat(float64(threshold), 'f', -1, 32))
	writer.Close()

	req, err := http.NewRequest("POST", d.url+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status %v", resp.StatusCode)
	}

	result := predictResponseJSON{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	objects := make([]nn.ObjectDetection, 0, len(result.Detections))
	for _, det := range result.Detections {
		objects = append(objects, nn.ObjectDetection{
			Class:      det.Class,
			Confidence: det.Confidence,
			Box:        nn.MakeRect(det.Box[0], det.Box[1], det.Box[2], det.Box[3]),
		})
	}
	return objects, nil
}

func (d *Detector) Config() *nn.ModelConfig {
	return d.config
}

func (d *Detector) Close() {
	d.client.CloseIdleConnections()
}

// CheckHealth probes the inference server.
// Used at startup and by the readiness endpoint.
func (d *Detector) CheckHealth() error {
	resp, err := d.client.Get(d.url + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server unhealthy: %v", resp.StatusCode)
	}
	return nil
}
