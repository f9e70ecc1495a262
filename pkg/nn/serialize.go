package nn

import (
	"sync"

	"github.com/bmharper/cimg/v2"
)

// serializedDetector guards a detector with a mutex, so that only one
// inference runs at a time. Backends make no promise of being safe for
// concurrent DetectObjects calls, so anything that fans out across
// goroutines must go through this wrapper, unless the backend is known
// to be concurrent-safe.
type serializedDetector struct {
	lock  sync.Mutex
	inner ObjectDetector
}

// Serialized wraps detector so that DetectObjects calls are mutually exclusive.
func Serialized(detector ObjectDetector) ObjectDetector {
	return &serializedDetector{inner: detector}
}

func (s *serializedDetector) DetectObjects(img *cimg.Image, params *DetectionParams) ([]ObjectDetection, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.inner.DetectObjects(img, params)
}

func (s *serializedDetector) Config() *ModelConfig {
	return s.inner.Config()
}

func (s *serializedDetector) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.inner.Close()
}
