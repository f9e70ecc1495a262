package nn

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"
)

// concurrencyProbe records the maximum number of overlapping DetectObjects calls
type concurrencyProbe struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	config  ModelConfig
}

func (p *concurrencyProbe) DetectObjects(img *cimg.Image, params *DetectionParams) ([]ObjectDetection, error) {
	n := p.active.Add(1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	p.active.Add(-1)
	return nil, nil
}

func (p *concurrencyProbe) Config() *ModelConfig {
	return &p.config
}

func (p *concurrencyProbe) Close() {
}

func TestSerialized(t *testing.T) {
	probe := &concurrencyProbe{}
	detector := Serialized(probe)
	img := cimg.NewImage(4, 4, cimg.PixelFormatRGB)

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := detector.DetectObjects(img, NewDetectionParams())
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), probe.maxSeen.Load())
}
