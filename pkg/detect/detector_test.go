package detect

import (
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/spotter/pkg/nn"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns canned detections, keyed by input image width, so
// results stay deterministic when frames are analyzed concurrently.
type scriptedModel struct {
	config  *nn.ModelConfig
	byWidth map[int][]nn.ObjectDetection
	err     error
}

func newScriptedModel() *scriptedModel {
	return &scriptedModel{
		config: &nn.ModelConfig{
			Architecture: "yolov8m",
			Classes:      nn.COCOClasses,
		},
		byWidth: map[int][]nn.ObjectDetection{},
	}
}

func (m *scriptedModel) DetectObjects(img *cimg.Image, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byWidth[img.Width], nil
}

func (m *scriptedModel) Config() *nn.ModelConfig {
	return m.config
}

func (m *scriptedModel) Close() {
}

func classIndex(t *testing.T, name string) int {
	for i, class := range nn.COCOClasses {
		if class == name {
			return i
		}
	}
	t.Fatalf("class %v not in COCO table", name)
	return -1
}

func testImage(width, height int) *cimg.Image {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for i := range img.Pixels {
		img.Pixels[i] = byte(i)
	}
	return img
}

func newTestDetector(t *testing.T, model nn.ObjectDetector, options Options) *Detector {
	return NewDetector(logs.NewTestingLog(t), model, options)
}

func TestDetectFrame(t *testing.T) {
	model := newScriptedModel()
	model.byWidth[100] = []nn.ObjectDetection{
		{Class: classIndex(t, "cup"), Confidence: 0.55, Box: nn.MakeRect(10, 10, 50, 50)},
	}
	d := newTestDetector(t, model, DefaultOptions())

	dets, err := d.DetectFrame(testImage(100, 100), nil)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, "cup", dets[0].ClassName)
	require.Equal(t, float32(0.55), dets[0].Confidence)
	require.Equal(t, nn.MakeRect(10, 10, 50, 50), dets[0].Box)
	require.NotNil(t, dets[0].Cropped)

	// identical input must produce identical output
	again, err := d.DetectFrame(testImage(100, 100), nil)
	require.NoError(t, err)
	require.Equal(t, dets, again)
}

func TestConfidenceThreshold(t *testing.T) {
	model := newScriptedModel()
	model.byWidth[100] = []nn.ObjectDetection{
		{Class: 0, Confidence: 0.29, Box: nn.MakeRect(0, 0, 10, 10)},
		{Class: 0, Confidence: 0.3, Box: nn.MakeRect(0, 0, 10, 10)},
		{Class: 0, Confidence: 0.31, Box: nn.MakeRect(0, 0, 10, 10)},
	}
	d := newTestDetector(t, model, DefaultOptions())

	dets, err := d.DetectFrame(testImage(100, 100), nil)
	require.NoError(t, err)
	// strictly-below is cut, equal-to survives
	require.Len(t, dets, 2)
	require.Equal(t, float32(0.3), dets[0].Confidence)
	require.Equal(t, float32(0.31), dets[1].Confidence)
}

func TestClassFilterExact(t *testing.T) {
	model := newScriptedModel()
	model.byWidth[100] = []nn.ObjectDetection{
		{Class: classIndex(t, "cup"), Confidence: 0.8, Box: nn.MakeRect(0, 0, 10, 10)},
		{Class: classIndex(t, "cell phone"), Confidence: 0.8, Box: nn.MakeRect(0, 0, 10, 10)},
	}
	d := newTestDetector(t, model, DefaultOptions())

	dets, err := d.DetectFrame(testImage(100, 100), []string{"cup"})
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, "cup", dets[0].ClassName)

	// exact match only: no substring, no case folding
	dets, err = d.DetectFrame(testImage(100, 100), []string{"phone"})
	require.NoError(t, err)
	require.Len(t, dets, 0)
	dets, err = d.DetectFrame(testImage(100, 100), []string{"Cup"})
	require.NoError(t, err)
	require.Len(t, dets, 0)
}

func TestBoxClipping(t *testing.T) {
	model := newScriptedModel()
	model.byWidth[100] = []nn.ObjectDetection{
		{Class: 0, Confidence: 0.9, Box: nn.MakeRect(90, 90, 150, 150)},
	}
	d := newTestDetector(t, model, DefaultOptions())

	dets, err := d.DetectFrame(testImage(100, 100), nil)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, nn.MakeRect(90, 90, 100, 100), dets[0].Box)
	require.NotNil(t, dets[0].Cropped)
}

func TestZeroAreaCrop(t *testing.T) {
	model := newScriptedModel()
	model.byWidth[100] = []nn.ObjectDetection{
		{Class: 0, Confidence: 0.9, Box: nn.MakeRect(150, 150, 200, 200)},
	}
	d := newTestDetector(t, model, DefaultOptions())

	// a box entirely outside the image is not an error, it just has no crop
	dets, err := d.DetectFrame(testImage(100, 100), nil)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Nil(t, dets[0].Cropped)
	box := dets[0].Box
	require.LessOrEqual(t, 0, box.X)
	require.LessOrEqual(t, box.X, box.X2())
	require.LessOrEqual(t, box.X2(), 100)
	require.LessOrEqual(t, box.Y2(), 100)
}

func TestOrderPreserved(t *testing.T) {
	model := newScriptedModel()
	model.byWidth[100] = []nn.ObjectDetection{
		{Class: classIndex(t, "dog"), Confidence: 0.4, Box: nn.MakeRect(0, 0, 10, 10)},
		{Class: classIndex(t, "cat"), Confidence: 0.9, Box: nn.MakeRect(0, 0, 10, 10)},
		{Class: classIndex(t, "person"), Confidence: 0.6, Box: nn.MakeRect(0, 0, 10, 10)},
	}
	d := newTestDetector(t, model, DefaultOptions())

	dets, err := d.DetectFrame(testImage(100, 100), nil)
	require.NoError(t, err)
	require.Len(t, dets, 3)
	// no re-sorting: model order is output order
	require.Equal(t, "dog", dets[0].ClassName)
	require.Equal(t, "cat", dets[1].ClassName)
	require.Equal(t, "person", dets[2].ClassName)
}

func TestAnnotate(t *testing.T) {
	img := testImage(100, 100)
	annotated := Annotate(img, []Detection{
		{ClassName: "cup", Confidence: 0.55, Box: nn.MakeRect(10, 10, 50, 50)},
	})
	require.Equal(t, img.Width, annotated.Width)
	require.Equal(t, img.Height, annotated.Height)
	// the source image must not be touched
	require.Equal(t, testImage(100, 100).Pixels, img.Pixels)
}
