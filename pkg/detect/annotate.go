package detect

import (
	"fmt"
	"image"

	"github.com/bmharper/cimg/v2"
	"github.com/fogleman/gg"
)

// Annotate draws the detection boxes and labels onto a copy of img.
// The input image is not modified.
func Annotate(img *cimg.Image, detections []Detection) *cimg.Image {
	dc := gg.NewContextForRGBA(toRGBA(img))
	for _, det := range detections {
		dc.SetRGB(0, 1, 0)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(det.Box.X), float64(det.Box.Y), float64(det.Box.Width), float64(det.Box.Height))
		dc.Stroke()
		label := fmt.Sprintf("%v %.2f", det.ClassName, det.Confidence)
		ly := float64(det.Box.Y) - 4
		if ly < 12 {
			ly = float64(det.Box.Y) + 14
		}
		dc.DrawString(label, float64(det.Box.X)+2, ly)
	}
	return fromRGBA(dc.Image().(*image.RGBA))
}

func toRGBA(img *cimg.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		src := img.Pixels[y*img.Width*3:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < img.Width; x++ {
			out[x*4] = src[x*3]
			out[x*4+1] = src[x*3+1]
			out[x*4+2] = src[x*3+2]
			out[x*4+3] = 255
		}
	}
	return dst
}

func fromRGBA(src *image.RGBA) *cimg.Image {
	width := src.Rect.Dx()
	height := src.Rect.Dy()
	dst := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		in := src.Pix[y*src.Stride:]
		out := dst.Pixels[y*width*3:]
		for x := 0; x < width; x++ {
			out[x*3] = in[x*4]
			out[x*3+1] = in[x*4+1]
			out[x*3+2] = in[x*4+2]
		}
	}
	return dst
}
