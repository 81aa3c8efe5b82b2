// Package imageio converts between images and network tensors.
//
// Decoding supports PNG, JPEG, GIF and WebP. Images are resized so both
// sides are multiples of the network's output subsample and converted to
// a normalized (1, 3, H, W) float32 tensor. Guidance maps can be rendered
// back to grayscale images for inspection.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/born-ml/scenecoord/internal/parallel"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Multiple is the granularity of output sizes chosen by Resize.
const Multiple = 8

// ErrInvalidImage is returned for empty images and bad resize targets.
var ErrInvalidImage = errors.New("invalid image")

// Normalization maps 8-bit channel values v to (v/255 - Mean) / Std.
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// ImageNet is the normalization used by torchvision-pretrained models.
var ImageNet = Normalization{
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

// Unit maps channel values to [0, 1] without centering.
var Unit = Normalization{
	Mean: [3]float32{0, 0, 0},
	Std:  [3]float32{1, 1, 1},
}

// Decode reads a PNG, JPEG, GIF or WebP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeFile reads the image at path.
func DecodeFile(path string) (image.Image, error) {
	//nolint:gosec // G304: File path comes from user input
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// EncodePNGFile writes img to path as PNG.
func EncodePNGFile(path string, img image.Image) (err error) {
	//nolint:gosec // G304: File path comes from user input
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return png.Encode(f, img)
}

// TargetSize returns the output size Resize uses for a w x h image: the
// height is scaled to targetHeight keeping the aspect ratio, then both
// sides are rounded down to a multiple of Multiple, with Multiple as the
// minimum.
func TargetSize(w, h, targetHeight int) (outW, outH int, err error) {
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: empty image %dx%d", ErrInvalidImage, w, h)
	}
	if targetHeight < Multiple {
		return 0, 0, fmt.Errorf("%w: target height %d below %d", ErrInvalidImage, targetHeight, Multiple)
	}
	scaledW := int(math.Round(float64(w) * float64(targetHeight) / float64(h)))
	return roundDown(scaledW), roundDown(targetHeight), nil
}

func roundDown(v int) int {
	return max(Multiple, v/Multiple*Multiple)
}

// Resize scales img with Catmull-Rom interpolation to TargetSize.
func Resize(img image.Image, targetHeight int) (*image.RGBA, error) {
	b := img.Bounds()
	w, h, err := TargetSize(b.Dx(), b.Dy(), targetHeight)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

// ToTensor converts img to a (1, 3, H, W) float32 tensor in RGB order,
// normalized per channel. Alpha is ignored.
func ToTensor[B tensor.Backend](img image.Image, norm Normalization, backend B) (*tensor.Tensor[float32, B], error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrInvalidImage, w, h)
	}
	for c, s := range norm.Std {
		if s == 0 {
			return nil, fmt.Errorf("%w: zero std for channel %d", ErrInvalidImage, c)
		}
	}

	out := tensor.Zeros[float32](tensor.Shape{1, 3, h, w}, backend)
	data := out.Data()
	plane := h * w

	parallel.For(h, func(y int) {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := y*w + x
			data[i] = (float32(c.R)/255 - norm.Mean[0]) / norm.Std[0]
			data[plane+i] = (float32(c.G)/255 - norm.Mean[1]) / norm.Std[1]
			data[2*plane+i] = (float32(c.B)/255 - norm.Mean[2]) / norm.Std[2]
		}
	}, parallel.DefaultConfig())

	return out, nil
}

// GuidanceHeatmap renders exp(logGuidance) of batch element index as a
// grayscale image, scaled so the most probable cell is white.
func GuidanceHeatmap[B tensor.Backend](logGuidance *tensor.Tensor[float32, B], index int) (*image.Gray, error) {
	n, c, h, w, ok := logGuidance.Shape().NCHW()
	if !ok || c != 1 {
		return nil, fmt.Errorf("%w: expected (B, 1, H, W) guidance, got %v", ErrInvalidImage, logGuidance.Shape())
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("%w: batch index %d out of range [0, %d)", ErrInvalidImage, index, n)
	}

	values := logGuidance.Data()[index*h*w : (index+1)*h*w]
	peak := float32(math.Inf(-1))
	for _, v := range values {
		peak = max(peak, v)
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range values {
		// exp(v)/exp(peak) in log space avoids underflow for tiny probabilities.
		level := math.Exp(float64(v - peak))
		img.Pix[(i/w)*img.Stride+i%w] = uint8(math.Round(255 * level))
	}
	return img, nil
}
