package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/scenecoord/internal/parallel"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, out_h, out_w]
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Each batch element is lowered to a [C_in*K_h*K_w, out_h*out_w] column
// matrix and multiplied by the kernel viewed as [C_out, C_in*K_h*K_w], which
// lands directly in NCHW order. 1x1 stride-1 unpadded kernels skip im2col and
// multiply the input plane matrix as is. Batch elements run in parallel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, ok := input.Shape().NCHW()
	if !ok {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(input.Shape())))
	}
	cOut, cInK, kH, kW, ok := kernel.Shape().NCHW()
	if !ok {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernel.Shape())))
	}
	if cIn != cInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", cIn, cInK))
	}
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("conv2d: dtype mismatch %s vs %s", input.DType(), kernel.DType()))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid stride=%d padding=%d", stride, padding))
	}

	hOut := (h+2*padding-kH)/stride + 1
	wOut := (w+2*padding-kW)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", hOut, wOut))
	}

	output, err := tensor.NewRaw(tensor.Shape{n, cOut, hOut, wOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: failed to create output tensor: %v", err))
	}

	g := convGeometry{
		cIn: cIn, h: h, w: w,
		cOut: cOut, kH: kH, kW: kW,
		hOut: hOut, wOut: wOut,
		stride: stride, padding: padding,
	}

	switch input.DType() {
	case tensor.Float32:
		conv2dFloat32(output.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(), n, g, cpu.parallel)
	case tensor.Float64:
		conv2dFloat64(output.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(), n, g, cpu.parallel)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}

	return output
}

// convGeometry holds the per-image dimensions of one convolution.
type convGeometry struct {
	cIn, h, w       int
	cOut, kH, kW    int
	hOut, wOut      int
	stride, padding int
}

// colRows is the inner GEMM dimension C_in*K_h*K_w.
func (g convGeometry) colRows() int { return g.cIn * g.kH * g.kW }

// positions is the number of output pixels per channel.
func (g convGeometry) positions() int { return g.hOut * g.wOut }

// pointwise reports whether the input plane matrix can be used as the column
// matrix directly.
func (g convGeometry) pointwise() bool {
	return g.kH == 1 && g.kW == 1 && g.stride == 1 && g.padding == 0
}

func conv2dFloat32(out, in, kernel []float32, n int, g convGeometry, cfg parallel.Config) {
	k, p := g.colRows(), g.positions()
	inSize, outSize := g.cIn*g.h*g.w, g.cOut*p
	a := blas32.General{Rows: g.cOut, Cols: k, Stride: k, Data: kernel}

	parallel.For(n, func(b int) {
		src := in[b*inSize : (b+1)*inSize]
		col := src
		if !g.pointwise() {
			col = make([]float32, k*p)
			im2col(col, src, g)
		}
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			a,
			blas32.General{Rows: k, Cols: p, Stride: p, Data: col},
			0,
			blas32.General{Rows: g.cOut, Cols: p, Stride: p, Data: out[b*outSize : (b+1)*outSize]},
		)
	}, cfg)
}

func conv2dFloat64(out, in, kernel []float64, n int, g convGeometry, cfg parallel.Config) {
	k, p := g.colRows(), g.positions()
	inSize, outSize := g.cIn*g.h*g.w, g.cOut*p
	a := blas64.General{Rows: g.cOut, Cols: k, Stride: k, Data: kernel}

	parallel.For(n, func(b int) {
		src := in[b*inSize : (b+1)*inSize]
		col := src
		if !g.pointwise() {
			col = make([]float64, k*p)
			im2col(col, src, g)
		}
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			a,
			blas64.General{Rows: k, Cols: p, Stride: p, Data: col},
			0,
			blas64.General{Rows: g.cOut, Cols: p, Stride: p, Data: out[b*outSize : (b+1)*outSize]},
		)
	}, cfg)
}

// im2col lowers one [C, H, W] image into col, laid out as
// [C*K_h*K_w, H_out*W_out]. Row (c, kh, kw) holds the input value each output
// pixel sees through that kernel tap; taps falling into padding are zero.
func im2col[T float](col, src []T, g convGeometry) {
	p := g.positions()
	row := 0
	for c := 0; c < g.cIn; c++ {
		plane := src[c*g.h*g.w : (c+1)*g.h*g.w]
		for kh := 0; kh < g.kH; kh++ {
			for kw := 0; kw < g.kW; kw++ {
				dst := col[row*p : (row+1)*p]
				for oh := 0; oh < g.hOut; oh++ {
					y := oh*g.stride - g.padding + kh
					line := dst[oh*g.wOut : (oh+1)*g.wOut]
					if y < 0 || y >= g.h {
						clear(line)
						continue
					}
					for ow := range line {
						x := ow*g.stride - g.padding + kw
						if x < 0 || x >= g.w {
							line[ow] = 0
							continue
						}
						line[ow] = plane[y*g.w+x]
					}
				}
				row++
			}
		}
	}
}
