// Package render rasterises a board and its current marble plane into an
// image, for the optional interactive stepper (cmd/visualizer) and for
// CLI/test screenshotting without a display. The plain-text equivalent
// (supplemented feature: original_source's output_board) lives as
// runstate.RunState.DebugString instead of here, since it needs no image
// package at all.
//
// Grounded on the teacher's pkg/cpu/video.go: a fixed-size pixel buffer
// built from per-cell state and encoded with image/png, plus
// pkg/peripherals/camera.go's use of golang.org/x/image/draw to rescale a
// captured image for display. Here the "capture" is one cell's device
// color instead of a camera frame, and the scale step blows up a
// one-pixel-per-cell raster to a legible tile size.
package render

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"boardvm/pkg/board"
	"boardvm/pkg/device"
	"boardvm/pkg/runstate"
)

// palette assigns each device kind a base color, mirroring the teacher's
// RGB565 CLUT (pkg/cpu/video.go's Palette field) but keyed by Kind instead
// of a 4-bit index.
var palette = map[device.Kind]color.RGBA{
	device.LeftDeflector:   {R: 0x4f, G: 0x8a, B: 0xc9, A: 0xff},
	device.RightDeflector:  {R: 0x4f, G: 0xc9, B: 0x8a, A: 0xff},
	device.Portal:          {R: 0x9a, G: 0x4f, B: 0xc9, A: 0xff},
	device.Synchroniser:    {R: 0xc9, G: 0x9a, B: 0x4f, A: 0xff},
	device.Equals:          {R: 0x4f, G: 0x4f, B: 0xc9, A: 0xff},
	device.GreaterThan:     {R: 0x4f, G: 0x6f, B: 0xc9, A: 0xff},
	device.LessThan:        {R: 0x4f, G: 0xaf, B: 0xc9, A: 0xff},
	device.Adder:           {R: 0x4f, G: 0xc9, B: 0x4f, A: 0xff},
	device.Subtractor:      {R: 0xc9, G: 0x4f, B: 0x4f, A: 0xff},
	device.Incrementor:     {R: 0x6f, G: 0xc9, B: 0x4f, A: 0xff},
	device.Decrementor:     {R: 0xc9, G: 0x6f, B: 0x4f, A: 0xff},
	device.BitChecker:      {R: 0xc9, G: 0xc9, B: 0x4f, A: 0xff},
	device.LeftBitShifter:  {R: 0x8a, G: 0xc9, B: 0x4f, A: 0xff},
	device.RightBitShifter: {R: 0xc9, G: 0x8a, B: 0x4f, A: 0xff},
	device.BinaryNot:       {R: 0x8a, G: 0x4f, B: 0x8a, A: 0xff},
	device.Stdin:           {R: 0x4f, G: 0xc9, B: 0xc9, A: 0xff},
	device.Input:           {R: 0x2f, G: 0x9f, B: 0x9f, A: 0xff},
	device.Output:          {R: 0x9f, G: 0x2f, B: 0x2f, A: 0xff},
	device.TrashBin:        {R: 0x3f, G: 0x3f, B: 0x3f, A: 0xff},
	device.Cloner:          {R: 0xc9, G: 0x4f, B: 0x9a, A: 0xff},
	device.Terminator:      {R: 0xff, G: 0x2f, B: 0x2f, A: 0xff},
	device.Random:          {R: 0xc9, G: 0xaf, B: 0x4f, A: 0xff},
	device.Blank:           {R: 0x20, G: 0x20, B: 0x20, A: 0xff},
	device.BoardRef:        {R: 0x60, G: 0x60, B: 0xff, A: 0xff},
}

func cellColor(kind device.Kind) color.RGBA {
	if c, ok := palette[kind]; ok {
		return c
	}
	return color.RGBA{R: 0, G: 0, B: 0, A: 0xff}
}

// marbleColor brightens a cell's base color to indicate an occupied
// marble, modulated by the marble's own value so distinct bytes are at
// least distinguishable by shade.
func marbleColor(v byte) color.RGBA {
	lift := 0x60 + v/4
	return color.RGBA{R: 0xff, G: lift, B: lift, A: 0xff}
}

// Image rasterises b's static layout at one pixel per cell: occupied
// cells (from rs, which may be nil to render the board alone) are drawn
// brighter than their device's base color.
func Image(b *board.Board, rs *runstate.RunState) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			loc := b.Index(x, y)
			cell := b.Cells[loc]
			c := cellColor(cell.Kind)
			if rs != nil && loc < len(rs.Cur) && rs.Cur[loc].Occupied {
				c = marbleColor(rs.Cur[loc].Value)
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Scale blows up img by an integer factor using bilinear interpolation,
// the same golang.org/x/image/draw call the teacher's camera peripheral
// uses to resize a captured frame for its framebuffer.
func Scale(img *image.RGBA, factor int) *image.RGBA {
	if factor < 1 {
		factor = 1
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SaveScreenshot rasterises b/rs at cellSize pixels per cell and encodes
// it as a PNG at path, the supplemented-feature image equivalent of
// original_source's output_board for callers without a display.
// Grounded on the teacher's CPU.SaveScreenshot (pkg/cpu/video.go).
func SaveScreenshot(path string, b *board.Board, rs *runstate.RunState, cellSize int) error {
	img := Scale(Image(b, rs), cellSize)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
