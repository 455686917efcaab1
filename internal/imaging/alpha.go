package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// KeyMask marks every pixel whose colour equals key exactly as transparent and
// everything else as opaque.
func KeyMask(img image.Image, key color.RGBA) *image.Alpha {
	b := img.Bounds()
	mask := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			a := uint8(0xff)
			if uint8(r>>8) == key.R && uint8(g>>8) == key.G && uint8(bl>>8) == key.B {
				a = 0
			}
			mask.SetAlpha(x-b.Min.X, y-b.Min.Y, color.Alpha{A: a})
		}
	}
	return mask
}

// ApplyMask combines img with a binary mask. A mask of a different size is
// resized nearest-neighbour first so alpha stays binary. Transparent pixels
// have their colour zeroed.
func ApplyMask(img image.Image, mask *image.Alpha) *image.NRGBA {
	b := img.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())
	if mask.Bounds().Size() != rect.Size() {
		scaled := image.NewAlpha(rect)
		draw.NearestNeighbor.Scale(scaled, rect, mask, mask.Bounds(), draw.Src, nil)
		mask = scaled
	}
	out := image.NewNRGBA(rect)
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			if mask.AlphaAt(x, y).A == 0 {
				continue
			}
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// opaque drops any alpha channel present in img.
func opaque(img image.Image) *image.RGBA {
	b := img.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())
	out := image.NewRGBA(rect)
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}
