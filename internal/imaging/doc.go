// Package imaging converts extracted BMP members into their final encoding.
//
// Each bitmap is decoded, gets a binary transparency mask from its title's key
// colour, is optionally upscaled and is encoded as WebP, PNG or BMP. The mask
// is built at the original resolution and resized nearest-neighbour after
// upscaling, so edges never pick up partial alpha. Upscale failures are not
// fatal: the original resolution is kept and the fallback recorded.
package imaging
