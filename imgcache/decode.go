// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package imgcache

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	ximgdraw "golang.org/x/image/draw"
)

// substituteColor fills in for a source image that failed to decode, so
// the worker never stalls the caller on a bad file.
var substituteColor = color.RGBA{R: 96, G: 96, B: 96, A: 255}

// decodeImage reads and decodes filename, sniffing the format from its
// header the way the platform decoder picks png/jpeg/gif. A missing or
// corrupt file yields a solid-color substitute rather than an error.
func decodeImage(filename string) (img image.Image, w, h int) {
	f, err := os.Open(filename)
	if err != nil {
		return substituteImage(defaultSubstituteSize, defaultSubstituteSize), defaultSubstituteSize, defaultSubstituteSize
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return substituteImage(defaultSubstituteSize, defaultSubstituteSize), defaultSubstituteSize, defaultSubstituteSize
	}
	bounds := decoded.Bounds()
	return decoded, bounds.Dx(), bounds.Dy()
}

const defaultSubstituteSize = 64

func substituteImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: substituteColor}, image.Point{}, draw.Src)
	return img
}

// resizeSquare resizes src to a size x size square using a high-quality
// resampling filter, matching the fixed Full/Low tier dimensions.
func resizeSquare(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	ximgdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), ximgdraw.Over, nil)
	return dst
}
