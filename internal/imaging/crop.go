package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropResult contains a cropped, optionally magnified region as PNG.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Zoom        int    `json:"zoom"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts the region (x1,y1)-(x2,y2) and magnifies it by an integer
// zoom factor.
//
// Magnification uses nearest-neighbour resampling so each source pixel maps
// to a zoom×zoom square, which keeps the 2×2 block structure of a two-stop
// result visible. A zoom below 1 is treated as 1.
func Crop(img image.Image, x1, y1, x2, y2, zoom int) (*CropResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	if zoom < 1 {
		zoom = 1
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))
	if zoom > 1 {
		cropped = imaging.Resize(cropped, cropped.Bounds().Dx()*zoom, cropped.Bounds().Dy()*zoom, imaging.NearestNeighbor)
	}

	encoded, err := EncodePNGBase64(cropped)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		Zoom:        zoom,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}
