package attendance

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// qrSize is the edge length of generated QR images in pixels.
const qrSize = 256

// RenderQR encodes a payload as a PNG image.
func RenderQR(p Payload) ([]byte, error) {
	png, err := qrcode.Encode(p.String(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
