// Package qrimage renders identifier QR payloads as PNG images for display
// and wristband printing.
package qrimage

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

// PNG encodes payload at highest error correction, since wristbands get
// creased and scuffed. size is the image edge in pixels and is clamped to
// [MinSize, MaxSize]; zero selects DefaultSize.
func PNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload is empty")
	}
	qr, err := qrcode.New(payload, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}
	img, err := qr.PNG(ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return img, nil
}

// ClampSize normalises a requested edge length.
func ClampSize(size int) int {
	if size == 0 {
		return DefaultSize
	}
	return min(max(size, MinSize), MaxSize)
}
