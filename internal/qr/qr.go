package qr

import "github.com/skip2/go-qrcode"

const defaultSize = 256

// EncodePNG renders the target URL as a PNG QR code for poster embedding.
func EncodePNG(target string) ([]byte, error) {
	return qrcode.Encode(target, qrcode.Medium, defaultSize)
}
