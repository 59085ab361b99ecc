// internal/services/qr_service.go
package services

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// QRCodeResult carries a QR payload in the renderings the frontend uses.
type QRCodeResult struct {
	DataURL string `json:"dataURL"`
	SVG     string `json:"svg"`
	Data    string `json:"data"`
}

type QRService struct {
	frontendBaseURL string
}

func NewQRService(frontendBaseURL string) *QRService {
	return &QRService{frontendBaseURL: strings.TrimRight(frontendBaseURL, "/")}
}

// Generate renders data as a PNG data URL and as an SVG document.
func (s *QRService) Generate(data string) (*QRCodeResult, error) {
	code, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	png, err := code.PNG(qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	return &QRCodeResult{
		DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		SVG:     renderSVG(code.Bitmap(), qrImageSize),
		Data:    data,
	}, nil
}

func (s *QRService) ProductURL(productID uuid.UUID) string {
	return fmt.Sprintf("%s/product/%s", s.frontendBaseURL, productID)
}

func (s *QRService) CredentialURL(credentialID uuid.UUID) string {
	return fmt.Sprintf("%s/credential/%s", s.frontendBaseURL, credentialID)
}

func (s *QRService) ForProduct(productID uuid.UUID) (*QRCodeResult, error) {
	return s.Generate(s.ProductURL(productID))
}

func (s *QRService) ForCredential(credentialID uuid.UUID) (*QRCodeResult, error) {
	return s.Generate(s.CredentialURL(credentialID))
}

// renderSVG draws one unit square per dark module. The bitmap already
// includes the quiet zone.
func renderSVG(bitmap [][]bool, size int) string {
	modules := len(bitmap)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, size, modules, modules)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#FFFFFF"/>`, modules, modules)
	b.WriteString(`<path fill="#000000" d="`)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}
