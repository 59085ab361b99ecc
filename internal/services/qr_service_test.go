package services

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRGenerate(t *testing.T) {
	qr := NewQRService("https://app.greenproof.test/")

	result, err := qr.Generate("GP-GP-FOOD-1-1")
	require.NoError(t, err)
	assert.Equal(t, "GP-GP-FOOD-1-1", result.Data)

	require.True(t, strings.HasPrefix(result.DataURL, "data:image/png;base64,"))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.DataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	assert.True(t, strings.HasPrefix(result.SVG, "<svg "))
	assert.True(t, strings.HasSuffix(result.SVG, "</svg>"))
	assert.Contains(t, result.SVG, `width="256"`)
}

func TestQRURLs(t *testing.T) {
	qr := NewQRService("https://app.greenproof.test/")
	id := uuid.MustParse("6f1c1f5e-2a55-4c53-8f57-0d1c9f1f6a10")

	assert.Equal(t, "https://app.greenproof.test/product/6f1c1f5e-2a55-4c53-8f57-0d1c9f1f6a10", qr.ProductURL(id))
	assert.Equal(t, "https://app.greenproof.test/credential/6f1c1f5e-2a55-4c53-8f57-0d1c9f1f6a10", qr.CredentialURL(id))
}

func TestRenderSVG(t *testing.T) {
	svg := renderSVG([][]bool{{true, false}, {false, true}}, 10)
	assert.Contains(t, svg, `viewBox="0 0 2 2"`)
	assert.Contains(t, svg, "M0 0h1v1h-1z")
	assert.Contains(t, svg, "M1 1h1v1h-1z")
	assert.NotContains(t, svg, "M1 0h1v1h-1z")
}
