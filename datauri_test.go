package imagine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURI_RoundTrip(t *testing.T) {
	uri := EncodeDataURI(MIMETypePNG, testPNG)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", uri)

	mime, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, MIMETypePNG, mime)
	assert.Equal(t, testPNG, data)

	img := &Image{Data: testPNG, MIMEType: "image/webp"}
	assert.Equal(t, uri, img.DataURI())
}

func TestDecodeDataURI_Invalid(t *testing.T) {
	for _, uri := range []string{
		"https://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		_, _, err := DecodeDataURI(uri)
		assert.ErrorIs(t, err, ErrInvalidDataURI, uri)
	}
}
