package imgedit

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x + y) % 256), 255})
		}
	}
	return img
}

// writeImage encodes img as tag into dir/name and returns the path.
func writeImage(t *testing.T, dir, name string, tag FormatTag, img image.Image) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, Encode(img, p, tag, 0))
	return p
}

// writePNGHeader writes a PNG that declares width x height RGBA pixels but
// carries no pixel data.
func writePNGHeader(t *testing.T, dir, name string, width, height uint32) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolor with alpha
	chunk("IHDR", ihdr)
	chunk("IDAT", nil)
	chunk("IEND", nil)

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0644))
	return p
}
