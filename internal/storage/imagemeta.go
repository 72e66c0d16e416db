package storage

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

// ProbeDimensions sniffs width and height from the head of an image stream
// without decoding the pixels, and returns a reader that replays the
// consumed bytes followed by the rest. (0, 0) means the format was not
// recognized; the upload still proceeds.
func ProbeDimensions(r io.Reader) (width, height int, replay io.Reader) {
	var buf bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &buf))
	replay = io.MultiReader(bytes.NewReader(buf.Bytes()), r)
	if err != nil {
		return 0, 0, replay
	}
	return cfg.Width, cfg.Height, replay
}
