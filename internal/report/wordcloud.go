package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoWordCloud is returned when a report carries no pre-rendered word cloud.
var ErrNoWordCloud = errors.New("report has no word cloud")

// Visualizations holds upstream-rendered artifacts. They are passed through,
// never regenerated.
type Visualizations struct {
	// WordCloud is the base64 image as found in the report.
	WordCloud string

	Raw json.RawMessage
}

// Image is a decoded word cloud.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// ContentType returns the MIME type for the sniffed format.
func (img Image) ContentType() string {
	return "image/" + img.Format
}

// DecodeWordCloud decodes the embedded word cloud and reads its format and
// size without decoding pixels.
func (v Visualizations) DecodeWordCloud() (Image, error) {
	enc := strings.TrimSpace(v.WordCloud)
	if enc == "" {
		return Image{}, ErrNoWordCloud
	}
	if strings.HasPrefix(enc, "data:") {
		if i := strings.IndexByte(enc, ','); i >= 0 {
			enc = enc[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(enc, "="))
	}
	if err != nil {
		return Image{}, fmt.Errorf("could not display word cloud: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("could not display word cloud: %w", err)
	}
	return Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
