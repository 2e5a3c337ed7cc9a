package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxImageSize = 5 << 20
	sniffLen     = 3072
)

var (
	ErrImageTooLarge   = errors.New("image exceeds the size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// imageTypes maps accepted extensions to the MIME type their content must sniff as.
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Image is an upload as received from a client.
type Image struct {
	Reader   io.Reader
	FileName string
	Size     int64
}

// Inspect checks size, extension and content of img. The returned reader
// replays the bytes consumed while sniffing.
func Inspect(img Image) (io.Reader, error) {
	if img.Size > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	want, ok := imageTypes[strings.ToLower(filepath.Ext(img.FileName))]
	if !ok {
		return nil, ErrUnsupportedType
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(img.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	head = head[:n]

	if !mimetype.Detect(head).Is(want) {
		return nil, ErrUnsupportedType
	}

	return io.MultiReader(bytes.NewReader(head), img.Reader), nil
}
