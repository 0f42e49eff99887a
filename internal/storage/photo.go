package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "go-meal-analyzer/internal/errors"
)

// DefaultMaxPhotoBytes caps a single downloaded photo.
const DefaultMaxPhotoBytes int64 = 10 << 20

// AllowedContentTypes is the photo content-type whitelist.
var AllowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/heic",
	"image/heif",
}

// Photo is a downloaded meal photo.
type Photo struct {
	Data        []byte
	ContentType string
	Source      string
}

// PhotoFetcher downloads a photo that has already passed URL validation.
type PhotoFetcher interface {
	Fetch(ctx context.Context, photoURL string) (*Photo, error)
}

// objectStream is what the cloud SDK fetchers hand to readPhoto.
type objectStream struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
}

// checkDeclaredSize rejects a download before the body is read.
func checkDeclaredSize(size, maxBytes int64) error {
	if size > maxBytes {
		return apperrors.NewPayloadTooLargeError(
			fmt.Sprintf("photo is %d bytes, limit is %d", size, maxBytes), nil)
	}
	return nil
}

// readLimited reads at most maxBytes and fails if the body was longer,
// whatever the headers claimed.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read photo body", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewPayloadTooLargeError(
			fmt.Sprintf("photo exceeds limit of %d bytes", maxBytes), nil)
	}
	return data, nil
}

// resolveContentType whitelists the declared type, sniffing the bytes when
// the server sent nothing useful.
func resolveContentType(declared string, data []byte) (string, error) {
	mediaType := ""
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	if mediaType == "" || mediaType == "application/octet-stream" || mediaType == "binary/octet-stream" {
		mediaType = sniffContentType(data)
	}
	if mediaType == "image/jpg" {
		mediaType = "image/jpeg"
	}
	for _, allowed := range AllowedContentTypes {
		if mediaType == allowed {
			return mediaType, nil
		}
	}
	return "", apperrors.NewUnsupportedMediaError(
		fmt.Sprintf("content type %q is not an accepted photo format", mediaType), nil)
}

func sniffContentType(data []byte) string {
	if isHEIF(data) {
		return "image/heic"
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

var heifBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
	[]byte("mif1"), []byte("msf1"),
}

func isHEIF(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	for _, brand := range heifBrands {
		if bytes.Equal(data[8:12], brand) {
			return true
		}
	}
	return false
}

// readPhoto applies the size and type rules to an SDK download.
func readPhoto(stream objectStream, source string, maxBytes int64) (*Photo, error) {
	defer stream.Body.Close()

	if stream.Size >= 0 {
		if err := checkDeclaredSize(stream.Size, maxBytes); err != nil {
			return nil, err
		}
	}
	data, err := readLimited(stream.Body, maxBytes)
	if err != nil {
		return nil, err
	}
	contentType, err := resolveContentType(stream.ContentType, data)
	if err != nil {
		return nil, err
	}
	return &Photo{Data: data, ContentType: contentType, Source: source}, nil
}
