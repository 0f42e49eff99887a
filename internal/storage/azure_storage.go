package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "go-meal-analyzer/internal/errors"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type blobDownloadFunc func(ctx context.Context, containerName, blobName string) (objectStream, error)

// AzurePhotoFetcher reads photos from one storage account with its shared
// key, so private containers work without SAS tokens in the URL.
type AzurePhotoFetcher struct {
	accountHost string
	download    blobDownloadFunc
	maxBytes    int64
}

func NewAzurePhotoFetcher(accountName string, accountKey string, maxBytes int64) (*AzurePhotoFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure storage credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	download := func(ctx context.Context, containerName, blobName string) (objectStream, error) {
		resp, err := client.DownloadStream(ctx, containerName, blobName, nil)
		if err != nil {
			return objectStream{}, err
		}
		stream := objectStream{Body: resp.Body, Size: -1}
		if resp.ContentLength != nil {
			stream.Size = *resp.ContentLength
		}
		if resp.ContentType != nil {
			stream.ContentType = *resp.ContentType
		}
		return stream, nil
	}

	return newAzurePhotoFetcher(accountName, download, maxBytes), nil
}

func newAzurePhotoFetcher(accountName string, download blobDownloadFunc, maxBytes int64) *AzurePhotoFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	return &AzurePhotoFetcher{
		accountHost: strings.ToLower(accountName) + ".blob.core.windows.net",
		download:    download,
		maxBytes:    maxBytes,
	}
}

// Handles reports whether the URL belongs to this fetcher's account.
func (s *AzurePhotoFetcher) Handles(u *url.URL) bool {
	return strings.EqualFold(u.Hostname(), s.accountHost)
}

func (s *AzurePhotoFetcher) Fetch(ctx context.Context, photoURL string) (*Photo, error) {
	parsedURL, err := url.Parse(photoURL)
	if err != nil {
		return nil, apperrors.NewURLNotAllowedError("invalid blob URL", err)
	}

	containerName, blobName, ok := strings.Cut(strings.TrimPrefix(parsedURL.Path, "/"), "/")
	if !ok || containerName == "" || blobName == "" {
		return nil, apperrors.NewURLNotAllowedError("blob URL must name a container and a blob", nil)
	}
	if unescaped, err := url.PathUnescape(blobName); err == nil {
		blobName = unescaped
	}

	stream, err := s.download(ctx, containerName, blobName)
	if err != nil {
		return nil, apperrors.NewNetworkError("azure blob download failed", err)
	}
	return readPhoto(stream, "azure_blob", s.maxBytes)
}
