package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"testing"

	apperrors "go-meal-analyzer/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	input *s3.GetObjectInput
	out   *s3.GetObjectOutput
	err   error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		raw    string
		bucket string
		key    string
		ok     bool
	}{
		{"https://meals.s3.us-east-1.amazonaws.com/u1/lunch.jpg", "meals", "u1/lunch.jpg", true},
		{"https://meals.s3.amazonaws.com/lunch.jpg", "meals", "lunch.jpg", true},
		{"https://s3.eu-west-1.amazonaws.com/meals/u1/lunch.jpg", "meals", "u1/lunch.jpg", true},
		{"https://meals.s3-eu-west-1.amazonaws.com/a.png", "meals", "a.png", true},
		{"https://s3.amazonaws.com/meals", "", "", false},
		{"https://meals.s3.amazonaws.com/", "", "", false},
		{"https://ec2.amazonaws.com/meals/a.jpg", "", "", false},
		{"https://storage.googleapis.com/meals/a.jpg", "", "", false},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.raw)
		bucket, key, ok := ParseS3URL(u)
		if ok != tt.ok || bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseS3URL(%s) = (%q, %q, %v), want (%q, %q, %v)",
				tt.raw, bucket, key, ok, tt.bucket, tt.key, tt.ok)
		}
	}
}

func TestS3PhotoFetcher_Fetch(t *testing.T) {
	fake := &fakeS3{out: &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(pngData)),
		ContentLength: aws.Int64(int64(len(pngData))),
		ContentType:   aws.String("binary/octet-stream"),
	}}
	fetcher := NewS3PhotoFetcherWithClient(fake, 0)

	photo, err := fetcher.Fetch(context.Background(), "https://meals.s3.us-east-1.amazonaws.com/u1/my%20lunch.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if aws.ToString(fake.input.Bucket) != "meals" || aws.ToString(fake.input.Key) != "u1/my lunch.png" {
		t.Errorf("GetObject input = %s/%s", aws.ToString(fake.input.Bucket), aws.ToString(fake.input.Key))
	}
	if photo.ContentType != "image/png" || photo.Source != "s3" {
		t.Errorf("photo = %s from %s", photo.ContentType, photo.Source)
	}
}

func TestS3PhotoFetcher_Errors(t *testing.T) {
	t.Run("declared size over limit", func(t *testing.T) {
		fake := &fakeS3{out: &s3.GetObjectOutput{
			Body:          io.NopCloser(bytes.NewReader(pngData)),
			ContentLength: aws.Int64(11 << 20),
			ContentType:   aws.String("image/png"),
		}}
		_, err := NewS3PhotoFetcherWithClient(fake, 0).Fetch(context.Background(), "https://meals.s3.amazonaws.com/a.png")
		if !apperrors.IsType(err, apperrors.ErrorTypePayloadTooLarge) {
			t.Errorf("Expected payload too large, got %v", err)
		}
	})

	t.Run("sdk failure", func(t *testing.T) {
		fake := &fakeS3{err: errors.New("AccessDenied")}
		_, err := NewS3PhotoFetcherWithClient(fake, 0).Fetch(context.Background(), "https://meals.s3.amazonaws.com/a.png")
		if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
			t.Errorf("Expected network error, got %v", err)
		}
	})
}

func TestAzurePhotoFetcher_Fetch(t *testing.T) {
	var gotContainer, gotBlob string
	download := func(_ context.Context, containerName, blobName string) (objectStream, error) {
		gotContainer, gotBlob = containerName, blobName
		return objectStream{
			Body:        io.NopCloser(bytes.NewReader(pngData)),
			Size:        -1,
			ContentType: "image/png",
		}, nil
	}
	fetcher := newAzurePhotoFetcher("MealPhotos", download, 0)

	u, _ := url.Parse("https://mealphotos.blob.core.windows.net/uploads/u1/dinner.png")
	if !fetcher.Handles(u) {
		t.Fatal("Expected fetcher to handle its own account")
	}
	other, _ := url.Parse("https://someoneelse.blob.core.windows.net/uploads/a.png")
	if fetcher.Handles(other) {
		t.Error("Expected fetcher to ignore other accounts")
	}

	photo, err := fetcher.Fetch(context.Background(), u.String())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotContainer != "uploads" || gotBlob != "u1/dinner.png" {
		t.Errorf("download(%s, %s)", gotContainer, gotBlob)
	}
	if photo.Source != "azure_blob" {
		t.Errorf("Source = %s", photo.Source)
	}

	if _, err := fetcher.Fetch(context.Background(), "https://mealphotos.blob.core.windows.net/uploads"); err == nil {
		t.Error("Expected missing blob name to fail")
	}
}

func TestAzurePhotoFetcher_BodyOverLimit(t *testing.T) {
	download := func(context.Context, string, string) (objectStream, error) {
		return objectStream{
			Body:        io.NopCloser(bytes.NewReader(pngData)),
			Size:        -1,
			ContentType: "image/png",
		}, nil
	}
	_, err := newAzurePhotoFetcher("meals", download, 16).Fetch(context.Background(), "https://meals.blob.core.windows.net/c/b.png")
	if !apperrors.IsType(err, apperrors.ErrorTypePayloadTooLarge) {
		t.Errorf("Expected payload too large, got %v", err)
	}
}
