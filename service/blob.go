package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// BlobStore keeps cover images in S3. Object keys are generated, never
// derived from client-supplied filenames, so a crafted filename cannot
// escape the covers prefix.
type BlobStore struct {
	client *s3.Client
	bucket string
}

func NewBlobStore(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string) (*BlobStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &BlobStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// SafeExt returns the lowercased extension of name when it is a known
// image extension, and "" otherwise. Everything else about the client
// filename is discarded.
func SafeExt(name string) string {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filepath.Base(name))))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return ""
}

// Put stores the image under a fresh random key and returns the key.
func (b *BlobStore) Put(ctx context.Context, originalFilename string, body io.Reader, contentType string) (string, error) {
	key := "covers/" + uuid.New().String() + SafeExt(originalFilename)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Get downloads the object and returns its body and content type.
// Caller must close the returned reader.
func (b *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	ct := ""
	if out.ContentType != nil {
		ct = *out.ContentType
	}
	return out.Body, ct, nil
}

// Delete removes the object from S3.
func (b *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	return err
}
