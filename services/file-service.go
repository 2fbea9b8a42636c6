package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileService čuva priloge taskova u S3 kompatibilnom storage-u (MinIO),
// odvojeno od Task dokumenta. Ključ je ID taska.
type FileService struct {
	bucket string
	client *s3.Client
}

// NewFileService pravi S3 klijenta iz S3_* env varijabli.
func NewFileService(ctx context.Context) (*FileService, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(os.Getenv("S3_REGION")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("S3_ACCESS_KEY"),
			os.Getenv("S3_SECRET_KEY"),
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // MinIO
		}
	})

	return &FileService{
		bucket: os.Getenv("S3_BUCKET"),
		client: client,
	}, nil
}

func attachmentKey(taskID string) string {
	return "attachments/" + taskID
}

// UploadAttachment upisuje sadržaj priloga pod ključem taska.
func (s *FileService) UploadAttachment(ctx context.Context, taskID, contentType string, data []byte) error {
	key := attachmentKey(taskID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload attachment: %v", err)
	}
	return nil
}

// DownloadAttachment vraća sadržaj priloga za task.
func (s *FileService) DownloadAttachment(ctx context.Context, taskID string) ([]byte, error) {
	key := attachmentKey(taskID)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %v", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment body: %v", err)
	}
	return data, nil
}

// DeleteAttachment briše prilog; poziva se pri brisanju taska, best-effort.
func (s *FileService) DeleteAttachment(ctx context.Context, taskID string) error {
	key := attachmentKey(taskID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}
