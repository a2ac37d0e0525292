package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"visara/internal/config"
	"visara/internal/port"
)

// mediaArchive keeps inspection media in a single bucket, one object per
// unit. The key layout lives here and nowhere else, so renaming the scheme is
// a one-file change.
type mediaArchive struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	uploader      *manager.Uploader
	bucket        string
	presignExpiry time.Duration
}

// unitKey addresses one unit of one inspection.
func unitKey(inspectionID uuid.UUID, unitIndex int) string {
	return fmt.Sprintf("inspections/%s/unit_%d", inspectionID, unitIndex)
}

// NewMediaArchive creates an S3-backed media archive bound to the configured
// bucket. A custom endpoint (MinIO, localstack) switches to path-style
// addressing.
func NewMediaArchive(cfg *config.S3Config) (port.MediaArchive, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &mediaArchive{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		uploader:      manager.NewUploader(client),
		bucket:        cfg.Bucket,
		presignExpiry: time.Duration(cfg.PresignExpiry) * time.Second,
	}, nil
}

func (a *mediaArchive) ArchiveUnit(ctx context.Context, inspectionID uuid.UUID, unitIndex int, body io.Reader, contentType string) (*port.ArchivedUnit, error) {
	key := unitKey(inspectionID, unitIndex)
	result, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("archiving unit %d of %s: %w", unitIndex, inspectionID, err)
	}

	return &port.ArchivedUnit{
		Bucket:   a.bucket,
		Key:      key,
		Location: result.Location,
	}, nil
}

func (a *mediaArchive) RemoveUnit(ctx context.Context, inspectionID uuid.UUID, unitIndex int) error {
	key := unitKey(inspectionID, unitIndex)
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("removing unit %d of %s: %w", unitIndex, inspectionID, err)
	}
	return nil
}

func (a *mediaArchive) UnitURL(ctx context.Context, inspectionID uuid.UUID, unitIndex int) (string, error) {
	result, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(unitKey(inspectionID, unitIndex)),
	}, s3.WithPresignExpires(a.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presigning unit %d of %s: %w", unitIndex, inspectionID, err)
	}
	return result.URL, nil
}
