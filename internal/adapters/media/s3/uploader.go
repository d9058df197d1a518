package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	appcfg "github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
)

type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader pushes local files to an S3-compatible bucket (MinIO in dev) and
// returns the public URL of the stored object.
type Uploader struct {
	client  objectStore
	bucket  string
	baseURL string
	prefix  string
	now     func() time.Time
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

func NewUploader(ctx context.Context, cfg *appcfg.Config) (*Uploader, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client:  client,
		bucket:  cfg.S3Bucket,
		baseURL: publicBaseURL(cfg),
		prefix:  strings.Trim(cfg.S3KeyPrefix, "/"),
		now:     time.Now,
	}, nil
}

func publicBaseURL(cfg *appcfg.Config) string {
	if cfg.S3PublicBaseURL != "" {
		return strings.TrimRight(cfg.S3PublicBaseURL, "/")
	}
	if cfg.S3Endpoint != "" {
		return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
}

func (u *Uploader) objectKey(ext string) string {
	d := u.now().UTC()
	key := fmt.Sprintf("%d/%02d/%s%s", d.Year(), d.Month(), uuid.NewString(), strings.ToLower(ext))
	if u.prefix == "" {
		return key
	}
	return u.prefix + "/" + key
}

func (u *Uploader) Upload(ctx context.Context, localFilePath string) (string, error) {
	if localFilePath == "" {
		return "", customErrors.NewInvalidArgument("no file to upload")
	}

	f, err := os.Open(localFilePath)
	if err != nil {
		return "", customErrors.WrapInternal(err, "open upload")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", customErrors.WrapInternal(err, "stat upload")
	}

	contentType, err := detectContentType(f, filepath.Ext(localFilePath))
	if err != nil {
		return "", customErrors.WrapInternal(err, "sniff upload")
	}

	key := u.objectKey(filepath.Ext(localFilePath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", customErrors.WrapInternal(err, "put object")
	}

	return u.baseURL + "/" + key, nil
}

// Delete removes an object previously returned by Upload. URLs that do not
// point into this bucket are rejected.
func (u *Uploader) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, u.baseURL+"/")
	if !ok || key == "" {
		return customErrors.NewInvalidArgument("url does not belong to the media bucket")
	}

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return customErrors.WrapInternal(err, "delete object")
	}
	return nil
}

func detectContentType(f *os.File, ext string) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if n == 0 {
		return "application/octet-stream", nil
	}
	return http.DetectContentType(head[:n]), nil
}
