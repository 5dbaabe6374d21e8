package services

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	sc "github.com/dmitrijs2005/foodhub/internal/server/config"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// MediaUpload is a presigned PUT target for a product image or short video.
type MediaUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MediaService struct {
	config *sc.Config
	now    func() time.Time
}

func NewMediaService(config *sc.Config) *MediaService {
	return &MediaService{config: config, now: time.Now}
}

// StorageKey places uploads under the owner and the upload date.
func StorageKey(userID, ext string, d time.Time) string {
	return fmt.Sprintf("media/%s/%d/%02d/%02d/%v%s", userID, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *MediaService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// mediaExtension accepts image/* and video/* content types only.
func mediaExtension(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type: %v", common.ErrorValidation, err)
	}
	if !strings.HasPrefix(mediaType, "image/") && !strings.HasPrefix(mediaType, "video/") {
		return "", fmt.Errorf("%w: unsupported content type %q", common.ErrorValidation, mediaType)
	}

	exts, _ := mime.ExtensionsByType(mediaType)
	if len(exts) == 0 {
		return "", nil
	}
	return exts[0], nil
}

// PresignUpload returns a PUT URL valid for 15 minutes. Guests cannot upload.
func (s *MediaService) PresignUpload(ctx context.Context, p models.Principal, contentType string) (*MediaUpload, error) {
	if p.IsGuest() {
		return nil, common.ErrorForbidden
	}

	ext, err := mediaExtension(contentType)
	if err != nil {
		return nil, err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(p.UserID, ext, s.now().UTC())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, err
	}

	return &MediaUpload{Key: key, URL: req.URL, ExpiresAt: s.now().Add(presignExpiry)}, nil
}
