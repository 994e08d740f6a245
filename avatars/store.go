// Package avatars stores uploaded profile pictures in an S3-compatible bucket.
package avatars

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/config"
	"github.com/user/tvitter-go/logging"
)

// MaxSize is the largest accepted picture, in bytes.
const MaxSize = 2 << 20

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// Store saves a user's picture and returns the URL it is served from.
type Store interface {
	Save(ctx context.Context, userID string, data []byte) (string, error)
}

// objectPutter is the part of *s3.Client the store needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client    objectPutter
	bucket    string
	publicURL string
	log       logging.Logger
	newID     func() string
}

// NewS3Store builds a store for cfg. Static credentials are used when an access
// key is configured, otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg *config.AvatarConfig, log logging.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperror.NewConfigError("cannot load object storage configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg.Bucket, cfg.PublicURL, log), nil
}

func newS3Store(client objectPutter, bucket, publicURL string, log logging.Logger) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
		log:       log,
		newID:     uuid.NewString,
	}
}

// DetectType sniffs the picture format and checks the size limit. It returns
// the content type and file extension of an accepted picture.
func DetectType(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", apperror.NewValidationError("is empty", nil)
	}
	if len(data) > MaxSize {
		return "", "", apperror.NewValidationError(fmt.Sprintf("must be at most %d MiB", MaxSize>>20), nil)
	}
	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", "", apperror.NewValidationError("must be a PNG, JPEG or GIF image", nil)
	}
	return contentType, ext, nil
}

// Save uploads data under a fresh key in the user's prefix.
func (s *S3Store) Save(ctx context.Context, userID string, data []byte) (string, error) {
	contentType, ext, err := DetectType(data)
	if err != nil {
		return "", err
	}

	key := path.Join("avatars", userID, s.newID()+ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		s.log.Error(ctx, "cannot upload avatar", "user_id", userID, "key", key, "error", err)
		return "", apperror.NewExternalServiceError("cannot store picture", err)
	}

	s.log.Info(ctx, "avatar uploaded", "user_id", userID, "key", key, "size", len(data))
	return s.publicURL + "/" + key, nil
}
