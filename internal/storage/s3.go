package storage

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
)

type S3Storage struct {
	client s3iface.S3API
	cfg    config.S3Config
	now    func() time.Time
	log    zerolog.Logger
}

// NewS3Storage builds the client without contacting S3. Unusable settings
// surface as a ConfigError on the first Upload.
func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	s3cfg := cfg.Storage.S3

	awsConfig := &aws.Config{
		Credentials: credentials.NewStaticCredentials(s3cfg.AccessKey, s3cfg.SecretKey, ""),
		Region:      aws.String(s3cfg.Region),
		DisableSSL:  aws.Bool(!s3cfg.UseSSL),
	}
	if s3cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s3cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}

	return NewS3StorageWithClient(s3.New(sess), s3cfg), nil
}

func NewS3StorageWithClient(client s3iface.S3API, cfg config.S3Config) *S3Storage {
	return &S3Storage{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.Get(),
	}
}

// Upload performs exactly one PutObject of the whole payload. The key embeds
// the wall-clock time of the upload, not the capture time.
func (s *S3Storage) Upload(ctx context.Context, payload []byte, org model.Org, teacherID string, sequence int) (*Location, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}

	key := ObjectKey(org, teacherID, s.now(), sequence)
	log := s.log.With().Str("key", key).Int("bytes", len(payload)).Logger()

	out, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(ContentTypeJPEG),
	})
	if err != nil {
		log.Error().Err(err).Msg("S3 upload failed")
		return nil, errors.NewUploadError(key, err)
	}

	loc := &Location{
		Bucket: s.cfg.Bucket,
		Key:    key,
		URL:    s.objectURL(key),
	}
	if out != nil && out.ETag != nil {
		loc.ETag = strings.Trim(*out.ETag, `"`)
	}

	log.Info().Str("location", loc.URL).Msg("S3 upload succeeded")
	return loc, nil
}

// Check returns a ConfigError when the bucket or the credential pair is unset
// or still a placeholder.
func (s *S3Storage) Check() error {
	var problems []string
	if s.cfg.Bucket == "" || s.cfg.Bucket == config.PlaceholderBucket {
		problems = append(problems, "AWS S3 bucket not configured")
	}
	if s.cfg.AccessKey == "" || s.cfg.AccessKey == config.PlaceholderAccessKey ||
		s.cfg.SecretKey == "" || s.cfg.SecretKey == config.PlaceholderSecretKey {
		problems = append(problems, "AWS credentials are not configured. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	}
	if len(problems) > 0 {
		return errors.ConfigError{Problems: problems}
	}
	return nil
}

func (s *S3Storage) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")

	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + escaped
	}
	return "https://" + s.cfg.Bucket + ".s3." + s.cfg.Region + ".amazonaws.com/" + escaped
}
