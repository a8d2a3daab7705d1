package sink

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chtzvt/rekorslurp/internal/compression"
)

type S3Sink struct {
	bucket           string
	prefix           string
	region           string
	compression      string
	endpoint         string
	accessKeyID      string
	secretAccessKey  string
	client           PutObjectAPI // nil in prod, set by test
	disableChecksums bool
	usePathStyle     bool
}

// PutObjectAPI abstracts the S3 PutObject method (for testing)
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Sink builds an S3 sink. Credentials come from the access_key_id and
// secret_access_key options, then AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY,
// then the SDK's default chain.
func NewS3Sink(opts map[string]interface{}) (Sink, error) {
	bucket := stringOpt(opts, "bucket")
	region := stringOpt(opts, "region")
	comp := stringOpt(opts, "compression")
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("s3 sink requires 'bucket' and 'region' options")
	}
	if err := compression.Validate(comp); err != nil {
		return nil, fmt.Errorf("s3 sink: %w", err)
	}

	accessKey := stringOpt(opts, "access_key_id")
	secretKey := stringOpt(opts, "secret_access_key")
	if accessKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}

	return &S3Sink{
		bucket:           bucket,
		prefix:           stringOpt(opts, "prefix"),
		region:           region,
		compression:      comp,
		endpoint:         chooseEndpoint(stringOpt(opts, "endpoint"), stringOpt(opts, "base_endpoint")),
		accessKeyID:      accessKey,
		secretAccessKey:  secretKey,
		disableChecksums: toBool(opts["disable_checksums"]),
		usePathStyle:     toBool(opts["use_path_style"]),
	}, nil
}

// Helper to select which endpoint to use
func chooseEndpoint(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (s *S3Sink) newClient(ctx context.Context) (PutObjectAPI, error) {
	awsCfgOpts := []func(*config.LoadOptions) error{
		config.WithRegion(s.region),
	}
	if s.accessKeyID != "" {
		awsCfgOpts = append(awsCfgOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.accessKeyID, s.secretAccessKey, ""),
		))
	}
	if s.disableChecksums {
		awsCfgOpts = append(awsCfgOpts, config.WithRequestChecksumCalculation(0))
		awsCfgOpts = append(awsCfgOpts, config.WithResponseChecksumValidation(0))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, awsCfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config load error: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = &s.endpoint
		}
		o.UsePathStyle = s.usePathStyle
	}), nil
}

func (s *S3Sink) Open(ctx context.Context, name string) (SinkWriter, error) {
	client := s.client
	if client == nil {
		var err error
		if client, err = s.newClient(ctx); err != nil {
			return nil, err
		}
	}

	key := s.prefix + name
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: &s.bucket,
			Key:    &key,
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		done <- err
	}()
	w, err := compression.NewWriter(pw, s.compression)
	if err != nil {
		pw.CloseWithError(err)
		<-done
		return nil, err
	}
	return &uploadWriter{Writer: w, codec: w, pipe: pw, done: done}, nil
}

// uploadWriter streams into a background upload and reports the upload's
// result from Close.
type uploadWriter struct {
	io.Writer
	codec io.Closer
	pipe  *io.PipeWriter
	done  <-chan error
}

func (u *uploadWriter) Close() error {
	if err := u.codec.Close(); err != nil {
		u.pipe.CloseWithError(err)
		<-u.done
		return err
	}
	u.pipe.Close()
	return <-u.done
}

func init() {
	Register("s3", NewS3Sink)
}
