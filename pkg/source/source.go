// Package source opens featline inputs. An input is "-" for stdin, a local
// path, an s3://bucket/key object or a gs://bucket/object object. Inputs
// whose name ends in a compression extension are decompressed on the fly.
package source

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/featline/pkg/compression"
	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/logger"
)

// Stdin is the input name for standard input.
const Stdin = "-"

// Opener opens inputs by name. Object store clients are created on first
// use and shared by later opens. Safe for concurrent use.
type Opener struct {
	cfg config.SourcesConfig

	// Stdin is read for the "-" input; defaults to os.Stdin.
	Stdin io.Reader

	mu        sync.Mutex
	s3Client  *s3.Client
	gcsClient *storage.Client
}

// NewOpener creates an opener with the given object store settings.
func NewOpener(cfg config.SourcesConfig) *Opener {
	return &Opener{cfg: cfg, Stdin: os.Stdin}
}

// Open returns a decompressed stream for name.
func (o *Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	raw, err := o.openRaw(ctx, name)
	if err != nil {
		return nil, err
	}

	alg := compression.Detect(name)
	if alg == compression.None {
		return raw, nil
	}
	r, err := compression.NewReader(raw, alg)
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open compressed input").
			WithDetail("input", name)
	}
	return &stackedReader{Reader: r, closers: []io.Closer{r, raw}}, nil
}

// Close releases the object store clients.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcsClient != nil {
		err := o.gcsClient.Close()
		o.gcsClient = nil
		return err
	}
	return nil
}

func (o *Opener) openRaw(ctx context.Context, name string) (io.ReadCloser, error) {
	switch {
	case name == Stdin || name == "":
		return io.NopCloser(o.Stdin), nil
	case strings.HasPrefix(name, "s3://"):
		return o.openS3(ctx, name)
	case strings.HasPrefix(name, "gs://"):
		return o.openGCS(ctx, name)
	default:
		f, err := os.Open(name) //nolint:gosec // G304: input paths come from the command line
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
				WithDetail("input", name)
		}
		return f, nil
	}
}

func (o *Opener) openS3(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, key, err := SplitObjectURI(name)
	if err != nil {
		return nil, err
	}
	client, err := o.s3(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to get S3 object").
			WithDetail("input", name)
	}
	return out.Body, nil
}

func (o *Opener) openGCS(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, object, err := SplitObjectURI(name)
	if err != nil {
		return nil, err
	}
	client, err := o.gcs(ctx)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read GCS object").
			WithDetail("input", name)
	}
	return r, nil
}

func (o *Opener) s3(ctx context.Context) (*s3.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.s3Client != nil {
		return o.s3Client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if o.cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(o.cfg.AWSRegion))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	o.s3Client = s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.cfg.S3Endpoint != "" {
			so.BaseEndpoint = aws.String(o.cfg.S3Endpoint)
		}
		so.UsePathStyle = o.cfg.S3UsePathStyle
	})
	logger.Debug("created S3 client",
		zap.String("region", cfg.Region),
		zap.String("endpoint", o.cfg.S3Endpoint))
	return o.s3Client, nil
}

func (o *Opener) gcs(ctx context.Context) (*storage.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcsClient != nil {
		return o.gcsClient, nil
	}

	var opts []option.ClientOption
	if o.cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.cfg.GCSCredentialsFile))
	}
	if o.cfg.GCSAnonymous {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}
	o.gcsClient = client
	logger.Debug("created GCS client")
	return client, nil
}

// SplitObjectURI splits scheme://bucket/key into its bucket and key.
func SplitObjectURI(uri string) (bucket, key string, err error) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", "", errors.New(errors.ErrorTypeConfig, "object URI has no scheme").
			WithDetail("input", uri)
	}
	rest := uri[i+3:]
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", errors.New(errors.ErrorTypeConfig, "object URI needs a bucket and a key").
			WithDetail("input", uri)
	}
	return rest[:slash], rest[slash+1:], nil
}

// stackedReader reads from the outermost stream and closes every layer,
// innermost last.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
