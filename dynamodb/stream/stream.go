// Package stream resolves the archive sinks and restore sources named on the
// command line: standard streams, local files and S3 objects.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of *s3.Client used for archives.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ S3Client = (*s3.Client)(nil)

var ErrNoS3Client = errors.New("no S3 client configured")

// Endpoints opens sinks and sources by URI. An empty URI or "-" is the
// standard stream, s3://bucket/key an S3 object, anything else a file path.
type Endpoints struct {
	S3     S3Client
	Stdin  io.Reader
	Stdout io.Writer
}

// Name returns how a URI is shown in progress output.
func Name(uri string, stdName string) string {
	if isStd(uri) {
		return stdName
	}
	return uri
}

func isStd(uri string) bool {
	return uri == "" || uri == "-"
}

// ParseS3URI splits s3://bucket/key. ok is false for URIs of other schemes.
func ParseS3URI(uri string) (bucket, key string, ok bool, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", false, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", true, fmt.Errorf("parse %s: %w", uri, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", true, fmt.Errorf("s3 uri %s must name a bucket and a key", uri)
	}
	return u.Host, key, true, nil
}

// Sink opens uri for writing. S3 objects are buffered and uploaded on Close.
func (e Endpoints) Sink(ctx context.Context, uri string) (io.WriteCloser, error) {
	if isStd(uri) {
		out := e.Stdout
		if out == nil {
			out = os.Stdout
		}
		return nopWriteCloser{out}, nil
	}
	bucket, key, ok, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if ok {
		if e.S3 == nil {
			return nil, ErrNoS3Client
		}
		return &s3Sink{ctx: ctx, client: e.S3, bucket: bucket, key: key}, nil
	}
	f, err := os.Create(uri)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return f, nil
}

// Source opens uri for reading.
func (e Endpoints) Source(ctx context.Context, uri string) (io.ReadCloser, error) {
	if isStd(uri) {
		in := e.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}
	bucket, key, ok, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if ok {
		if e.S3 == nil {
			return nil, ErrNoS3Client
		}
		out, err := e.S3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", uri, err)
		}
		return out.Body, nil
	}
	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return f, nil
}

// Abort closes a sink after a failed write without publishing it. Sinks that
// cannot hold their output back are closed as usual.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(interface{ Abort() }); ok {
		a.Abort()
		return nil
	}
	return w.Close()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type s3Sink struct {
	ctx    context.Context
	client S3Client
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (s *s3Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.buf.Write(p)
}

// Abort drops the buffer. A later Close uploads nothing.
func (s *s3Sink) Abort() {
	s.closed = true
	s.buf.Reset()
}

// Close uploads the buffered archive.
func (s *s3Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(s.buf.Bytes()),
		ContentLength: aws.Int64(int64(s.buf.Len())),
		ContentType:   aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
