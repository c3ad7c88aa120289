package stream

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, ok, err := ParseS3URI("s3://backups/tables/users.jsonl")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "backups", bucket)
	assert.Equal(t, "tables/users.jsonl", key)

	_, _, ok, err = ParseS3URI("users.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = ParseS3URI("s3://backups")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestStdStreams(t *testing.T) {
	var out bytes.Buffer
	e := Endpoints{Stdin: strings.NewReader("line\n"), Stdout: &out}
	ctx := context.Background()

	w, err := e.Sink(ctx, "-")
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "hello\n", out.String())

	r, err := e.Source(ctx, "")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))

	assert.Equal(t, "stdin", Name("", "stdin"))
	assert.Equal(t, "a.jsonl", Name("a.jsonl", "stdin"))
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.jsonl")
	e := Endpoints{}
	ctx := context.Background()

	w, err := e.Sink(ctx, path)
	require.NoError(t, err)
	_, err = io.WriteString(w, `{"id":"a"}`+"\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := e.Source(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`+"\n", string(data))
}

func TestS3RoundTrip(t *testing.T) {
	client := &mockS3{}
	var uploaded []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "backups" && aws.ToString(in.Key) == "users.jsonl"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		uploaded, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	e := Endpoints{S3: client}
	ctx := context.Background()

	w, err := e.Sink(ctx, "s3://backups/users.jsonl")
	require.NoError(t, err)
	_, err = io.WriteString(w, `{"id":"a"}`+"\n")
	require.NoError(t, err)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")
	assert.Equal(t, `{"id":"a"}`+"\n", string(uploaded))

	client.On("GetObject", mock.Anything, mock.Anything).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(uploaded))}, nil)
	r, err := e.Source(ctx, "s3://backups/users.jsonl")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, string(uploaded), string(data))
	client.AssertExpectations(t)
}

func TestAbortSkipsUpload(t *testing.T) {
	client := &mockS3{}
	w, err := Endpoints{S3: client}.Sink(context.Background(), "s3://backups/users.jsonl")
	require.NoError(t, err)
	_, err = io.WriteString(w, `{"id":"a"}`+"\n")
	require.NoError(t, err)

	require.NoError(t, Abort(w))
	require.NoError(t, w.Close())
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)

	var buf bytes.Buffer
	w, err = Endpoints{Stdout: &buf}.Sink(context.Background(), "-")
	require.NoError(t, err)
	assert.NoError(t, Abort(w))
}

func TestS3WithoutClient(t *testing.T) {
	_, err := Endpoints{}.Sink(context.Background(), "s3://backups/users.jsonl")
	assert.ErrorIs(t, err, ErrNoS3Client)
	_, err = Endpoints{}.Source(context.Background(), "s3://backups/users.jsonl")
	assert.ErrorIs(t, err, ErrNoS3Client)
}
