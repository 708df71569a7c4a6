package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	buckets map[string]bool
	created int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, buckets: map[string]bool{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if aws.ToString(in.ContentType) != "application/json" {
		return nil, errors.New("unexpected content type")
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.buckets[aws.ToString(in.Bucket)] {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	f.buckets[aws.ToString(in.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func TestArchiveRoundTrip(t *testing.T) {
	fake := newFakeS3()
	archive := NewWithClient(fake, "cierres")
	ctx := context.Background()

	require.NoError(t, archive.EnsureBucket(ctx))
	require.NoError(t, archive.EnsureBucket(ctx))
	require.Equal(t, 1, fake.created)

	require.NoError(t, archive.PutJSON(ctx, "/daily-close/2026-03-10/7.json", []byte(`{"ok":true}`)))
	body, err := archive.Get(ctx, "daily-close/2026-03-10/7.json")
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))

	require.Error(t, archive.PutJSON(ctx, "", nil))
}

func TestConfigEnabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{Bucket: "cierres"}.Enabled())
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
