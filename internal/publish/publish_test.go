package publish

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjects struct {
	mock.Mock
	body []byte
}

func (m *mockObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if in.Body != nil {
		m.body, _ = io.ReadAll(in.Body)
	}
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key), aws.ToString(in.ContentType))
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockObjects) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(aws.ToString(in.Bucket))
	return &s3.ListObjectsV2Output{}, args.Error(0)
}

func TestNew_Unconfigured(t *testing.T) {
	p, err := New(context.Background(), Config{Bucket: "b"})
	require.NoError(t, err)
	assert.False(t, p.Configured())

	_, err = p.Upload(context.Background(), afero.NewMemMapFs(), "x.html")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, p.Check(context.Background()), ErrNotConfigured)
}

func TestUpload(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "outputs/guide.html", []byte("<html></html>"), 0o644))

	objects := &mockObjects{}
	objects.On("PutObject", "shows", "index.html", "text/html; charset=utf-8").Return(nil).Once()

	p := NewWithClient(Config{Bucket: "shows", PublicURL: "https://pub.example.com/"}, objects)
	loc, err := p.Upload(context.Background(), fs, "outputs/guide.html")
	require.NoError(t, err)

	assert.Equal(t, "https://pub.example.com/index.html", loc)
	assert.Equal(t, "<html></html>", string(objects.body))
	objects.AssertExpectations(t)
}

func TestUpload_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	objects := &mockObjects{}
	p := NewWithClient(Config{Bucket: "shows", Key: "guide.html"}, objects)

	_, err := p.Upload(context.Background(), fs, "missing.html")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "page.html", []byte("x"), 0o644))
	objects.On("PutObject", "shows", "guide.html", contentType).Return(errors.New("denied"))
	_, err = p.Upload(context.Background(), fs, "page.html")
	assert.ErrorContains(t, err, "denied")
}

func TestCheck(t *testing.T) {
	objects := &mockObjects{}
	objects.On("ListObjectsV2", "shows").Return(nil)

	p := NewWithClient(Config{Bucket: "shows"}, objects)
	assert.NoError(t, p.Check(context.Background()))
	assert.Equal(t, "s3://shows/index.html", p.location())
}
