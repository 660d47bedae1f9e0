package filesystem

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	pages   [][]string
	types   map[string]string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.types[*in.Bucket+"/"+*in.Key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := 0
	if in.ContinuationToken != nil {
		page = len(*in.ContinuationToken)
	}
	out := &s3.ListObjectsV2Output{}
	for _, key := range f.pages[page] {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strings.Repeat("x", page+1))
	}
	return out, nil
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://exports/in/punches.csv")
	require.NoError(t, err)
	assert.Equal(t, "exports", bucket)
	assert.Equal(t, "in/punches.csv", key)

	bucket, key, err = ParseS3URI("s3://exports")
	require.NoError(t, err)
	assert.Equal(t, "exports", bucket)
	assert.Empty(t, key)

	_, _, err = ParseS3URI("https://exports/in")
	assert.Error(t, err)
	assert.True(t, IsS3URI("s3://a/b"))
	assert.False(t, IsS3URI("/tmp/a"))
}

func TestS3ReadWrite(t *testing.T) {
	fake := &fakeS3{}
	fs := NewS3WithClient(fake)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "exports", "wh1/a.xml", []byte("<tXML/>"), "application/xml"))
	assert.Equal(t, "application/xml", fake.types["exports/wh1/a.xml"])

	var buf bytes.Buffer
	require.NoError(t, fs.ReadFile(ctx, "exports", "wh1/a.xml", &buf))
	assert.Equal(t, "<tXML/>", buf.String())

	err := fs.ReadFile(ctx, "exports", "missing", &buf)
	assert.ErrorContains(t, err, "failed to get object missing from bucket exports")
}

func TestS3ListFilesFollowsPages(t *testing.T) {
	fake := &fakeS3{pages: [][]string{{"in/a.csv", "out/x.xml"}, {"in/b.csv"}}}
	fs := NewS3WithClient(fake)

	keys, err := fs.ListFiles(context.Background(), "exports", "in/")
	require.NoError(t, err)
	assert.Equal(t, []string{"in/a.csv", "in/b.csv"}, keys)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "punches.csv")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

	rc, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "local", string(data))

	fake := &fakeS3{objects: map[string][]byte{"in/punches.csv": []byte("remote")}}
	rc, err = Open(context.Background(), "s3://in/punches.csv", NewS3WithClient(fake))
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	assert.Equal(t, "remote", string(data))

	_, err = Open(context.Background(), filepath.Join(dir, "missing.csv"), nil)
	assert.Error(t, err)
}

func TestWriteLocalFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "wh1")

	require.NoError(t, WriteLocalFile(dir, "a.xml", []byte("one")))
	require.NoError(t, WriteLocalFile(dir, "a.xml", []byte("two")))

	data, err := os.ReadFile(filepath.Join(dir, "a.xml"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	_, err = os.Stat(filepath.Join(dir, "a.xml.tmp"))
	assert.True(t, os.IsNotExist(err))
}
