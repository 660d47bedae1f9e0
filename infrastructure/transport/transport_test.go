package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchexport.com/punchexport/infrastructure/filesystem"
)

type received struct {
	path        string
	query       string
	contentType string
	auth        string
	body        string
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]received) {
	t.Helper()
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, received{
			path:        r.URL.Path,
			query:       r.URL.Query().Get("file"),
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			body:        string(body),
		})
		w.WriteHeader(status)
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestTransportPost(t *testing.T) {
	srv, got := newServer(t, http.StatusCreated)

	resp, err := NewTransport(srv.URL+"/", "secret").
		Post(context.Background(), "/inbound", "text/plain", []byte("hello"), map[string]string{"file": "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Data))

	require.Len(t, *got, 1)
	r := (*got)[0]
	assert.Equal(t, "/inbound", r.path)
	assert.Equal(t, "a.txt", r.query)
	assert.Equal(t, "text/plain", r.contentType)
	assert.Equal(t, "Bearer secret", r.auth)
	assert.Equal(t, "hello", r.body)
}

func TestTransportPostFailure(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway)

	_, err := NewTransport(srv.URL, "").Post(context.Background(), "inbound", "text/plain", nil, nil)
	assert.EqualError(t, err, "POST inbound failed with status code 502: ok")
}

func TestRegistry(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	dir := t.TempDir()
	fake := &memS3{}

	registry, err := NewRegistry(context.Background(), map[string]string{
		"WH1": "s3://exports/tas/wh1",
		"WH2": "file://" + dir,
		"WH3": srv.URL + "/tas",
	}, Options{S3: filesystem.NewS3WithClient(fake), Token: "tok"})
	require.NoError(t, err)

	ctx := context.Background()
	for _, wh := range []string{"WH1", "WH2", "WH3"} {
		dest, ok := registry.Lookup(wh)
		require.True(t, ok, wh)
		require.NoError(t, dest.Put(ctx, "TAS_"+wh+".xml", []byte("<tXML/>")))
	}

	assert.Equal(t, "<tXML/>", string(fake.objects["exports/tas/wh1/TAS_WH1.xml"]))

	data, err := os.ReadFile(filepath.Join(dir, "TAS_WH2.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<tXML/>", string(data))

	require.Len(t, *got, 1)
	assert.Equal(t, "/tas", (*got)[0].path)
	assert.Equal(t, "TAS_WH3.xml", (*got)[0].query)
	assert.Equal(t, "application/xml", (*got)[0].contentType)
	assert.Equal(t, "Bearer tok", (*got)[0].auth)

	_, ok := registry.Lookup("WH9")
	assert.False(t, ok)
}

func TestRegistryRejectsUnknownScheme(t *testing.T) {
	_, err := NewRegistry(context.Background(), map[string]string{"WH1": "ftp://host/dir"}, Options{})
	assert.ErrorContains(t, err, `unsupported destination scheme "ftp" for WH1`)
}

type memS3 struct {
	objects map[string][]byte
}

func (m *memS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, io.EOF
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) ListObjectsV2(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{}, nil
}
