package transport

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"punchexport.com/punchexport/infrastructure/filesystem"
	"punchexport.com/punchexport/punch/core"
)

const xmlContentType = "application/xml"

// S3Destination writes documents under a bucket prefix.
type S3Destination struct {
	fs     *filesystem.S3
	bucket string
	prefix string
}

func (d *S3Destination) Put(ctx context.Context, name string, data []byte) error {
	return d.fs.WriteFile(ctx, d.bucket, path.Join(d.prefix, name), data, xmlContentType)
}

// DirDestination writes documents into a local directory.
type DirDestination struct {
	dir string
}

func (d *DirDestination) Put(_ context.Context, name string, data []byte) error {
	return filesystem.WriteLocalFile(d.dir, name, data)
}

// HTTPDestination posts each document to an endpoint, with the file name as
// the "file" query parameter.
type HTTPDestination struct {
	transport *Transport
}

func (d *HTTPDestination) Put(ctx context.Context, name string, data []byte) error {
	_, err := d.transport.Post(ctx, "", xmlContentType, data, map[string]string{"file": name})
	return err
}

type Options struct {
	// S3 is created from the default AWS configuration when nil and an
	// s3:// destination is configured.
	S3 *filesystem.S3
	// Token is sent as a bearer token to http(s) destinations.
	Token string
}

// Registry maps warehouse ids to destinations.
type Registry struct {
	destinations map[string]core.Destination
}

// NewRegistry builds a destination for every warehouse URI. Supported
// schemes are s3, file, http and https.
func NewRegistry(ctx context.Context, uris map[string]string, opts Options) (*Registry, error) {
	r := &Registry{destinations: map[string]core.Destination{}}
	for warehouse, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid destination for %s: %w", warehouse, err)
		}

		switch u.Scheme {
		case "s3":
			if opts.S3 == nil {
				if opts.S3, err = filesystem.NewS3(ctx); err != nil {
					return nil, err
				}
			}
			r.destinations[warehouse] = &S3Destination{
				fs:     opts.S3,
				bucket: u.Host,
				prefix: strings.TrimPrefix(u.Path, "/"),
			}
		case "file":
			r.destinations[warehouse] = &DirDestination{dir: u.Path}
		case "http", "https":
			r.destinations[warehouse] = &HTTPDestination{transport: NewTransport(raw, opts.Token)}
		default:
			return nil, fmt.Errorf("unsupported destination scheme %q for %s", u.Scheme, warehouse)
		}
	}
	return r, nil
}

func (r *Registry) Lookup(warehouse string) (core.Destination, bool) {
	d, ok := r.destinations[warehouse]
	return d, ok
}
