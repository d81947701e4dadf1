// Package covers turns image references given on the command line into
// upload parts for the book multipart endpoints.
package covers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/storage/s3"
)

const DefaultMaxBytes = 10 << 20

// Opener reads s3:// references. *s3.Client satisfies it.
type Opener interface {
	Open(ctx context.Context, bucket, key string) (s3.Object, error)
}

type Resolver struct {
	S3       Opener
	MaxBytes int64
}

// Resolve loads every ref (a local path or s3://bucket/key) and checks that
// it is an image. Files are read into memory.
func (r Resolver) Resolve(ctx context.Context, refs []string) ([]client.File, error) {
	max := r.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	files := make([]client.File, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		f, err := r.resolve(ctx, ref, max)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (r Resolver) resolve(ctx context.Context, ref string, max int64) (client.File, error) {
	var (
		rc       io.ReadCloser
		name     string
		declared string
	)
	if bucket, key, ok := s3.ParseURI(ref); ok {
		if r.S3 == nil {
			return client.File{}, fmt.Errorf("covers: %s: no S3 client configured", ref)
		}
		obj, err := r.S3.Open(ctx, bucket, key)
		if err != nil {
			return client.File{}, fmt.Errorf("covers: %w", err)
		}
		rc, name, declared = obj.Body, path.Base(key), obj.ContentType
	} else {
		fh, err := os.Open(ref)
		if err != nil {
			return client.File{}, fmt.Errorf("covers: %w", err)
		}
		rc, name = fh, filepath.Base(ref)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, max+1))
	if err != nil {
		return client.File{}, fmt.Errorf("covers: read %s: %w", ref, err)
	}
	if int64(len(data)) > max {
		return client.File{}, fmt.Errorf("covers: %s is larger than %d bytes", ref, max)
	}
	ct := contentType(name, declared, data)
	if !strings.HasPrefix(ct, "image/") {
		return client.File{}, fmt.Errorf("covers: %s is %s, not an image", ref, ct)
	}
	return client.File{Name: name, ContentType: ct, Body: bytes.NewReader(data)}, nil
}

func contentType(name, declared string, data []byte) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return http.DetectContentType(data)
}
