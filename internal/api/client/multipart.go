package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
)

// File is one binary part of a multipart upload.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Form describes a multipart body: one JSON metadata part followed by
// repeated file parts under the same field name.
type Form struct {
	JSONField string
	Meta      any
	FileField string
	Files     []File
	// RequireFiles writes a single empty file part when Files is empty.
	RequireFiles bool
}

// Multipart sends f as multipart/form-data and decodes the result into out.
func (c *Client) Multipart(ctx context.Context, method, path string, f Form, out any) error {
	body, contentType, err := encodeForm(f)
	if err != nil {
		return fmt.Errorf("client: multipart %s %s: %w", method, path, err)
	}
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.send(req, out)
}

func encodeForm(f Form) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(f.Meta)
	if err != nil {
		return nil, "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, f.JSONField))
	h.Set("Content-Type", "application/json")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := pw.Write(meta); err != nil {
		return nil, "", err
	}

	files := f.Files
	if len(files) == 0 && f.RequireFiles {
		files = []File{{Name: "", ContentType: "application/octet-stream"}}
	}
	for _, file := range files {
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		fh := make(textproto.MIMEHeader)
		fh.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.FileField, filepath.Base(file.Name)))
		if file.Name == "" {
			fh.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=""`, f.FileField))
		}
		fh.Set("Content-Type", ct)
		fw, err := mw.CreatePart(fh)
		if err != nil {
			return nil, "", err
		}
		if file.Body != nil {
			if _, err := io.Copy(fw, file.Body); err != nil {
				return nil, "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
