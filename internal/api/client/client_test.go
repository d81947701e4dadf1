package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/5w1tchy/library-client/internal/api/apperr"
	"github.com/5w1tchy/library-client/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/api"
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDoDecodesEnvelopeAndSetsHeaders(t *testing.T) {
	var gotAuth, gotReqID, gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"code":1000,"result":{"id":"b1","title":"Dune","stock":2,"status":1}}`)
	}, Options{Tokens: TokenFunc(func() string { return "tok" })})

	var b models.Book
	q := url.Values{"keyword": {"dune"}, "authorName": {""}, "genreName": {"  "}}
	if err := c.Do(t.Context(), http.MethodGet, "/books/filter", q, nil, &b); err != nil {
		t.Fatal(err)
	}
	if b.Title != "Dune" || b.Stock != 2 {
		t.Fatalf("decoded %+v", b)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth header=%q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatal("missing request id")
	}
	if gotPath != "/api/books/filter" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotQuery != "keyword=dune" {
		t.Fatalf("query=%q (blank filters must be omitted)", gotQuery)
	}
}

func TestDoNoTokenNoHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `{"code":1000,"result":null}`)
	}, Options{Tokens: TokenFunc(func() string { return "" })})
	if err := c.Do(t.Context(), http.MethodGet, "books/countBook", nil, nil, new(int)); err != nil {
		t.Fatal(err)
	}
}

func TestDoErrorSurfacesServerMessage(t *testing.T) {
	unauthorized := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/borrowings":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":1010,"message":"Sách Dune đã hết hàng"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":1006,"message":"Unauthenticated"}`)
		}
	}, Options{
		Tokens:         TokenFunc(func() string { return "expired" }),
		OnUnauthorized: func() { unauthorized++ },
	})

	err := c.Do(t.Context(), http.MethodPost, "/borrowings", nil, map[string]any{"bookIds": []string{"b1"}}, nil)
	re, ok := apperr.As(err)
	if !ok || re.Status != http.StatusBadRequest || re.UserMessage() != "Sách Dune đã hết hàng" {
		t.Fatalf("unexpected error: %#v", err)
	}
	if re.RequestID == "" || re.Method != http.MethodPost {
		t.Fatalf("missing request context: %+v", re)
	}
	if unauthorized != 0 {
		t.Fatal("400 must not clear the session")
	}

	err = c.Do(t.Context(), http.MethodGet, "/users/getMyInfor", nil, nil, nil)
	if !apperr.IsStatus(err, http.StatusUnauthorized) || unauthorized != 1 {
		t.Fatalf("err=%v unauthorized=%d", err, unauthorized)
	}
}

func TestDoCanceled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, Options{})
	defer close(release)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := c.Do(ctx, http.MethodGet, "/books/filter", nil, nil, nil)
	if !errors.Is(err, context.Canceled) || !IsCanceled(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestMultipartUpdateWritesEmptyImagesPart(t *testing.T) {
	type seen struct {
		meta   models.BookInput
		metaCT string
		images []string
	}
	var got seen
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart reader: %v", err)
			return
		}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("next part: %v", err)
				return
			}
			data, _ := io.ReadAll(p)
			switch p.FormName() {
			case "books":
				got.metaCT = p.Header.Get("Content-Type")
				_ = json.Unmarshal(data, &got.meta)
			case "images":
				got.images = append(got.images, string(data))
			}
		}
		_, _ = io.WriteString(w, `{"code":1000,"result":{"id":"b1"}}`)
	}, Options{})

	in := models.BookInput{Title: "Dune", AuthorIDs: []string{"a1"}, GenreIDs: []string{"g1"}, Stock: 3, Status: 1}
	var out models.Book
	err := c.Multipart(t.Context(), http.MethodPut, "/books/b1", Form{
		JSONField: "books", Meta: in, FileField: "images", RequireFiles: true,
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if got.metaCT != "application/json" || got.meta.Title != "Dune" {
		t.Fatalf("meta part: %+v", got)
	}
	if len(got.images) != 1 || got.images[0] != "" {
		t.Fatalf("want one empty images part, got %q", got.images)
	}

	got = seen{}
	err = c.Multipart(t.Context(), http.MethodPost, "/books", Form{
		JSONField: "books", Meta: in, FileField: "images",
		Files: []File{
			{Name: "/tmp/a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("A")},
			{Name: "b.png", ContentType: "image/png", Body: strings.NewReader("B")},
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.images) != 2 || got.images[0] != "A" || got.images[1] != "B" {
		t.Fatalf("images=%q", got.images)
	}
}

func TestNewRejectsBadScheme(t *testing.T) {
	if _, err := New(Options{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error")
	}
	c, err := New(Options{})
	if err != nil || c.BaseURL() != DefaultBaseURL {
		t.Fatalf("default base=%q err=%v", c.BaseURL(), err)
	}
}

func TestOversizedBodyIsAnError(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at the limit", maxBody, false},
		{"one byte over", maxBody + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				// Valid JSON padded with trailing spaces up to size.
				body := `{"code":1000,"result":{"id":"b1"}}`
				_, _ = io.WriteString(w, body+strings.Repeat(" ", tt.size-len(body)))
			}, Options{})

			var b models.Book
			err := c.Do(t.Context(), http.MethodGet, "/books/b1", nil, nil, &b)
			if tt.wantErr {
				if !errors.Is(err, ErrTooLarge) {
					t.Fatalf("err = %v, want ErrTooLarge", err)
				}
				return
			}
			if err != nil || b.ID != "b1" {
				t.Fatalf("book %+v err %v", b, err)
			}
		})
	}
}
