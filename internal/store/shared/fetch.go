package shared

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/query"
)

// Deps is what every resource service needs. Scope, when set, returns the
// signed-in user id; it partitions cached reads so a shared cache never
// serves one user's "mine" pages to another.
type Deps struct {
	API   *client.Client
	Cache *query.Client
	Scope func() string
}

// Get performs a cached GET. op names the read within its entity and, with
// the query values, forms the cache key.
func Get[T any](ctx context.Context, d Deps, e query.Entity, op, path string, q url.Values) (T, error) {
	op = op + ":" + path
	if d.Scope != nil {
		op += "@" + d.Scope()
	}
	key := query.NewKey(e, op, q)
	return query.Fetch(ctx, d.Cache, key, func(ctx context.Context) (T, error) {
		var out T
		err := d.API.Do(ctx, http.MethodGet, path, q, nil, &out)
		return out, err
	})
}

// Paged adds the 1-based page and size to q (copied).
func Paged(q url.Values, page, size int) url.Values {
	out := url.Values{}
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	out.Set("page", Page(page))
	if size > 0 {
		out.Set("size", strconv.Itoa(size))
	}
	return out
}
