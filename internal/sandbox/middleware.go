package sandbox

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyAccount
)

var ridRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

type middleware func(http.Handler) http.Handler

// chain applies mws so the first one is outermost.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requestID keeps a well-formed X-Request-ID from the caller or mints one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if !ridRe.MatchString(rid) {
			rid = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, rid))
		r.Header.Set("X-Request-ID", rid)
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

func requestIDFrom(r *http.Request) string {
	if v, _ := r.Context().Value(ctxKeyRequestID).(string); v != "" {
		return v
	}
	return r.Header.Get("X-Request-ID")
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				rid := requestIDFrom(r)
				if rid == "" {
					rid = "unknown"
				}
				log.Printf("[sandbox][PANIC] RequestID=%s URL=%s %s: %v\n%s",
					rid, r.Method, r.URL.Path, err, debug.Stack())
				fail(w, http.StatusInternalServerError, codeUncategorized, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// bodyLimit caps request bodies on writes. A declared length over the cap is
// refused before the handler runs.
func bodyLimit(limit int64) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				if r.ContentLength > limit {
					fail(w, http.StatusRequestEntityTooLarge, codeInvalid, "Request body too large")
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// apiHeaders marks every response uncacheable and stamps X-Response-Time
// before the first byte goes out.
func apiHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		rw := &rtWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(rw, r)
		rw.stamp()
	})
}

type rtWriter struct {
	http.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *rtWriter) stamp() {
	if !w.stamped {
		w.Header().Set("X-Response-Time", time.Since(w.start).String())
		w.stamped = true
	}
}

func (w *rtWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *rtWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// accessLog prints one line per request when enabled.
func accessLog(enabled bool) middleware {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			log.Printf("[sandbox] %s %s %d %s rid=%s", r.Method, r.URL.RequestURI(), sw.status,
				time.Since(start).Round(time.Microsecond), requestIDFrom(r))
		})
	}
}

func bearer(h string) (string, bool) {
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

// requireAuth verifies the bearer token, rejects revoked tokens and inactive
// accounts, then injects the caller's account into the context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if raw == "" {
			fail(w, http.StatusUnauthorized, codeUnauthenticated, "Unauthenticated")
			return
		}
		tok, ok := bearer(raw)
		if !ok {
			fail(w, http.StatusUnauthorized, codeUnauthenticated, "Invalid Authorization header")
			return
		}
		claims, err := s.tokens.parse(tok)
		if err != nil {
			fail(w, http.StatusUnauthorized, codeUnauthenticated, "Invalid or expired token")
			return
		}
		s.mu.Lock()
		revoked := s.revoked[claims.ID]
		acct, found := s.users[claims.Subject]
		active := found && acct.Status == statusActive
		s.mu.Unlock()
		if revoked {
			fail(w, http.StatusUnauthorized, codeUnauthenticated, "Token has been revoked")
			return
		}
		if !active {
			fail(w, http.StatusUnauthorized, codeUnauthenticated, "User not found")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyAccount, caller{ID: acct.ID, StudentCode: acct.StudentCode, Admin: acct.isAdmin()})
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin wraps requireAuth and checks the caller's role.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !callerFrom(r).Admin {
			fail(w, http.StatusForbidden, codeUnauthorized, "You do not have permission")
			return
		}
		next(w, r)
	})
}

// caller is the authenticated principal of a request.
type caller struct {
	ID          string
	StudentCode string
	Admin       bool
}

func callerFrom(r *http.Request) caller {
	c, _ := r.Context().Value(ctxKeyAccount).(caller)
	return c
}

// canSee lets admins read anything and users read their own records.
func (c caller) canSee(ownerID string) bool { return c.Admin || c.ID == ownerID }
