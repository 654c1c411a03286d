package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/b2b/internal/step"
)

const home = `<html><head><title>Shop</title></head><body>
<h1>Welcome</h1>
<script>var hidden = "do not read";</script>
<a href="/about">About us</a>
<button data-clipboard-text="/about?ref=share">Copy share link</button>
<form role="search" action="/search">
  <input type="search" name="q" placeholder="Search products">
  <button type="submit">Go</button>
</form>
<form method="post" action="/login">
  <label for="user">Username</label>
  <input id="user" name="username">
  <label>Password <input type="password" name="password"></label>
  <input type="hidden" name="token" value="abc">
  <input type="checkbox" name="remember" checked>
  <button type="submit" name="action" value="login">Sign in</button>
</form>
</body></html>`

const upload = `<html><body>
<form method="post" action="/upload" enctype="multipart/form-data">
  <input type="file" name="attachment">
  <input type="submit" value="Upload">
</form>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, home)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>About page ref=%s</p></body></html>", r.URL.Query().Get("ref"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>Results for %s</p></body></html>", r.URL.Query().Get("q"))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		http.SetCookie(w, &http.Cookie{Name: "user", Value: r.PostForm.Get("username")})
		fmt.Fprintf(w, "<html><body>user=%s password=%s token=%s remember=%s action=%s</body></html>",
			r.PostForm.Get("username"), r.PostForm.Get("password"), r.PostForm.Get("token"),
			r.PostForm.Get("remember"), r.PostForm.Get("action"))
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("user")
		if err != nil {
			fmt.Fprint(w, "<html><body>anonymous</body></html>")
			return
		}
		fmt.Fprintf(w, "<html><body>signed in as %s</body></html>", c.Value)
	})
	mux.HandleFunc("/upload-form", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, upload)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f, h, err := r.FormFile("attachment")
		require.NoError(t, err)
		defer f.Close()
		content, err := io.ReadAll(f)
		require.NoError(t, err)
		fmt.Fprintf(w, "<html><body>uploaded %s: %s</body></html>", h.Filename, content)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/about", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openSession(t *testing.T, opts Options) (*Pool, *Session) {
	t.Helper()
	pool, err := NewPool(opts)
	require.NoError(t, err)
	s, err := pool.Open(context.Background(), "Shop", "Browsing", filepath.Join(t.TempDir(), "shop.feature"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool, s
}

func TestSession_NavigateRelativeToBase(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})

	require.NoError(t, s.Navigate(context.Background(), "/"))

	assert.Equal(t, "Shop", s.Title())
	assert.Equal(t, srv.URL+"/", s.URL())
	assert.True(t, s.Contains("welcome"))
	assert.False(t, s.Contains("do not read"))
}

func TestSession_NavigateFollowsRedirects(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{})

	require.NoError(t, s.Navigate(context.Background(), srv.URL+"/redirect"))

	assert.Equal(t, srv.URL+"/about", s.URL())
}

func TestSession_NavigateErrorStatus(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})

	err := s.Navigate(context.Background(), "/missing")

	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.Contains(t, err.Error(), "404")
}

func TestSession_ClickLink(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})
	require.NoError(t, s.Navigate(context.Background(), "/"))

	require.NoError(t, s.Click(context.Background(), "about"))

	assert.Equal(t, srv.URL+"/about", s.URL())
}

func TestSession_ClickUnknown(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})
	require.NoError(t, s.Navigate(context.Background(), "/"))

	assert.ErrorIs(t, s.Click(context.Background(), "checkout"), ErrNotFound)
}

func TestSession_ActionsNeedAPage(t *testing.T) {
	_, s := openSession(t, Options{})

	assert.ErrorIs(t, s.Click(context.Background(), "x"), ErrNoPage)
	assert.ErrorIs(t, s.Type("x", "y"), ErrNoPage)
	assert.ErrorIs(t, s.Reload(context.Background()), ErrNoPage)
	assert.ErrorIs(t, s.OpenClipboard(context.Background()), ErrEmptyClip)
}

func TestSession_SubmitForm(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, "/"))

	require.NoError(t, s.Type("Username", "ada"))
	require.NoError(t, s.Type("password", "secret"))
	v, err := s.Value("username")
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	require.NoError(t, s.Click(ctx, "Sign in"))
	assert.Equal(t, "user=ada password=secret token=abc remember=on action=login", s.Text())

	require.NoError(t, s.Navigate(ctx, "/whoami"))
	assert.Equal(t, "signed in as ada", s.Text())
}

const signup = `<html><body>
<form method="post" action="/signup">
  <label for="email">Email</label><input id="email" name="email">
  <button>Sign up</button>
</form>
</body></html>`

func TestSession_FormPostIsNotRetried(t *testing.T) {
	var posts, gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
			http.Error(w, "database is down", http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/flaky" {
			gets.Add(1)
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, signup)
	}))
	t.Cleanup(srv.Close)
	_, s := openSession(t, Options{BaseURL: srv.URL, Retries: 2})
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, "/"))
	require.NoError(t, s.Type("Email", "ada@example.com"))

	err := s.Click(ctx, "Sign up")

	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.Equal(t, int32(1), posts.Load())

	assert.ErrorIs(t, s.Navigate(ctx, "/flaky"), ErrHTTPStatus)
	assert.Equal(t, int32(3), gets.Load(), "GET keeps the configured retries")
}

func TestSession_Search(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})
	require.NoError(t, s.Navigate(context.Background(), "/"))

	require.NoError(t, s.Search(context.Background(), "red shoes"))

	assert.Equal(t, "Results for red shoes", s.Text())
}

func TestSession_Clipboard(t *testing.T) {
	srv := newServer(t)
	_, s := openSession(t, Options{BaseURL: srv.URL})
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, "/"))

	require.NoError(t, s.Click(ctx, "Copy share link"))
	assert.Equal(t, "/about?ref=share", s.Clipboard())
	assert.Equal(t, srv.URL+"/", s.URL(), "copying does not navigate")

	require.NoError(t, s.OpenClipboard(ctx))
	assert.Equal(t, "About page ref=share", s.Text())

	require.NoError(t, s.Navigate(ctx, "/"))
	require.NoError(t, s.CopyLink("About us"))
	assert.Equal(t, srv.URL+"/about", s.Clipboard())
}

func TestSession_UploadRelativeToFeature(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("hello"), 0o644))

	pool, err := NewPool(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	defer pool.Close()
	s, err := pool.Open(context.Background(), "Upload", "Attach", filepath.Join(dir, "upload.feature"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, "/upload-form"))
	assert.Error(t, s.SetFile("missing.txt"))
	require.NoError(t, s.SetFile("note.txt"))
	require.NoError(t, s.Click(ctx, "Upload"))

	assert.Equal(t, "uploaded note.txt: hello", s.Text())
}

func TestSession_Snapshot(t *testing.T) {
	srv := newServer(t)
	failures := t.TempDir()
	_, s := openSession(t, Options{BaseURL: srv.URL, FailureDir: failures})

	path, err := s.Snapshot(context.Background(), "before load")
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, s.Navigate(context.Background(), "/"))
	path, err = s.Snapshot(context.Background(), "Shop: Browsing")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(failures, "Shop_ Browsing.html"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<title>Shop</title>")
}

func TestSession_RecordingRenamedOnFailure(t *testing.T) {
	srv := newServer(t)
	recordings := t.TempDir()
	pool, err := NewPool(Options{BaseURL: srv.URL, RecordingsDir: recordings, Record: true})
	require.NoError(t, err)
	ctx := context.Background()

	passing, err := pool.Open(ctx, "Shop", "Passes", "shop.feature")
	require.NoError(t, err)
	require.NoError(t, passing.Navigate(ctx, "/"))
	require.NoError(t, passing.Close(false))

	failing, err := pool.Open(ctx, "Shop", "Fails", "shop.feature")
	require.NoError(t, err)
	require.NoError(t, failing.Navigate(ctx, "/"))
	require.NoError(t, failing.Close(true))

	assert.FileExists(t, filepath.Join(recordings, "Shop", "Passes.log"))
	assert.FileExists(t, filepath.Join(recordings, "Shop", "Fails.failed.log"))
	assert.NoFileExists(t, filepath.Join(recordings, "Shop", "Fails.log"))

	log, err := os.ReadFile(filepath.Join(recordings, "Shop", "Passes.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), srv.URL+"/ 200")
}

func TestPool_CloseReleasesLeakedSessions(t *testing.T) {
	pool, err := NewPool(Options{})
	require.NoError(t, err)
	ctx := context.Background()

	a, err := pool.Open(ctx, "F", "A", "f.feature")
	require.NoError(t, err)
	_, err = pool.Open(ctx, "F", "B", "f.feature")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())

	require.NoError(t, a.Close(false))
	require.NoError(t, a.Close(false))
	assert.Equal(t, 1, pool.Len())

	require.NoError(t, pool.Close())
	assert.Equal(t, 0, pool.Len())

	_, err = pool.Open(ctx, "F", "C", "f.feature")
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestFrom(t *testing.T) {
	_, s := openSession(t, Options{})

	got, err := From(step.Context{Session: s})
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = From(step.Context{})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b_c", SafeName("a/b:c"))
	assert.Equal(t, "_", SafeName("  "))
	assert.Equal(t, "_", SafeName(".."))
}
