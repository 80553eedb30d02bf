package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.failPut {
		return errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PresignedURL(ctx context.Context, key string) (string, error) {
	return "https://assets.example.com/portfolio/" + key + "?sig=test", nil
}

func newRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterRoutes(g, store)
	return g
}

func uploadRequest(t *testing.T, folder, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if folder != "" {
		require.NoError(t, mw.WriteField("folder", folder))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadThenRedirect(t *testing.T) {
	store := newFakeStore()
	g := newRouter(store)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, uploadRequest(t, "projects", "cover.png", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"key":"projects/`)

	var key string
	for k := range store.objects {
		key = k
	}
	require.True(t, strings.HasPrefix(key, "projects/"))
	require.Equal(t, "image/png", store.types[key])
	require.Equal(t, []byte("png-bytes"), store.objects[key])

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/assets/"+key, nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, "https://assets.example.com/portfolio/"+key+"?sig=test", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/assets/"+key, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/assets/"+key, nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsBadInput(t *testing.T) {
	g := newRouter(newFakeStore())

	w := httptest.NewRecorder()
	g.ServeHTTP(w, uploadRequest(t, "", "script.js", []byte("x")))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, uploadRequest(t, "../etc", "a.png", []byte("x")))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failPut = true
	w := httptest.NewRecorder()
	newRouter(store).ServeHTTP(w, uploadRequest(t, "", "me.jpg", []byte("x")))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetRejectsInvalidKeys(t *testing.T) {
	g := newRouter(newFakeStore())
	for _, p := range []string{"/api/assets/notes.txt", "/api/assets/a//b.png"} {
		w := httptest.NewRecorder()
		g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusBadRequest, w.Code, p)
	}
}
