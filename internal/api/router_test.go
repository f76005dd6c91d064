package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/video-stream/autosub/internal/api/middleware"
	"github.com/video-stream/autosub/internal/job"
	"github.com/video-stream/autosub/internal/storage"
)

type recordingLauncher struct {
	mu    sync.Mutex
	tasks []job.Task
}

func (l *recordingLauncher) Launch(task job.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append(l.tasks, task)
}

type testServer struct {
	*httptest.Server
	launcher  *recordingLauncher
	uploadDir string
	outputDir string
	store     *job.Store
}

func newTestServer(t *testing.T, maxBytes int64, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	root := t.TempDir()
	uploadDir := filepath.Join(root, "uploads")
	outputDir := filepath.Join(root, "output")
	staticDir := filepath.Join(root, "public")
	for _, dir := range []string{uploadDir, outputDir, staticDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	_ = os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>autosub</h1>"), 0o644)

	launcher := &recordingLauncher{}
	store := job.NewStore(outputDir)
	router := NewRouter(Deps{
		Uploads:     storage.NewUploads(uploadDir, maxBytes),
		Store:       store,
		Launcher:    launcher,
		RateLimiter: limiter,
		OutputPath:  outputDir,
		StaticDir:   staticDir,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, launcher: launcher, uploadDir: uploadDir, outputDir: outputDir, store: store}
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "ignored")
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, filename, contentType string, content []byte) (*http.Response, map[string]string) {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, contentType, content)
	resp, err := http.Post(s.URL+"/api/upload", ct, body)
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestUploadAccepted(t *testing.T) {
	s := newTestServer(t, 0, nil)
	resp, out := s.upload(t, "Interview.mp3", "audio/mpeg", []byte("ID3 audio bytes"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%v)", resp.StatusCode, out)
	}
	id := out["jobId"]
	if id == "" || out["status"] != "processing" || out["statusUrl"] != "/api/status/"+id {
		t.Fatalf("unexpected response %v", out)
	}
	if len(s.launcher.tasks) != 1 {
		t.Fatalf("expected one launched task, got %d", len(s.launcher.tasks))
	}
	task := s.launcher.tasks[0]
	if task.ID != id || task.OriginalName != "Interview.mp3" || task.MediaPath != filepath.Join(s.uploadDir, id+".mp3") {
		t.Fatalf("unexpected task %+v", task)
	}
	data, err := os.ReadFile(task.MediaPath)
	if err != nil || string(data) != "ID3 audio bytes" {
		t.Fatalf("stored upload = %q, %v", data, err)
	}
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, 16, nil)

	resp, out := s.upload(t, "notes.txt", "text/plain", []byte("hello"))
	if resp.StatusCode != http.StatusBadRequest || out["error"] == "" {
		t.Fatalf("unsupported type: status %d body %v", resp.StatusCode, out)
	}

	resp, out = s.upload(t, "big.wav", "audio/wav", bytes.Repeat([]byte("x"), 17))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("too large: status %d body %v", resp.StatusCode, out)
	}

	body, ct := multipartBody(t, "other", "a.mp3", "audio/mpeg", []byte("x"))
	r, err := http.Post(s.URL+"/api/upload", ct, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing file field: status %d", r.StatusCode)
	}

	r, err = http.Post(s.URL+"/api/upload", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-multipart: status %d", r.StatusCode)
	}

	if len(s.launcher.tasks) != 0 {
		t.Fatalf("rejected uploads launched %d tasks", len(s.launcher.tasks))
	}
	entries, _ := os.ReadDir(s.uploadDir)
	if len(entries) != 0 {
		t.Fatalf("rejected uploads left %d files", len(entries))
	}
}

func TestUploadRateLimited(t *testing.T) {
	s := newTestServer(t, 0, middleware.NewRateLimiter(1, time.Minute))
	if resp, _ := s.upload(t, "a.mp3", "audio/mpeg", []byte("a")); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first upload: %d", resp.StatusCode)
	}
	if resp, _ := s.upload(t, "b.mp3", "audio/mpeg", []byte("b")); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second upload: %d", resp.StatusCode)
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, 0, nil)

	resp, body := get(t, s.URL+"/api/status/unknown-job")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"status":"processing"}` {
		t.Fatalf("absent job: %d %s", resp.StatusCode, body)
	}

	if err := s.store.Save("done", job.Failed("transcription t1 failed: no speech")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want, _ := os.ReadFile(filepath.Join(s.outputDir, "done.json"))
	resp, body = get(t, s.URL+"/api/status/done")
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, want) {
		t.Fatalf("stored job: %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("content type %q", resp.Header.Get("Content-Type"))
	}

	resp, _ = get(t, s.URL+"/api/status/bad.id")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid id: %d", resp.StatusCode)
	}
}

func TestOutputServesSubtitlesAsDownloads(t *testing.T) {
	s := newTestServer(t, 0, nil)
	srt := "1\n00:00:00,000 --> 00:00:01,000\nHello.\n\n"
	_ = os.WriteFile(filepath.Join(s.outputDir, "abc.srt"), []byte(srt), 0o644)
	_ = s.store.Save("abc", job.Failed("x"))

	resp, body := get(t, s.URL+"/output/abc.srt")
	if resp.StatusCode != http.StatusOK || string(body) != srt {
		t.Fatalf("srt download: %d %q", resp.StatusCode, body)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment") {
		t.Fatalf("missing attachment disposition: %q", resp.Header.Get("Content-Disposition"))
	}

	for _, path := range []string{"/output/abc.json", "/output/missing.srt", "/output/..%2fsecret.srt"} {
		if resp, _ := get(t, s.URL+path); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestHealthAndStatic(t *testing.T) {
	s := newTestServer(t, 0, nil)
	resp, body := get(t, s.URL+"/api/health")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"status":"ok"}` {
		t.Fatalf("health: %d %s", resp.StatusCode, body)
	}
	resp, body = get(t, s.URL+"/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "autosub") {
		t.Fatalf("static index: %d %s", resp.StatusCode, body)
	}
}
