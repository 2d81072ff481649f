package httpapi

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"stickerforge/internal/compositor"
	"stickerforge/internal/domain"
	"stickerforge/internal/http/handlers"
	"stickerforge/internal/metrics"
	imageprovider "stickerforge/internal/providers/image"
	"stickerforge/internal/sticker"
)

type stubGenerator struct {
	mu       sync.Mutex
	notReady error
	failures map[string]error
	gate     chan struct{}
	raw      []byte
}

func (g *stubGenerator) Ready() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notReady
}

func (g *stubGenerator) Generate(ctx context.Context, req imageprovider.GenerateRequest) (imageprovider.Asset, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return imageprovider.Asset{}, ctx.Err()
		}
	}
	g.mu.Lock()
	err := g.failures[req.Label]
	g.mu.Unlock()
	if err != nil {
		return imageprovider.Asset{}, err
	}
	return imageprovider.Asset{Data: g.raw, Format: "image/png"}, nil
}

func (g *stubGenerator) setFailure(label string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures == nil {
		g.failures = map[string]error{}
	}
	if err == nil {
		delete(g.failures, label)
		return
	}
	g.failures[label] = err
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.NRGBA{R: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type testEnv struct {
	server  *httptest.Server
	gen     *stubGenerator
	session *sticker.Session
	cancel  context.CancelFunc
}

func newTestEnv(t *testing.T, gen *stubGenerator, rateLimit int, initialLabels ...string) *testEnv {
	t.Helper()
	if gen.raw == nil {
		gen.raw = tinyPNG(t)
	}
	comp, err := compositor.NewDefault(256, 24)
	if err != nil {
		t.Fatalf("compositor: %v", err)
	}
	collector := metrics.NewCollector()
	orch, err := sticker.NewOrchestrator(sticker.Options{Generator: gen, Compositor: comp, Recorder: collector})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	session := sticker.NewSession(orch, initialLabels)
	ctx, cancel := context.WithCancel(context.Background())
	app := handlers.NewApp(ctx, session, nil)
	srv := httptest.NewServer(NewRouter(app, Options{RateLimitPerMin: rateLimit, Metrics: collector.Handler()}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testEnv{server: srv, gen: gen, session: session, cancel: cancel}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) uploadReference(t *testing.T, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()
	return e.do(t, http.MethodPut, "/v1/reference", mw.FormDataContentType(), &buf)
}

func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.session.Orchestrator().Wait(ctx); err != nil {
		t.Fatalf("batch did not finish: %v", err)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type jobsBody struct {
	Jobs  []domain.StickerJob `json:"jobs"`
	Stats struct {
		Total     int     `json:"total"`
		Completed int     `json:"completed"`
		Failed    int     `json:"failed"`
		Processed int     `json:"processed"`
		Percent   float64 `json:"percent"`
	} `json:"stats"`
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, status, body)
	}
	if got := decode[apiError](t, resp); got.Error.Code != code {
		t.Fatalf("error code = %q, want %q (%s)", got.Error.Code, code, got.Error.Message)
	}
}

func TestHealthAndSession(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, 0)

	if resp := env.do(t, http.MethodGet, "/v1/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp := env.do(t, http.MethodGet, "/v1/session", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}
	session := decode[map[string]any](t, resp)
	if labels, _ := session["labels"].([]any); len(labels) != len(domain.DefaultLabels) {
		t.Fatalf("default labels = %v", session["labels"])
	}
	if session["reference"] != nil || session["configured"] != true || session["processing"] != false {
		t.Fatalf("unexpected session: %v", session)
	}
}

func TestSessionReportsMissingCredential(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{notReady: domain.ErrConfiguration}, 0)
	session := decode[map[string]any](t, env.do(t, http.MethodGet, "/v1/session", "", nil))
	if session["configured"] != false || session["warning"] == nil {
		t.Fatalf("unexpected session: %v", session)
	}

	env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))
	expectError(t, env.do(t, http.MethodPost, "/v1/batches", "", nil), http.StatusServiceUnavailable, "not_configured")
	if jobs := env.session.Orchestrator().Jobs(); len(jobs) != 0 {
		t.Fatalf("no jobs should be created: %v", jobs)
	}
}

func TestBatchRequiresReference(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, 0)
	expectError(t, env.do(t, http.MethodPost, "/v1/batches", "", nil), http.StatusBadRequest, "reference_required")
}

func TestReferenceUpload(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, 0)

	resp := env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	ref, ok := env.session.Reference()
	if !ok || ref.MediaType != "image/png" {
		t.Fatalf("reference = %+v, %v", ref, ok)
	}

	expectError(t, env.uploadReference(t, "notes.txt", "text/plain", []byte("hello")), http.StatusUnsupportedMediaType, "unsupported_media_type")
	expectError(t, env.do(t, http.MethodPut, "/v1/reference", "multipart/form-data; boundary=x", strings.NewReader("--x--\r\n")), http.StatusBadRequest, "reference_required")

	if resp := env.do(t, http.MethodDelete, "/v1/reference", "", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if _, ok := env.session.Reference(); ok {
		t.Fatal("reference should be cleared")
	}
}

func TestBatchLifecycle(t *testing.T) {
	gen := &stubGenerator{}
	gen.setFailure("Sad", domain.NewTextResponseError("I cannot do that"))
	env := newTestEnv(t, gen, 0, "Happy", "Sad", "Thumbs Up")
	env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))

	resp := env.do(t, http.MethodPost, "/v1/batches", "", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("batch status = %d", resp.StatusCode)
	}
	started := decode[jobsBody](t, resp)
	if len(started.Jobs) != 3 || started.Stats.Total != 3 {
		t.Fatalf("started = %+v", started)
	}
	for _, job := range started.Jobs {
		if job.Status != domain.JobStatusPending {
			t.Fatalf("new job %s is %s", job.Label, job.Status)
		}
	}
	env.wait(t)

	list := decode[jobsBody](t, env.do(t, http.MethodGet, "/v1/jobs", "", nil))
	if list.Stats.Completed != 2 || list.Stats.Failed != 1 || list.Stats.Processed != 3 || list.Stats.Percent != 100 {
		t.Fatalf("stats = %+v", list.Stats)
	}
	sad := list.Jobs[1]
	if sad.Status != domain.JobStatusFailed || !strings.HasPrefix(sad.ErrorMessage, "AI returned text instead of image") {
		t.Fatalf("sad job = %+v", sad)
	}

	job := decode[domain.StickerJob](t, env.do(t, http.MethodGet, "/v1/jobs/"+list.Jobs[0].ID, "", nil))
	if job.Status != domain.JobStatusCompleted || !strings.HasPrefix(job.FinalImage, "data:image/png;base64,") {
		t.Fatalf("job = %+v", job)
	}

	img := env.do(t, http.MethodGet, "/v1/jobs/"+list.Jobs[2].ID+"/image", "", nil)
	if img.StatusCode != http.StatusOK || img.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("image status = %d, type %q", img.StatusCode, img.Header.Get("Content-Type"))
	}
	if cd := img.Header.Get("Content-Disposition"); !strings.Contains(cd, `sticker_Thumbs Up.png`) {
		t.Fatalf("content disposition = %q", cd)
	}
	decoded, err := png.Decode(img.Body)
	if err != nil || decoded.Bounds().Dx() != 256 {
		t.Fatalf("sticker png: %v %v", err, decoded)
	}
	expectError(t, env.do(t, http.MethodGet, "/v1/jobs/"+sad.ID+"/image", "", nil), http.StatusConflict, "not_completed")

	pack := env.do(t, http.MethodGet, "/v1/pack.zip", "", nil)
	if pack.StatusCode != http.StatusOK || !strings.Contains(pack.Header.Get("Content-Disposition"), "telegram_sticker_pack.zip") {
		t.Fatalf("pack status = %d, disposition %q", pack.StatusCode, pack.Header.Get("Content-Disposition"))
	}
	data, _ := io.ReadAll(pack.Body)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "sticker_pack/happy.png,sticker_pack/thumbs_up.png" {
		t.Fatalf("archive entries = %v", names)
	}

	metricsResp := env.do(t, http.MethodGet, "/metrics", "", nil)
	body, _ := io.ReadAll(metricsResp.Body)
	if !strings.Contains(string(body), `stickerforge_jobs_failed_total{reason="unexpected_text"} 1`) {
		t.Fatalf("metrics missing failure counter:\n%s", body)
	}
}

func TestRetryEndpoint(t *testing.T) {
	gen := &stubGenerator{}
	gen.setFailure("Sad", errors.New("overloaded"))
	env := newTestEnv(t, gen, 0, "Sad")
	env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))
	env.do(t, http.MethodPost, "/v1/batches", "", nil)
	env.wait(t)

	jobs := env.session.Orchestrator().Jobs()
	if jobs[0].Status != domain.JobStatusFailed {
		t.Fatalf("setup: %+v", jobs[0])
	}
	gen.setFailure("Sad", nil)

	resp := env.do(t, http.MethodPost, "/v1/jobs/"+jobs[0].ID+"/retry", "", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("retry status = %d", resp.StatusCode)
	}
	if claimed := decode[domain.StickerJob](t, resp); claimed.Status != domain.JobStatusGenerating || claimed.ErrorMessage != "" {
		t.Fatalf("claimed = %+v", claimed)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := env.session.Orchestrator().Job(jobs[0].ID)
		if err != nil {
			t.Fatalf("job lookup: %v", err)
		}
		if job.Status == domain.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("retry did not complete: %+v", job)
		}
		time.Sleep(10 * time.Millisecond)
	}

	expectError(t, env.do(t, http.MethodPost, "/v1/jobs/missing/retry", "", nil), http.StatusNotFound, "not_found")
	expectError(t, env.do(t, http.MethodGet, "/v1/jobs/missing", "", nil), http.StatusNotFound, "not_found")
}

func TestLabelsEndpoint(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	env := newTestEnv(t, gen, 0)

	resp := env.do(t, http.MethodPut, "/v1/labels", "application/json", strings.NewReader(`{"labels":[" Happy ","","Sad"]}`))
	if got := decode[map[string][]string](t, resp)["labels"]; strings.Join(got, ",") != "Happy,Sad" {
		t.Fatalf("labels = %v", got)
	}
	resp = env.do(t, http.MethodPut, "/v1/labels", "text/plain; charset=utf-8", strings.NewReader("Cool\n\n  Party \r\nLOL\n"))
	if got := decode[map[string][]string](t, resp)["labels"]; strings.Join(got, ",") != "Cool,Party,LOL" {
		t.Fatalf("labels = %v", got)
	}
	if got := decode[map[string][]string](t, env.do(t, http.MethodGet, "/v1/labels", "", nil))["labels"]; len(got) != 3 {
		t.Fatalf("GET labels = %v", got)
	}
	expectError(t, env.do(t, http.MethodPut, "/v1/labels", "text/plain", strings.NewReader("\n \n")), http.StatusBadRequest, "invalid_labels")

	env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))
	if resp := env.do(t, http.MethodPost, "/v1/batches", "", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("batch status = %d", resp.StatusCode)
	}
	expectError(t, env.do(t, http.MethodPut, "/v1/labels", "text/plain", strings.NewReader("Other")), http.StatusConflict, "batch_running")
	expectError(t, env.do(t, http.MethodPost, "/v1/batches", "", nil), http.StatusConflict, "batch_running")
	close(gen.gate)
	env.wait(t)
}

func TestPackWithNothingCompleted(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, 0)
	expectError(t, env.do(t, http.MethodGet, "/v1/pack.zip", "", nil), http.StatusNotFound, "nothing_to_export")
}

func TestRateLimitOnBatches(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, 1, "Happy")
	env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))
	if resp := env.do(t, http.MethodPost, "/v1/batches", "", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first batch status = %d", resp.StatusCode)
	}
	env.wait(t)
	expectError(t, env.do(t, http.MethodPost, "/v1/batches", "", nil), http.StatusTooManyRequests, "rate_limited")
	if resp := env.do(t, http.MethodGet, "/v1/session", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reads must not be limited, status = %d", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, 0, "Happy")
	env.uploadReference(t, "ref.png", "image/png", tinyPNG(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() (string, map[string]any) {
		t.Helper()
		var name string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				var payload map[string]any
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				return name, payload
			}
		}
	}

	if name, _ := next(); name != "reset" {
		t.Fatalf("first event = %q, want snapshot reset", name)
	}
	if resp := env.do(t, http.MethodPost, "/v1/batches", "", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("batch status = %d", resp.StatusCode)
	}

	var statuses []string
	for len(statuses) < 2 {
		name, payload := next()
		if name != "transition" {
			continue
		}
		job := payload["job"].(map[string]any)
		if _, ok := job["final_image"]; ok {
			t.Fatal("stream events must not carry image payloads")
		}
		statuses = append(statuses, job["status"].(string))
	}
	if strings.Join(statuses, ",") != "generating,completed" {
		t.Fatalf("statuses = %v", statuses)
	}
}
