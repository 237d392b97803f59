package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/logging"
	"github.com/ibeckermayer/postcycle/internal/metrics"
	"github.com/ibeckermayer/postcycle/internal/store"
)

const trendPage = `<html><body><div class="list-container"><ol>
<li><a href="/t/1">Nairobi</a></li>
<li><a href="/t/2">#Kenya</a></li>
</ol></div></body></html>`

// platform fakes every external service the cycle talks to
type platform struct {
	mu     sync.Mutex
	posts  map[string]string
	failFB bool
}

func (p *platform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/trends/"):
		io.WriteString(w, trendPage)

	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Beautiful gardens start here 🌿"}]}}]}`)

	case r.URL.Path == "/graph/page-1/feed":
		if p.failFB {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"(#200) permissions error"}}`)
			return
		}
		r.ParseForm()
		p.record("facebook", r.PostForm.Get("message"))
		io.WriteString(w, `{"id":"page-1_1"}`)

	case r.URL.Path == "/2/tweets":
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		p.record("twitter", body.Text)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"tw-1"}}`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *platform) record(channel, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts[channel] = msg
}

func testConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg := config.Default()
	cfg.Trends.URLTemplate = srv.URL + "/trends/%s/"
	cfg.Generation.APIKey = "gemini-key"
	cfg.Generation.Endpoint = srv.URL + "/gemini"
	cfg.Facebook.PageID = "page-1"
	cfg.Facebook.AccessToken = "fb-token"
	cfg.Facebook.GraphURL = srv.URL + "/graph"
	cfg.Twitter = config.TwitterConfig{
		APIKey:            "ck",
		APISecret:         "cs",
		AccessToken:       "at",
		AccessTokenSecret: "as",
		APIURL:            srv.URL + "/2",
		UploadURL:         srv.URL + "/upload",
	}
	cfg.HTTP.RequestsPerMinute = 0
	cfg.Debug.CacheSteps = true
	cfg.Report.Journal = true
	cfg.Report.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunCycleEndToEnd(t *testing.T) {
	p := &platform{posts: map[string]string{}}
	srv := httptest.NewServer(p)
	defer srv.Close()

	cfg := testConfig(t, srv)
	m := metrics.New()
	a, err := New(cfg, logging.Discard(), Options{Seed: 7, Metrics: m, HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer a.Close()

	r, err := a.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Outcomes, 2)
	assert.Equal(t, 2, r.Succeeded(), "%+v", r.Outcomes)
	assert.Equal(t, 2, r.TrendCount)
	assert.Equal(t, "page-1_1", r.Outcomes[0].ExternalID)
	assert.Equal(t, "tw-1", r.Outcomes[1].ExternalID)

	fb := p.posts["facebook"]
	assert.True(t, strings.HasPrefix(fb, "Beautiful gardens start here 🌿"))
	assert.True(t, strings.HasSuffix(fb, cfg.Channels[0].CTA))

	tw := p.posts["twitter"]
	assert.True(t, strings.HasSuffix(tw, "#Nairobi #Kenya"), tw)
	assert.Contains(t, tw, cfg.Channels[1].CTA)
	assert.LessOrEqual(t, len([]rune(tw)), 280)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("twitter", "success", "")))

	stats, err := a.Stats(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].Successes)

	cache := store.NewCache(filepath.Join(os.Getenv("XDG_CACHE_HOME"), "postcycle"))
	_, path, err := store.LoadLatestStepOutput[map[string]any](cache, store.StepReport)
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	html, err := cache.LatestStepFile(store.StepReport, ".html")
	require.NoError(t, err)
	assert.NotEmpty(t, html)
}

func TestRunCycleIsolatesFailingChannel(t *testing.T) {
	p := &platform{posts: map[string]string{}, failFB: true}
	srv := httptest.NewServer(p)
	defer srv.Close()

	a, err := New(testConfig(t, srv), logging.Discard(), Options{HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer a.Close()

	r, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, r.Outcomes, 2)
	assert.False(t, r.Outcomes[0].Success)
	assert.Equal(t, "auth", string(r.Outcomes[0].Error))
	assert.True(t, r.Outcomes[1].Success)
}

func TestDryRunPublishesNothing(t *testing.T) {
	p := &platform{posts: map[string]string{}}
	srv := httptest.NewServer(p)
	defer srv.Close()

	cfg := testConfig(t, srv)
	a, err := New(cfg, logging.Discard(), Options{DryRun: true, HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer a.Close()

	r, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Succeeded())
	assert.Empty(t, p.posts)
	assert.False(t, cfg.Debug.DryRun, "caller's config must not change")
}

func TestPlanAndTrends(t *testing.T) {
	srv := httptest.NewServer(&platform{posts: map[string]string{}})
	defer srv.Close()

	cfg := testConfig(t, srv)
	cfg.Report.Journal = false
	a, err := New(cfg, logging.Discard(), Options{Seed: 1, HTTPClient: srv.Client()})
	require.NoError(t, err)

	plan, err := a.Plan()
	require.NoError(t, err)
	assert.False(t, plan.UseMedia)
	assert.Len(t, plan.TopicsByChannel, 2)

	trends, err := a.FetchTrends(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Nairobi", "#Kenya"}, trends)

	_, err = a.Stats(context.Background(), time.Time{})
	assert.Error(t, err)
}
