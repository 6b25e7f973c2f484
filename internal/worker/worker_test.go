package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkpipe/internal/model"
	"github.com/sells-group/linkpipe/internal/queue"
	"github.com/sells-group/linkpipe/internal/scrape"
	"github.com/sells-group/linkpipe/internal/store"
)

// fakeStore implements store.Store with overridable behavior per test.
type fakeStore struct {
	store.Store

	claimResult bool
	claimErr    error
	claimed     []int64

	scrapedRaw  *model.RawScrape
	scrapedErr  error
	failedID    int64
	failedMsg   string
	failedCalls int

	reclaimed  int64
	reclaimTTL time.Duration
}

func (f *fakeStore) ClaimLink(ctx context.Context, linkID int64) (bool, error) {
	f.claimed = append(f.claimed, linkID)
	return f.claimResult, f.claimErr
}

func (f *fakeStore) MarkScraped(ctx context.Context, raw model.RawScrape) error {
	f.scrapedRaw = &raw
	return f.scrapedErr
}

func (f *fakeStore) MarkFailed(ctx context.Context, linkID int64, errMsg string, backoff time.Duration, maxAttempts int) error {
	f.failedCalls++
	f.failedID = linkID
	f.failedMsg = errMsg
	return nil
}

func (f *fakeStore) ReclaimStale(ctx context.Context, ttl time.Duration) (int64, error) {
	f.reclaimTTL = ttl
	return f.reclaimed, nil
}

// fakeScraper returns a canned result or error.
type fakeScraper struct {
	res    *scrape.Result
	err    error
	visits int
}

func (f *fakeScraper) Scrape(ctx context.Context, url string, kind model.Classification) (*scrape.Result, error) {
	f.visits++
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeScraper) Name() string { return "fake" }

func newWorker(t *testing.T, st *fakeStore, sc *fakeScraper) *Worker {
	t.Helper()
	return New(st, nil, sc, Artifacts{Root: t.TempDir()}, Options{
		Backoff:     30 * time.Minute,
		MaxAttempts: 10,
	})
}

func TestProcess_Success(t *testing.T) {
	st := &fakeStore{claimResult: true}
	sc := &fakeScraper{res: &scrape.Result{
		URL:         "https://linkedin.com/jobs/view/9",
		Title:       "Backend Engineer",
		Company:     "Acme",
		Location:    "Remote",
		PostedTime:  "2 days ago",
		Description: "build things",
		HTML:        "<html>page</html>",
		Screenshot:  []byte{0x89, 0x50},
	}}
	w := newWorker(t, st, sc)

	task := model.ScrapeTask{LinkID: 9, URL: "https://linkedin.com/jobs/view/9", Attempt: 0}
	require.NoError(t, w.Process(context.Background(), task, model.ClassJob))

	assert.Equal(t, []int64{9}, st.claimed)
	require.NotNil(t, st.scrapedRaw)
	assert.Equal(t, int64(9), st.scrapedRaw.LinkID)
	assert.Equal(t, "Backend Engineer", st.scrapedRaw.RoleTitle)
	assert.Equal(t, "Acme", st.scrapedRaw.CompanyName)
	assert.Equal(t, "success", st.scrapedRaw.ScrapeStatus)

	// Artifacts landed on disk at the recorded paths.
	html, err := os.ReadFile(st.scrapedRaw.HTMLPath)
	require.NoError(t, err)
	assert.Equal(t, "<html>page</html>", string(html))
	_, err = os.Stat(st.scrapedRaw.ScreenshotPath)
	require.NoError(t, err)

	assert.Zero(t, st.failedCalls)
}

func TestProcess_LostClaimSkips(t *testing.T) {
	st := &fakeStore{claimResult: false}
	sc := &fakeScraper{}
	w := newWorker(t, st, sc)

	task := model.ScrapeTask{LinkID: 3, URL: "https://linkedin.com/jobs/view/3"}
	require.NoError(t, w.Process(context.Background(), task, model.ClassJob))

	assert.Zero(t, sc.visits, "lost claim must not scrape")
	assert.Nil(t, st.scrapedRaw)
	assert.Zero(t, st.failedCalls)
}

func TestProcess_ScrapeFailureMarksFailed(t *testing.T) {
	st := &fakeStore{claimResult: true}
	sc := &fakeScraper{err: assert.AnError}
	w := newWorker(t, st, sc)

	task := model.ScrapeTask{LinkID: 7, URL: "https://linkedin.com/jobs/view/7"}
	require.NoError(t, w.Process(context.Background(), task, model.ClassJob))

	assert.Equal(t, 1, st.failedCalls)
	assert.Equal(t, int64(7), st.failedID)
	assert.Contains(t, st.failedMsg, assert.AnError.Error())
	assert.Nil(t, st.scrapedRaw)
}

func TestProcess_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	st := &fakeStore{claimResult: true}
	sc := &fakeScraper{err: assert.AnError}
	w := newWorker(t, st, sc)

	task := model.ScrapeTask{LinkID: 5, URL: "https://linkedin.com/jobs/view/5"}
	for i := 0; i < 6; i++ {
		require.NoError(t, w.Process(context.Background(), task, model.ClassJob))
	}

	// All six tasks fail, but the sixth is rejected by the open circuit
	// without reaching the scraper.
	assert.Equal(t, 6, st.failedCalls)
	assert.Equal(t, 5, sc.visits)
}

func TestProcess_ClaimError(t *testing.T) {
	st := &fakeStore{claimErr: assert.AnError}
	w := newWorker(t, st, &fakeScraper{})

	err := w.Process(context.Background(), model.ScrapeTask{LinkID: 1}, model.ClassJob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim link 1")
}

func TestProcess_MarkScrapedErrorPropagates(t *testing.T) {
	st := &fakeStore{claimResult: true, scrapedErr: assert.AnError}
	sc := &fakeScraper{res: &scrape.Result{HTML: "<html></html>"}}
	w := newWorker(t, st, sc)

	err := w.Process(context.Background(), model.ScrapeTask{LinkID: 2, URL: "u"}, model.ClassPost)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark link 2 scraped")
}

// blockingBroker parks every Pop until the context ends, like a consumer
// waiting on empty queues.
type blockingBroker struct {
	queue.Broker
}

func (b *blockingBroker) Pop(ctx context.Context, wait time.Duration, queues ...string) (model.ScrapeTask, string, error) {
	<-ctx.Done()
	return model.ScrapeTask{}, "", ctx.Err()
}

// Shutdown by signal is not an error; callers get nil back.
func TestRun_CancellationReturnsNil(t *testing.T) {
	w := New(&fakeStore{}, &blockingBroker{}, &fakeScraper{}, Artifacts{Root: t.TempDir()}, Options{
		Concurrency: 2,
		PopWait:     time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, w.Run(ctx))
}

func TestReclaim(t *testing.T) {
	st := &fakeStore{reclaimed: 4}
	w := newWorker(t, st, &fakeScraper{})

	require.NoError(t, w.Reclaim(context.Background(), 30*time.Minute))
	assert.Equal(t, 30*time.Minute, st.reclaimTTL)
}
