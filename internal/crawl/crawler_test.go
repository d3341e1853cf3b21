package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fixit3d/internal/catalog"
	"github.com/ppiankov/fixit3d/internal/classify"
	"github.com/ppiankov/fixit3d/internal/geometry"
	"github.com/ppiankov/fixit3d/internal/model"
	"github.com/ppiankov/fixit3d/internal/source"
)

type fakeAdapter struct {
	name       string
	honorsSort bool
	pages      map[string][]source.Page
	errs       map[string]error
	calls      []source.Query
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		name:       "thingiverse",
		honorsSort: true,
		pages:      make(map[string][]source.Page),
		errs:       make(map[string]error),
	}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Capabilities() source.Capabilities {
	return source.Capabilities{HonorsSort: f.honorsSort, Pagination: source.PaginationPage}
}

func (f *fakeAdapter) FetchPage(ctx context.Context, q source.Query) (source.Page, error) {
	f.calls = append(f.calls, q)
	if err := f.errs[q.Term]; err != nil {
		return source.Page{}, err
	}
	pages := f.pages[q.Term]
	if q.Page > len(pages) {
		return source.Page{}, nil
	}
	return pages[q.Page-1], nil
}

func listing(id int, name string) model.Listing {
	return model.Listing{
		Source:     "thingiverse",
		ExternalID: fmt.Sprint(id),
		Name:       name,
		ImageURL:   fmt.Sprintf("https://cdn/%d.jpg", id),
		Popularity: id,
	}
}

func testClassifier() *classify.Classifier {
	rules := classify.DefaultRules()
	return classify.NewClassifier(rules, classify.NewRandomEstimator(7, rules.SmallKeywords, rules.LargeKeywords))
}

func singleTermPlan(bucket model.Bucket, category string, brand bool, terms ...string) Plan {
	return Plan{Groups: []Group{{
		Bucket:     bucket,
		Categories: []Category{{Name: category, Brand: brand, Terms: terms}},
	}}}
}

func priorWith(t *testing.T, ids ...int) *catalog.Catalog {
	t.Helper()
	batch := make([]catalog.Candidate, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, catalog.Candidate{
			Listing: listing(id, "Bosch gear"),
			Result:  model.Result{Verdict: model.VerdictAdmit, Bucket: model.BucketSpareParts},
		})
	}
	prior, inserted := catalog.Merge(nil, batch, testTime)
	require.Equal(t, len(ids), inserted)
	return prior
}

func ids(cands []catalog.Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Identity().String())
	}
	return out
}

func TestCrawl_IncrementalStopsAtFirstKnown(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.pages["Bosch spare part"] = []source.Page{{
		Listings: []model.Listing{
			listing(105, "Bosch mixer gear"),
			listing(104, "Bosch dishwasher wheel"),
			listing(100, "Bosch knob"),
			listing(99, "Bosch hinge"),
		},
		HasMore: true,
	}}

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "Bosch", true, "Bosch spare part"),
		testClassifier(), Options{Strategy: StrategyIncremental}, nil)

	cands, stats := crawler.Crawl(context.Background(), adapter, priorWith(t, 100))

	assert.Equal(t, []string{"thingiverse:105", "thingiverse:104"}, ids(cands))
	assert.Equal(t, 1, stats.EarlyStops)
	assert.Equal(t, 3, stats.Listings, "listing 99 must never be evaluated")
	require.Len(t, adapter.calls, 1)
	assert.Equal(t, source.SortNewest, adapter.calls[0].Sort)

	merged, inserted := catalog.Merge(priorWith(t, 100), cands, testTime)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 3, merged.Len())
	assert.False(t, merged.Has(model.Identity{Source: "thingiverse", ExternalID: "99"}))
}

func TestCrawl_IncrementalRequestsOnePage(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.pages["gear"] = []source.Page{
		{Listings: []model.Listing{listing(1, "gear")}, HasMore: true},
		{Listings: []model.Listing{listing(2, "gear")}, HasMore: true},
	}

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "General Parts", false, "gear"),
		testClassifier(), Options{Strategy: StrategyIncremental}, nil)
	cands, stats := crawler.Crawl(context.Background(), adapter, nil)

	assert.Len(t, cands, 1)
	assert.Equal(t, 1, stats.Pages)
}

func TestCrawl_FullPagesUntilEmpty(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.pages["gear"] = []source.Page{
		{Listings: []model.Listing{listing(1, "gear"), listing(2, "knob")}, HasMore: true},
		{Listings: []model.Listing{listing(3, "clip")}, HasMore: true},
	}

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "General Parts", false, "gear"),
		testClassifier(), Options{Strategy: StrategyFull, FullMaxPages: 5}, nil)

	// Known listings are skipped in full mode but never stop paging
	cands, stats := crawler.Crawl(context.Background(), adapter, priorWith(t, 1))

	assert.Equal(t, []string{"thingiverse:2", "thingiverse:3"}, ids(cands))
	assert.Equal(t, 3, stats.Pages, "third page is empty and ends the term")
	assert.Equal(t, 1, stats.Known)
	assert.Zero(t, stats.EarlyStops)
	for _, q := range adapter.calls {
		assert.Equal(t, source.SortRelevance, q.Sort)
	}
}

func TestCrawl_FullRespectsPageCapAndHasMore(t *testing.T) {
	adapter := newFakeAdapter()
	for i := 1; i <= 4; i++ {
		adapter.pages["gear"] = append(adapter.pages["gear"],
			source.Page{Listings: []model.Listing{listing(i, "gear")}, HasMore: true})
	}
	adapter.pages["knob"] = []source.Page{
		{Listings: []model.Listing{listing(10, "knob")}, HasMore: false},
		{Listings: []model.Listing{listing(11, "knob")}, HasMore: false},
	}

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "General Parts", false, "gear", "knob"),
		testClassifier(), Options{Strategy: StrategyFull, FullMaxPages: 2}, nil)
	cands, stats := crawler.Crawl(context.Background(), adapter, nil)

	assert.Equal(t, []string{"thingiverse:1", "thingiverse:2", "thingiverse:10"}, ids(cands))
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, 2, stats.Terms)
}

func TestCrawl_FailedPageContinuesWithNextTerm(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.errs["Bosch spare part"] = errors.New("unexpected status: 502")
	adapter.pages["Bosch repair"] = []source.Page{{Listings: []model.Listing{listing(7, "Bosch gear")}}}

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "Bosch", true, "Bosch spare part", "Bosch repair"),
		testClassifier(), Options{Strategy: StrategyFull}, nil)
	cands, stats := crawler.Crawl(context.Background(), adapter, nil)

	assert.Equal(t, []string{"thingiverse:7"}, ids(cands))
	assert.Equal(t, 1, stats.FailedPages)
	assert.Len(t, adapter.calls, 2, "failed term is not paged further")
}

func TestCrawl_UnorderedSourceDisablesStopRule(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.name = "myminifactory"
	adapter.honorsSort = false
	known := listing(100, "gear")
	known.Source = "myminifactory"
	later := listing(99, "gear")
	later.Source = "myminifactory"
	adapter.pages["gear"] = []source.Page{{Listings: []model.Listing{known, later}}}

	prior, _ := catalog.Merge(nil, []catalog.Candidate{{
		Listing: known,
		Result:  model.Result{Verdict: model.VerdictAdmit, Bucket: model.BucketSpareParts},
	}}, testTime)

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "General Parts", false, "gear"),
		testClassifier(), Options{Strategy: StrategyIncremental}, nil)
	cands, stats := crawler.Crawl(context.Background(), adapter, prior)

	assert.Equal(t, []string{"myminifactory:99"}, ids(cands))
	assert.Zero(t, stats.EarlyStops)
	assert.Equal(t, 1, stats.Known)
}

func TestCrawl_FiltersAndClassification(t *testing.T) {
	noImage := listing(3, "gear")
	noImage.ImageURL = ""
	unpopular := listing(4, "gear")
	unpopular.Popularity = 1
	withHTML := listing(50, "Bosch MUM4 knob")
	withHTML.Description = "<p>Fits <b>MUM4</b></p>"

	adapter := newFakeAdapter()
	adapter.pages["Bosch spare part"] = []source.Page{{Listings: []model.Listing{
		withHTML,
		listing(51, "Bosch mixer bowl"),
		listing(52, "Funny meme gear"),
		noImage,
		unpopular,
		listing(53, "Mixer wheel"),
	}}}
	adapter.pages["Bosch repair"] = []source.Page{{Listings: []model.Listing{withHTML}}}

	crawler := NewCrawler(singleTermPlan(model.BucketSpareParts, "Bosch", true, "Bosch spare part", "Bosch repair"),
		testClassifier(), Options{
			Strategy:      StrategyFull,
			RequireImage:  true,
			MinPopularity: map[string]int{"thingiverse": 2},
		}, nil)
	cands, stats := crawler.Crawl(context.Background(), adapter, nil)

	require.Equal(t, []string{"thingiverse:50", "thingiverse:53"}, ids(cands))
	assert.Equal(t, "Fits MUM4", cands[0].Listing.Description)
	assert.Equal(t, "Bosch", cands[0].Listing.Category)
	assert.Equal(t, "Bosch", cands[0].Result.Brand)
	assert.Equal(t, "Bosch", cands[1].Result.Brand, "category names a brand, used as fallback")
	assert.True(t, cands[0].Result.VolumeEstimated)

	assert.Equal(t, 1, stats.SkippedNoImage)
	assert.Equal(t, 1, stats.SkippedUnpopular)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Rejected[model.ReasonBrandWithoutFunction])
	assert.Equal(t, 1, stats.Rejected[model.ReasonJoke])
	assert.Equal(t, 2, stats.RejectedTotal())
}

func TestCrawl_GeneralGroupPromotesBranded(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.pages["handle"] = []source.Page{{Listings: []model.Listing{
		listing(1, "Dyson Vacuum Handle"),
		listing(2, "A nice gadget"),
	}}}

	crawler := NewCrawler(singleTermPlan(model.BucketGeneral, "Unsorted", false, "handle"),
		testClassifier(), Options{Strategy: StrategyFull}, nil)
	cands, stats := crawler.Crawl(context.Background(), adapter, nil)

	require.Len(t, cands, 1)
	assert.Equal(t, model.BucketSpareParts, cands[0].Result.Bucket)
	assert.Equal(t, "Dyson", cands[0].Result.Brand)
	assert.Equal(t, 1, stats.Rejected[model.ReasonAmbiguous])
}

type fakeDownloader map[string][]byte

func (f fakeDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	data, ok := f[url]
	if !ok {
		return nil, errors.New("unexpected status: 404")
	}
	return data, nil
}

type fakeMeasurer struct{}

func (fakeMeasurer) Measure(r io.ReadSeeker) (float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if string(data) == "bad" {
		return 0, errors.New("unmeasurable")
	}
	return float64(len(data)), nil
}

func TestCrawl_MeasuresVolume(t *testing.T) {
	measured := listing(1, "Hinge")
	measured.ModelFileURL = "https://files/1.stl"
	broken := listing(2, "Hinge")
	broken.ModelFileURL = "https://files/2.stl"
	missing := listing(3, "Hinge")
	missing.ModelFileURL = "https://files/3.stl"

	adapter := newFakeAdapter()
	adapter.pages["hinge"] = []source.Page{{Listings: []model.Listing{measured, broken, missing, listing(4, "Hinge")}}}

	crawler := NewCrawler(singleTermPlan(model.BucketHomeImprovement, "Kitchen", false, "hinge"),
		testClassifier(), Options{Strategy: StrategyFull}, nil).
		WithVolumeMeasurement(fakeDownloader{
			"https://files/1.stl": []byte("twelve bytes"),
			"https://files/2.stl": []byte("bad"),
		}, fakeMeasurer{})

	cands, stats := crawler.Crawl(context.Background(), adapter, nil)

	require.Len(t, cands, 4, "unmeasurable meshes are still admitted")
	require.NotNil(t, cands[0].Result.Volume)
	assert.Equal(t, 12.0, *cands[0].Result.Volume)
	assert.False(t, cands[0].Result.VolumeEstimated)
	for _, c := range cands[1:] {
		assert.True(t, c.Result.VolumeEstimated)
	}
	assert.Equal(t, 1, stats.Measured)
	assert.Equal(t, 2, stats.Unmeasurable)
}

var _ Measurer = (*geometry.Measurer)(nil)

const tetraSTL = `solid tetra
facet normal 0 0 -1
 outer loop
  vertex 0 0 0
  vertex 0 30 0
  vertex 30 0 0
 endloop
endfacet
facet normal 0 -1 0
 outer loop
  vertex 0 0 0
  vertex 30 0 0
  vertex 0 0 30
 endloop
endfacet
facet normal -1 0 0
 outer loop
  vertex 0 0 0
  vertex 0 0 30
  vertex 0 30 0
 endloop
endfacet
facet normal 1 1 1
 outer loop
  vertex 30 0 0
  vertex 0 30 0
  vertex 0 0 30
 endloop
endfacet
endsolid tetra
`

func TestCrawl_MeasuredMeshKeepsEstimatesStable(t *testing.T) {
	measured := listing(3, "Hinge")
	measured.ModelFileURL = "https://files/3.stl"

	adapter := newFakeAdapter()
	adapter.pages["hinge"] = []source.Page{{Listings: []model.Listing{measured, listing(2, "Hinge"), listing(1, "Hinge")}}}

	crawler := NewCrawler(singleTermPlan(model.BucketHomeImprovement, "Kitchen", false, "hinge"),
		testClassifier(), Options{Strategy: StrategyFull}, nil).
		WithVolumeMeasurement(fakeDownloader{"https://files/3.stl": []byte(tetraSTL)}, geometry.NewMeasurer(0))

	cands, stats := crawler.Crawl(context.Background(), adapter, nil)
	require.Len(t, cands, 3)
	assert.Equal(t, 1, stats.Measured)

	require.NotNil(t, cands[0].Result.Volume)
	assert.InDelta(t, 4.5, *cands[0].Result.Volume, 0.01)
	assert.False(t, cands[0].Result.VolumeEstimated)

	// Only unmeasured listings draw from the seeded estimator
	rules := classify.DefaultRules()
	want := classify.NewRandomEstimator(7, rules.SmallKeywords, rules.LargeKeywords)
	for _, c := range cands[1:] {
		require.NotNil(t, c.Result.Volume)
		assert.True(t, c.Result.VolumeEstimated)
		assert.Equal(t, want.Estimate("Hinge"), *c.Result.Volume)
	}
}

func TestCrawl_CountsCachedPages(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.pages["hinge"] = []source.Page{
		{Listings: []model.Listing{listing(2, "Hinge")}, HasMore: true, FromCache: true},
		{Listings: []model.Listing{listing(1, "Hinge")}},
	}

	_, stats := NewCrawler(singleTermPlan(model.BucketHomeImprovement, "Kitchen", false, "hinge"),
		testClassifier(), Options{Strategy: StrategyFull}, nil).Crawl(context.Background(), adapter, nil)

	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 1, stats.CachedPages)
}

func TestCrawl_CancelledContext(t *testing.T) {
	adapter := newFakeAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cands, stats := NewCrawler(DefaultPlan(), testClassifier(), Options{}, nil).Crawl(ctx, adapter, nil)
	assert.Empty(t, cands)
	assert.Zero(t, stats.Pages)
	assert.Empty(t, adapter.calls)
}
