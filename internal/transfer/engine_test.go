package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savedtransfer/saved-transfer/internal/reddit"
	"github.com/savedtransfer/saved-transfer/internal/saved"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote serves a fixed listing and records save calls.
type fakeRemote struct {
	mu sync.Mutex

	account string
	pages   []reddit.Page
	meErr   error

	// saveErrs maps a 1-based save call number to its error.
	saveErrs map[int]error

	pageCalls []string
	saves     []string
	saveTimes []time.Time
}

func (f *fakeRemote) Me(context.Context) (*reddit.Account, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}

	return &reddit.Account{Name: f.account}, nil
}

func (f *fakeRemote) SavedPage(_ context.Context, user, after string) (*reddit.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pageCalls = append(f.pageCalls, after)

	if user != f.account {
		return nil, fmt.Errorf("unexpected user %q", user)
	}

	idx := 0
	if after != "" {
		if _, err := fmt.Sscanf(after, "cursor-%d", &idx); err != nil {
			return nil, err
		}
	}

	if idx >= len(f.pages) {
		return &reddit.Page{}, nil
	}

	p := f.pages[idx]

	return &p, nil
}

func (f *fakeRemote) Save(_ context.Context, fullname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saves = append(f.saves, fullname)
	f.saveTimes = append(f.saveTimes, time.Now())

	return f.saveErrs[len(f.saves)]
}

// pagedListing splits things into pages of size n with "cursor-i" cursors.
func pagedListing(things []reddit.Thing, n int) []reddit.Page {
	var pages []reddit.Page

	for i := 0; i < len(things); i += n {
		end := min(i+n, len(things))
		p := reddit.Page{Things: things[i:end]}

		if end < len(things) {
			p.After = fmt.Sprintf("cursor-%d", len(pages)+1)
		}

		pages = append(pages, p)
	}

	return pages
}

func link(id string) reddit.Thing {
	return reddit.Thing{Kind: reddit.KindLink, Data: reddit.ThingData{
		ID: id, Name: "t3_" + id, Subreddit: "golang", Title: "title " + id, URL: "https://example.com/" + id,
	}}
}

func comment(id, linkID string) reddit.Thing {
	return reddit.Thing{Kind: reddit.KindComment, Data: reddit.ThingData{
		ID: id, Name: "t1_" + id, Subreddit: "golang", LinkID: linkID,
	}}
}

// sliceSink collects exported items.
type sliceSink struct {
	items []saved.Item
	err   error
}

func (s *sliceSink) Append(it saved.Item) error {
	if s.err != nil {
		return s.err
	}

	s.items = append(s.items, it)

	return nil
}

func newTestEngine(remote Remote, opts Options) *Engine {
	if opts.MinInterval == 0 {
		opts.MinInterval = time.Millisecond
	}

	return New(remote, opts, testLogger())
}

func fullnames(items []saved.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Fullname()
	}

	return out
}

func reversedStrings(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}

	return out
}

func TestExportThenImport_ReverseOrder(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 250} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			things := make([]reddit.Thing, n)
			for i := range things {
				if i%3 == 0 {
					things[i] = comment(fmt.Sprintf("c%d", i), "t3_p")
				} else {
					things[i] = link(fmt.Sprintf("p%d", i))
				}
			}

			src := &fakeRemote{account: "alice", pages: pagedListing(things, 100)}
			sink := &sliceSink{}

			report, err := newTestEngine(src, Options{}).Export(context.Background(), sink)
			require.NoError(t, err)
			assert.Equal(t, n, report.Written)
			require.Len(t, sink.items, n)

			dst := &fakeRemote{account: "bob"}

			imp, err := newTestEngine(dst, Options{}).Import(context.Background(), sink.items)
			require.NoError(t, err)

			assert.Equal(t, n, imp.Attempted)
			assert.Equal(t, n, imp.Succeeded)
			assert.Len(t, dst.saves, n)
			assert.Equal(t, reversedStrings(fullnames(sink.items)), append([]string{}, dst.saves...))
		})
	}
}

func TestExportThenImport_ThroughSaveFile(t *testing.T) {
	src := &fakeRemote{account: "alice", pages: pagedListing([]reddit.Thing{
		link("a"), link("b"), link("c"),
	}, 2)}

	path := filepath.Join(t.TempDir(), "saved_posts.json")

	w, err := saved.Create(path, saved.FormatAuto)
	require.NoError(t, err)

	_, err = newTestEngine(src, Options{}).Export(context.Background(), w)
	require.NoError(t, err)
	require.NoError(t, w.Commit())

	items, err := saved.ReadFile(path)
	require.NoError(t, err)

	dst := &fakeRemote{account: "bob"}

	_, err = newTestEngine(dst, Options{}).Import(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_c", "t3_b", "t3_a"}, dst.saves)
}

func TestExport_Pagination(t *testing.T) {
	things := []reddit.Thing{link("a"), link("b"), link("c"), link("d"), link("e")}
	remote := &fakeRemote{account: "alice", pages: pagedListing(things, 2)}
	sink := &sliceSink{}

	var pagesSeen []int

	e := newTestEngine(remote, Options{OnPage: func(page, _ int) { pagesSeen = append(pagesSeen, page) }})

	report, err := e.Export(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, "alice", report.Account)
	assert.Equal(t, []string{"", "cursor-1", "cursor-2"}, remote.pageCalls)
	assert.Equal(t, []int{1, 2, 3}, pagesSeen)
	assert.Equal(t, []string{"t3_a", "t3_b", "t3_c", "t3_d", "t3_e"}, fullnames(sink.items))
}

func TestExport_ClassifiesKinds(t *testing.T) {
	odd := reddit.Thing{Kind: "t5", Data: reddit.ThingData{ID: "sub1", Subreddit: "golang", Title: "r/golang"}}
	remote := &fakeRemote{account: "alice", pages: []reddit.Page{{Things: []reddit.Thing{
		comment("c1", "t3_post9"), link("p1"), odd,
	}}}}
	sink := &sliceSink{}

	report, err := newTestEngine(remote, Options{}).Export(context.Background(), sink)
	require.NoError(t, err)
	require.Len(t, sink.items, 3)

	c := sink.items[0]
	assert.Equal(t, saved.KindComment, c.Kind)
	assert.Equal(t, "t3_post9", c.LinkID)
	assert.Equal(t, "post9", c.SubmissionID)

	p := sink.items[1]
	assert.Equal(t, saved.KindPost, p.Kind)
	assert.Equal(t, "title p1", p.Title)
	assert.Equal(t, "https://example.com/p1", p.URL)

	assert.Equal(t, saved.KindPost, sink.items[2].Kind)
	assert.Equal(t, 1, report.Fallbacks)
}

func TestExport_SkipsEmptyAndDuplicateIDs(t *testing.T) {
	remote := &fakeRemote{account: "alice", pages: []reddit.Page{{Things: []reddit.Thing{
		link("a"), link(""), link("a"), comment("a", "t3_x"),
	}}}}
	sink := &sliceSink{}

	report, err := newTestEngine(remote, Options{}).Export(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_a", "t1_a"}, fullnames(sink.items))
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Duplicates)
}

func TestExport_RepeatedCursorStops(t *testing.T) {
	remote := &fakeRemote{account: "alice", pages: []reddit.Page{
		{Things: []reddit.Thing{link("a")}, After: "cursor-1"},
		{Things: []reddit.Thing{link("b")}, After: "cursor-1"},
	}}
	sink := &sliceSink{}

	report, err := newTestEngine(remote, Options{}).Export(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, []string{"t3_a", "t3_b"}, fullnames(sink.items))
}

func TestExport_Errors(t *testing.T) {
	t.Run("account", func(t *testing.T) {
		remote := &fakeRemote{meErr: reddit.ErrUnauthorized}

		_, err := newTestEngine(remote, Options{}).Export(context.Background(), &sliceSink{})
		require.ErrorIs(t, err, reddit.ErrUnauthorized)
	})

	t.Run("sink", func(t *testing.T) {
		remote := &fakeRemote{account: "alice", pages: []reddit.Page{{Things: []reddit.Thing{link("a")}}}}
		sinkErr := errors.New("disk full")

		report, err := newTestEngine(remote, Options{}).Export(context.Background(), &sliceSink{err: sinkErr})
		require.ErrorIs(t, err, sinkErr)
		assert.Equal(t, 0, report.Written)
	})

	t.Run("canceled", func(t *testing.T) {
		remote := &fakeRemote{account: "alice", pages: []reddit.Page{{Things: []reddit.Thing{link("a")}}}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestEngine(remote, Options{}).Export(ctx, &sliceSink{})
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, remote.pageCalls)
	})
}

func TestImport_ExampleOrder(t *testing.T) {
	items := []saved.Item{
		{Kind: saved.KindPost, ID: "a"},
		{Kind: saved.KindPost, ID: "b"},
		{Kind: saved.KindPost, ID: "c"},
	}
	remote := &fakeRemote{account: "bob"}

	var progress []int

	e := newTestEngine(remote, Options{OnSave: func(p SaveProgress) {
		assert.Equal(t, 3, p.Total)
		progress = append(progress, p.Index)
	}})

	_, err := e.Import(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_c", "t3_b", "t3_a"}, remote.saves)
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestImport_Spacing(t *testing.T) {
	const interval = 25 * time.Millisecond

	items := make([]saved.Item, 5)
	for i := range items {
		items[i] = saved.Item{Kind: saved.KindPost, ID: fmt.Sprintf("p%d", i)}
	}

	remote := &fakeRemote{account: "bob"}

	_, err := newTestEngine(remote, Options{MinInterval: interval}).Import(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, remote.saveTimes, 5)

	for i := 1; i < len(remote.saveTimes); i++ {
		gap := remote.saveTimes[i].Sub(remote.saveTimes[i-1])
		assert.GreaterOrEqual(t, gap, interval, "gap %d", i)
	}
}

func TestImport_PartialFailure(t *testing.T) {
	items := []saved.Item{
		{Kind: saved.KindPost, ID: "a"},
		{Kind: saved.KindPost, ID: "b"},
		{Kind: saved.KindPost, ID: "c"},
	}
	transient := &reddit.APIError{StatusCode: 503, Message: "busy", Err: reddit.ErrServerError}
	remote := &fakeRemote{account: "bob", saveErrs: map[int]error{2: transient}}

	report, err := newTestEngine(remote, Options{}).Import(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b", report.Failures[0].Item.ID)
	assert.True(t, report.Failures[0].Transient)
	assert.Equal(t, []string{"t3_c", "t3_b", "t3_a"}, remote.saves)
}

func TestImport_AuthFailureAborts(t *testing.T) {
	items := []saved.Item{
		{Kind: saved.KindPost, ID: "a"},
		{Kind: saved.KindPost, ID: "b"},
		{Kind: saved.KindPost, ID: "c"},
	}
	unauthorized := &reddit.APIError{StatusCode: 401, Message: "expired", Err: reddit.ErrUnauthorized}
	remote := &fakeRemote{account: "bob", saveErrs: map[int]error{2: unauthorized}}

	report, err := newTestEngine(remote, Options{}).Import(context.Background(), items)
	require.ErrorIs(t, err, reddit.ErrUnauthorized)

	require.NotNil(t, report)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, report.Failures[0].Transient)
	assert.Len(t, remote.saves, 2)
}

func TestImport_Canceled(t *testing.T) {
	items := []saved.Item{{Kind: saved.KindPost, ID: "a"}, {Kind: saved.KindPost, ID: "b"}}
	remote := &fakeRemote{account: "bob"}

	ctx, cancel := context.WithCancel(context.Background())

	e := newTestEngine(remote, Options{
		MinInterval: time.Hour,
		OnSave:      func(SaveProgress) { cancel() },
	})

	report, err := e.Import(ctx, items)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, []string{"t3_b"}, remote.saves)
}

// memJournal is an in-memory Journal.
type memJournal struct {
	done      map[string]map[string]bool
	readErr   error
	forgotten []string
}

func (j *memJournal) Forget(_ context.Context, batch string) error {
	j.forgotten = append(j.forgotten, batch)
	delete(j.done, batch)

	return nil
}

func (j *memJournal) Completed(_ context.Context, batch string) (map[string]bool, error) {
	if j.readErr != nil {
		return nil, j.readErr
	}

	return j.done[batch], nil
}

func (j *memJournal) Record(_ context.Context, batch, fullname string) error {
	if j.done == nil {
		j.done = make(map[string]map[string]bool)
	}

	if j.done[batch] == nil {
		j.done[batch] = make(map[string]bool)
	}

	j.done[batch][fullname] = true

	return nil
}

func TestImport_ResumeSkipsJournaled(t *testing.T) {
	items := []saved.Item{
		{Kind: saved.KindPost, ID: "a"},
		{Kind: saved.KindComment, ID: "b"},
		{Kind: saved.KindPost, ID: "c"},
	}
	j := &memJournal{}

	// First run dies on the second call.
	first := &fakeRemote{account: "bob", saveErrs: map[int]error{
		2: &reddit.APIError{StatusCode: 401, Err: reddit.ErrUnauthorized},
	}}

	_, err := newTestEngine(first, Options{Journal: j}).Import(context.Background(), items)
	require.Error(t, err)

	second := &fakeRemote{account: "bob"}

	report, err := newTestEngine(second, Options{Journal: j}).Import(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, []string{"t1_b", "t3_a"}, second.saves)
	assert.Equal(t, []string{BatchKey("bob", items)}, j.forgotten)

	// A different account is a different batch.
	other := &fakeRemote{account: "carol"}

	report, err = newTestEngine(other, Options{Journal: j}).Import(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Skipped)
	assert.Len(t, other.saves, 3)
}

func TestImport_JournalErrorsAreNotFatal(t *testing.T) {
	items := []saved.Item{{Kind: saved.KindPost, ID: "a"}}
	remote := &fakeRemote{account: "bob"}

	report, err := newTestEngine(remote, Options{Journal: &memJournal{readErr: errors.New("locked")}}).
		Import(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}

func TestImport_Empty(t *testing.T) {
	remote := &fakeRemote{account: "bob"}

	report, err := newTestEngine(remote, Options{}).Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, remote.saves)
}

func TestBatchKey(t *testing.T) {
	a := []saved.Item{{Kind: saved.KindPost, ID: "a"}, {Kind: saved.KindPost, ID: "b"}}
	b := []saved.Item{{Kind: saved.KindPost, ID: "b"}, {Kind: saved.KindPost, ID: "a"}}

	assert.Equal(t, BatchKey("bob", a), BatchKey("bob", a))
	assert.NotEqual(t, BatchKey("bob", a), BatchKey("bob", b))
	assert.NotEqual(t, BatchKey("bob", a), BatchKey("carol", a))
	assert.Len(t, BatchKey("bob", a), 64)
}
