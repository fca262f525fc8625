package people

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/estate/pkg/fsutil"
	"github.com/entrhq/estate/pkg/identity"
	"github.com/entrhq/estate/pkg/logging"
	"github.com/entrhq/estate/pkg/metrics"
	"github.com/entrhq/estate/pkg/types"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(root, opts...)
	require.NoError(t, err)
	return s, root
}

func janeDoe() identity.Tuple {
	return identity.Tuple{Family: "Doe", Given: "Jane", DateOfBirth: "1990-01-01"}
}

func writeDoc(t *testing.T, s *Store, slug, content string) {
	t.Helper()
	dir := filepath.Join(s.Root(), filepath.FromSlash(slug))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocumentName), []byte(content), 0o644))
}

func TestCreateThenListEndToEnd(t *testing.T) {
	ctx := context.Background()
	s, root := newTestStore(t)

	p, err := s.Create(ctx, janeDoe(), "Test subject.")
	require.NoError(t, err)

	wantID := new(big.Int).SetBytes([]byte("Doe|Jane||1990-01-01")).Text(36)
	assert.Equal(t, wantID, p.ID)
	assert.Equal(t, "Doe, Jane", p.DisplayName)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]{2}/[0-9a-z]{2}/Doe,_Jane--`+wantID+`$`), p.Slug)
	assert.Equal(t, identity.ShardKey(wantID)+"/Doe,_Jane--"+wantID, p.Slug)

	_, err = os.Stat(filepath.Join(root, DirName, filepath.FromSlash(p.Slug), DocumentName))
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Doe, Jane", list[0].DisplayName)
	assert.Equal(t, p.Slug, list[0].Slug)
	assert.Equal(t, "Test subject.", list[0].Bio)
}

func TestDocumentOmitsDerivedFields(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.Create(context.Background(), janeDoe(), "")
	require.NoError(t, err)

	dir, err := s.Dir(p.Slug)
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(dir, DocumentName))
	require.NoError(t, err)

	doc := string(raw)
	assert.Contains(t, doc, "id: "+p.ID)
	assert.Contains(t, doc, "type: primary")
	assert.NotContains(t, doc, "slug")
	assert.NotContains(t, doc, "display")
}

func TestCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created, err := s.Create(ctx, identity.Tuple{Family: "Lovelace", Given: "Ada", Suffix: "II", DateOfBirth: "1815-12-10"}, "Mathematician.\nWrote notes.")
	require.NoError(t, err)
	assert.Equal(t, "Lovelace, Ada II", created.DisplayName)
	assert.True(t, strings.HasSuffix(created.Slug, "/Lovelace,_Ada_II--"+created.ID))

	got, ok, err := s.Get(ctx, created.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestCreateNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s, _ := newTestStore(t, WithMetrics(m))

	first, err := s.Create(ctx, janeDoe(), "original")
	require.NoError(t, err)
	second, err := s.Create(ctx, janeDoe(), "replacement")
	require.NoError(t, err)
	assert.Equal(t, first.Slug, second.Slug)

	got, ok, err := s.Get(ctx, first.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", got.Bio)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsCreated))
}

func TestCreateRejectsMissingNames(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Create(context.Background(), identity.Tuple{Family: "Doe", DateOfBirth: "1990-01-01"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetRejectsEscapingSlug(t *testing.T) {
	s, _ := newTestStore(t)

	for _, slug := range []string{"../../etc", "/etc", `\etc`, "ab/../../x"} {
		t.Run(slug, func(t *testing.T) {
			p, ok, err := s.Get(context.Background(), slug)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	s, _ := newTestStore(t)

	p, ok, err := s.Get(context.Background(), "ab/cd/Nobody,_Here--abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestCorruptRecordFailsGetAndIsSkippedByList(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var (
		mu      sync.Mutex
		skipped []string
	)
	var logs bytes.Buffer
	s, _ := newTestStore(t,
		WithMetrics(m),
		WithLogger(logging.New("people", &logs)),
		WithSkipHandler(func(path string, err error) {
			mu.Lock()
			defer mu.Unlock()
			skipped = append(skipped, path)
			assert.ErrorIs(t, err, types.ErrCorrupt)
		}),
	)

	valid, err := s.Create(ctx, janeDoe(), "ok")
	require.NoError(t, err)

	badSlug := "zz/zz/Broken,_Record--zzzz"
	writeDoc(t, s, badSlug, "id: zzzz\nvitals:\n  birth:\n    date: \"1900-01-01\"\nbio: no names here\n")

	_, ok, err := s.Get(ctx, badSlug)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, types.ErrCorrupt)
	var ce *CorruptError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "names")
	assert.Equal(t, 422, types.HTTPStatus(err))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, valid.Slug, list[0].Slug)

	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "Broken,_Record--zzzz")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsSkipped))
	assert.Contains(t, logs.String(), "skipping unreadable record")
}

func TestCorruptionCases(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "id: [unclosed\n"},
		{name: "empty file", doc: ""},
		{name: "missing id", doc: "names:\n  - {type: primary, given: A, surname: B, suffix: \"\"}\nvitals:\n  birth:\n    date: x\n"},
		{name: "missing birth date", doc: "id: abc\nnames:\n  - {type: primary, given: A, surname: B, suffix: \"\"}\nvitals: {}\n"},
		{name: "bad id", doc: "id: \"a b\"\nnames:\n  - {type: primary, given: A, surname: B, suffix: \"\"}\nvitals:\n  birth:\n    date: x\n"},
		{name: "empty names", doc: "id: abc\nnames: []\nvitals:\n  birth:\n    date: x\n"},
		{name: "unknown name type", doc: "id: abc\nnames:\n  - {type: nickname, given: A, surname: B, suffix: \"\"}\nvitals:\n  birth:\n    date: x\n"},
		{name: "wrong shape", doc: "id: abc\nnames: just a string\nvitals:\n  birth:\n    date: x\n"},
		{name: "null birth date", doc: "id: abc\nnames:\n  - {type: primary, given: A, surname: B, suffix: \"\"}\nvitals:\n  birth:\n    date: null\n"},
		{name: "blank birth date", doc: "id: abc\nnames:\n  - {type: primary, given: A, surname: B, suffix: \"\"}\nvitals:\n  birth:\n    date:\n"},
		{name: "directory carries other id", doc: "id: abd\nnames:\n  - {type: primary, given: A, surname: B, suffix: \"\"}\nvitals:\n  birth:\n    date: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			writeDoc(t, s, "ab/cd/X--abc", tt.doc)

			_, _, err := s.Get(context.Background(), "ab/cd/X--abc")
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrCorrupt)
		})
	}
}

func TestListFindsDocumentsAtAnyDepth(t *testing.T) {
	s, _ := newTestStore(t)
	doc := "id: abc\nnames:\n  - type: primary\n    given: Flat\n    surname: Record\n    suffix: \"\"\nvitals:\n  birth:\n    date: \"\"\nbio: \"\"\n"
	writeDoc(t, s, "Record,_Flat--abc", doc)
	writeDoc(t, s, "a/b/c/d/Record,_Flat--abd", strings.Replace(doc, "abc", "abd", 1))

	// Temp siblings and other files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), DocumentName+fsutil.TempSuffix), []byte("junk"), 0o644))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	slugs := []string{list[0].Slug, list[1].Slug}
	assert.ElementsMatch(t, []string{"Record,_Flat--abc", "a/b/c/d/Record,_Flat--abd"}, slugs)
	assert.Equal(t, "Record, Flat", list[0].DisplayName)
}

func TestListIgnoresRecordingSidecars(t *testing.T) {
	ctx := context.Background()
	var skipped []string
	s, _ := newTestStore(t, WithSkipHandler(func(path string, err error) { skipped = append(skipped, path) }))

	p, err := s.Create(ctx, janeDoe(), "")
	require.NoError(t, err)
	// A recording named bio.mp4 gets a bio.yaml sidecar.
	writeDoc(t, s, p.Slug+"/"+MediaDirName+"/video", "original_filename: bio.mp4\n")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.Slug, list[0].Slug)
	assert.Empty(t, skipped)
}

func TestListRejectsRecordUnderWrongDirectory(t *testing.T) {
	ctx := context.Background()
	var skipped []string
	s, _ := newTestStore(t, WithSkipHandler(func(path string, err error) { skipped = append(skipped, path) }))

	p, err := s.Create(ctx, janeDoe(), "")
	require.NoError(t, err)
	dir, err := s.Dir(p.Slug)
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(dir, DocumentName))
	require.NoError(t, err)
	writeDoc(t, s, "ab/cd/Copy--abc", string(raw))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.Slug, list[0].Slug)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "Copy--abc")
}

func TestListEmptyAndMissingRoot(t *testing.T) {
	s, root := newTestStore(t)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, os.RemoveAll(filepath.Join(root, DirName)))
	list, err = s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListHonoursCancellation(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Create(context.Background(), janeDoe(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListManyRecordsWithBoundedConcurrency(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithListConcurrency(2))

	for _, given := range []string{"Ann", "Bob", "Cy", "Di", "Ed", "Flo"} {
		_, err := s.Create(ctx, identity.Tuple{Family: "Smith", Given: given, DateOfBirth: "2000-01-01"}, "")
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 6)
	for _, p := range list {
		assert.True(t, strings.HasPrefix(p.DisplayName, "Smith, "))
		assert.NotEmpty(t, p.Slug)
	}
}

func TestUpdatePreservesHandWrittenComments(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, janeDoe(), "first draft")
	require.NoError(t, err)

	dir, err := s.Dir(p.Slug)
	require.NoError(t, err)
	path := filepath.Join(dir, DocumentName)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := "# Checked against the parish register\n" + string(raw)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	updated, err := s.Update(ctx, p.Slug, func(p *Person) error {
		p.Bio = "second draft"
		p.Names = append(p.Names, Name{Type: NameMaiden, Given: "Jane", Surname: "Roe"})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Bio)
	assert.Equal(t, "Doe, Jane", updated.DisplayName)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Checked against the parish register")
	assert.Contains(t, string(raw), "bio: second draft")
	assert.Contains(t, string(raw), "surname: Roe")

	got, ok, err := s.Get(ctx, p.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Names, 2)
}

func TestUpdateKeepsHandAddedKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, janeDoe(), "")
	require.NoError(t, err)
	dir, err := s.Dir(p.Slug)
	require.NoError(t, err)
	path := filepath.Join(dir, DocumentName)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		lines = append(lines, line)
		if strings.HasPrefix(strings.TrimSpace(line), "date:") {
			indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
			lines = append(lines, indent+"place: Leeds")
		}
	}
	edited := strings.Join(lines, "\n") + "notes: added by hand\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	_, err = s.Update(ctx, p.Slug, func(*Person) error { return nil })
	require.NoError(t, err)
	_, err = s.Update(ctx, p.Slug, func(p *Person) error {
		p.Bio = "edited"
		return nil
	})
	require.NoError(t, err)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "notes: added by hand")
	assert.Contains(t, string(raw), "place: Leeds")
	assert.Contains(t, string(raw), "bio: edited")
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Update(ctx, "ab/cd/Missing--abc", func(*Person) error { return nil })
	assert.ErrorIs(t, err, types.ErrNotFound)

	p, err := s.Create(ctx, janeDoe(), "")
	require.NoError(t, err)

	_, err = s.Update(ctx, p.Slug, func(p *Person) error {
		p.ID = "other"
		return nil
	})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = s.Update(ctx, p.Slug, func(p *Person) error {
		p.Names = nil
		return nil
	})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	boom := errors.New("boom")
	_, err = s.Update(ctx, p.Slug, func(*Person) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = s.Update(ctx, "../x", func(*Person) error { return nil })
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
