package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEutils serves the three E-utilities endpoints from canned data.
func fakeEutils(t *testing.T, pmids []string, pmcLinks map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
		assert.NotEmpty(t, r.URL.Query().Get("email"))
		ids := `"` + pmids[0] + `"`
		for _, id := range pmids[1:] {
			ids += `,"` + id + `"`
		}
		fmt.Fprintf(w, `{"esearchresult":{"idlist":[%s]}}`, ids)
	})
	mux.HandleFunc("/elink.fcgi", func(w http.ResponseWriter, r *http.Request) {
		pmid := r.URL.Query().Get("id")
		pmcNum, ok := pmcLinks[pmid]
		if !ok {
			fmt.Fprint(w, `{"linksets":[{}]}`)
			return
		}
		fmt.Fprintf(w, `{"linksets":[{"linksetdbs":[{"links":["%s"]}]}]}`, pmcNum)
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pmc", r.URL.Query().Get("db"))
		fmt.Fprintf(w, `<article><front><article-meta><title-group><article-title>Article %s</article-title></title-group></article-meta></front></article>`,
			r.URL.Query().Get("id"))
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *EntrezClient {
	t.Helper()
	c, err := NewEntrezClient(EntrezConfig{Email: "dev@example.org", BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

func TestNewEntrezClientRequiresEmail(t *testing.T) {
	_, err := NewEntrezClient(EntrezConfig{})
	assert.Error(t, err)
}

func TestSearchPubMed(t *testing.T) {
	ts := fakeEutils(t, []string{"10", "20", "30"}, nil)
	defer ts.Close()

	ids, err := newTestClient(t, ts.URL).SearchPubMed(context.Background(), "tau", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30"}, ids)
}

func TestLinkPMC(t *testing.T) {
	ts := fakeEutils(t, []string{"10"}, map[string]string{"10": "111"})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	pmcNum, err := c.LinkPMC(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "111", pmcNum)

	pmcNum, err = c.LinkPMC(context.Background(), "99")
	require.NoError(t, err)
	assert.Empty(t, pmcNum, "missing link is not an error")
}

func TestEntrezRetriesServerErrors(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"esearchresult":{"idlist":["1"]}}`)
	}))
	defer ts.Close()

	ids, err := newTestClient(t, ts.URL).SearchPubMed(context.Background(), "tau", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
	assert.Equal(t, 3, calls)
}

func TestFetchCorpus(t *testing.T) {
	ts := fakeEutils(t, []string{"1", "2", "3"}, map[string]string{"1": "111", "3": "333"})
	defer ts.Close()

	rawDir := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "ingest.jsonl")
	f := NewFetcher(newTestClient(t, ts.URL), 0, nil)

	counts, err := f.FetchCorpus(context.Background(), FetchOptions{
		Query:   "alzheimer tau",
		TargetN: 2,
		RawDir:  rawDir,
		LogPath: logPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Downloaded)
	assert.Equal(t, 1, counts.NoLink)
	assert.Equal(t, 0, counts.Failed)

	assert.FileExists(t, filepath.Join(rawDir, "PMC111.xml"))
	assert.FileExists(t, filepath.Join(rawDir, "PMC333.xml"))

	pmidMap, err := LoadPMIDMap(logPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PMC111": "1", "PMC333": "3"}, pmidMap)
}

func TestFetchCorpusResumeSkipsExisting(t *testing.T) {
	ts := fakeEutils(t, []string{"1", "3"}, map[string]string{"1": "111", "3": "333"})
	defer ts.Close()

	rawDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "PMC111.xml"), []byte("<article/>"), 0o644))

	f := NewFetcher(newTestClient(t, ts.URL), 0, nil)
	counts, err := f.FetchCorpus(context.Background(), FetchOptions{
		Query:   "q",
		TargetN: 2,
		Resume:  true,
		RawDir:  rawDir,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Skipped)
	assert.Equal(t, 1, counts.Downloaded)
}

func TestFetchCorpusValidation(t *testing.T) {
	f := NewFetcher(nil, 0, nil)
	_, err := f.FetchCorpus(context.Background(), FetchOptions{TargetN: 1})
	assert.Error(t, err)
	_, err = f.FetchCorpus(context.Background(), FetchOptions{Query: "q"})
	assert.Error(t, err)
}

func TestLoadArticles(t *testing.T) {
	rawDir := t.TempDir()
	writeArticle := func(pmcid, title string) {
		xmlData := fmt.Sprintf(`<article><front><article-meta><title-group><article-title>%s</article-title></title-group></article-meta></front></article>`, title)
		require.NoError(t, os.WriteFile(filepath.Join(rawDir, pmcid+".xml"), []byte(xmlData), 0o644))
	}
	writeArticle("PMC2", "Second")
	writeArticle("PMC1", "First")
	// unparseable file is skipped, not fatal
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "PMC3.xml"), nil, 0o644))

	docs, err := LoadArticles(rawDir, map[string]string{"PMC1": "11"}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "PMC1", docs[0].ID, "stable filename order")
	assert.Equal(t, "11", docs[0].PMID)
	assert.Equal(t, "First", docs[0].Title)
	assert.Equal(t, "PMC2", docs[1].ID)
}
