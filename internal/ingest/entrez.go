package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultEntrezBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// EntrezClient is a minimal NCBI E-utilities client covering the three
// calls the ingestion pipeline needs: esearch, elink and efetch.
type EntrezClient struct {
	baseURL    string
	email      string
	apiKey     string
	client     *http.Client
	maxRetries int
	log        *slog.Logger
}

// EntrezConfig configures the E-utilities client. Email is required by
// NCBI usage policy; an API key raises the rate limit.
type EntrezConfig struct {
	Email   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewEntrezClient(cfg EntrezConfig) (*EntrezClient, error) {
	if cfg.Email == "" {
		return nil, errors.New("entrez: email is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEntrezBaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EntrezClient{
		baseURL:    cfg.BaseURL,
		email:      cfg.Email,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
		log:        logger.With("component", "entrez"),
	}, nil
}

// SearchPubMed searches PubMed and returns PMIDs sorted by relevance.
func (c *EntrezClient) SearchPubMed(ctx context.Context, term string, retmax int) ([]string, error) {
	params := c.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(retmax))
	params.Set("sort", "relevance")
	params.Set("retmode", "json")

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Result struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("esearch: decode response: %w", err)
	}
	return out.Result.IDList, nil
}

// LinkPMC maps a PMID to its PMC numeric id. Returns "" when the
// article has no PMC full text.
func (c *EntrezClient) LinkPMC(ctx context.Context, pmid string) (string, error) {
	params := c.baseParams()
	params.Set("dbfrom", "pubmed")
	params.Set("id", pmid)
	params.Set("linkname", "pubmed_pmc")
	params.Set("retmode", "json")

	body, err := c.get(ctx, "elink.fcgi", params)
	if err != nil {
		return "", err
	}
	var out struct {
		LinkSets []struct {
			LinkSetDBs []struct {
				Links []string `json:"links"`
			} `json:"linksetdbs"`
		} `json:"linksets"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("elink: decode response: %w", err)
	}
	if len(out.LinkSets) == 0 || len(out.LinkSets[0].LinkSetDBs) == 0 {
		return "", nil
	}
	links := out.LinkSets[0].LinkSetDBs[0].Links
	if len(links) == 0 {
		return "", nil
	}
	return links[0], nil
}

// FetchArticleXML downloads the full-text JATS XML for a PMC numeric id.
func (c *EntrezClient) FetchArticleXML(ctx context.Context, pmcNum string) ([]byte, error) {
	params := c.baseParams()
	params.Set("db", "pmc")
	params.Set("id", pmcNum)
	params.Set("rettype", "full")
	params.Set("retmode", "xml")
	return c.get(ctx, "efetch.fcgi", params)
}

func (c *EntrezClient) baseParams() url.Values {
	params := url.Values{}
	params.Set("tool", "medrag")
	params.Set("email", c.email)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}

func (c *EntrezClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("entrez %s: %s", endpoint, resp.Status)
			if attempt < c.maxRetries {
				c.log.Warn("retrying entrez call", "endpoint", endpoint, "status", resp.Status)
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("entrez %s: %s", endpoint, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, lastErr
		}
		return body, nil
	}
	return nil, lastErr
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
