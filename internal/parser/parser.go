package parser

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// Fetcher captures the current state of an asset as a Snapshot.
type Fetcher interface {
	Fetch(ctx context.Context, asset models.Asset) (*models.Snapshot, error)
}

type Parser struct {
	log       *slog.Logger
	client    *http.Client
	userAgent string
}

func NewParser(log *slog.Logger) *Parser {
	return &Parser{
		log:       log,
		client:    http.DefaultClient,
		userAgent: "Mozilla/5.0 (compatible; GoHttpClient/1.0)",
	}
}

// Fetch retrieves the asset content, normalizes it and extracts structured
// metadata for the asset type. A transport or status failure returns an
// error and no snapshot; the next scheduled cycle retries.
func (p *Parser) Fetch(ctx context.Context, asset models.Asset) (*models.Snapshot, error) {
	resp, err := p.getHTMLResponse(ctx, asset.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to get html response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("data cannot be parsed as HTML: %w", err)
	}

	text := NormalizeText(extractText(doc))
	metadata := extractMetadata(doc, text, asset.Type)

	snap := &models.Snapshot{
		AssetID:     asset.ID,
		ContentHash: HashContent(text),
		ContentText: text,
		Metadata:    metadata,
		FetchStatus: models.FetchOK,
		HTTPStatus:  resp.StatusCode,
		CapturedAt:  time.Now().UTC(),
	}

	p.log.DebugContext(ctx, "Captured snapshot",
		"asset_id", asset.ID, "hash", snap.ContentHash, "lines", strings.Count(text, "\n")+1)

	return snap, nil
}

func (p *Parser) getHTMLResponse(ctx context.Context, destURL string) (*http.Response, error) {
	reqURL, err := url.Parse(destURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination URL %s: %w", destURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", reqURL.String(), err)
	}

	req.Header.Add("User-Agent", p.userAgent)

	p.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", destURL, err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	return res, nil
}

// NormalizeText collapses whitespace so byte-level noise (encoding,
// indentation) never changes the content hash.
func NormalizeText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// HashContent calculates the SHA256 hash of normalized content.
func HashContent(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}

func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
	})
	if sb.Len() == 0 {
		// Non-HTML payloads (sitemaps, feeds) have no body element.
		sb.WriteString(doc.Text())
	}

	return sb.String()
}
