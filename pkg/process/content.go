package process

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"company-crawler/pkg/models"
	"company-crawler/pkg/utils"
)

// ParserName is recorded in every .meta.json so downstream consumers know
// which HTML parser produced the clean text.
const ParserName = "goquery"

const maxTitleLength = 400

var whitespaceRuns = regexp.MustCompile(`\s+`)

// strippedTags are removed wholesale before text extraction: non-content
// payloads first, then structural chrome that pads every page of a site with
// the same words.
var strippedTags = []string{"script", "style", "noscript", "svg", "nav", "footer", "form", "iframe"}

// Normalizer converts raw HTML into clean text and provenance metadata.
type Normalizer struct {
	log *logrus.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(log *logrus.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// CleanText strips script/style/chrome elements and returns the page's
// visible text with whitespace runs collapsed to single spaces. The result
// contains no HTML tags. Text nodes are joined with a space so adjacent
// elements never merge into one word.
func (n *Normalizer) CleanText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		n.log.Warnf("Could not parse HTML for text extraction: %v", err)
		return ""
	}
	doc.Find(strings.Join(strippedTags, ", ")).Remove()

	var sb strings.Builder
	for _, node := range doc.Nodes {
		appendTextNodes(node, &sb)
	}
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(sb.String(), " "))
}

func appendTextNodes(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendTextNodes(c, sb)
	}
}

// ExtractMeta builds the provenance metadata record for a fetched page. The
// fingerprint is computed over the raw HTML bytes exactly as written to disk,
// never over the cleaned text.
func (n *Normalizer) ExtractMeta(rawHTML []byte, pageURL, companyName string, status int, now time.Time) models.PageMeta {
	fp := utils.FingerprintBytes(rawHTML)
	meta := models.PageMeta{
		CompanyName:   companyName,
		SourceURL:     pageURL,
		CrawledAt:     models.UTCTimestamp(now),
		HTTPStatus:    status,
		Canonical:     pageURL,
		ContentSHA256: fp.SHA256,
		ContentLength: fp.Length,
		Parser:        ParserName,
		Version:       1,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(rawHTML)))
	if err != nil {
		n.log.Warnf("Could not parse HTML for metadata extraction (%s): %v", pageURL, err)
		return meta
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	// Truncate by runes so a multibyte title is never cut mid-character.
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	meta.Title = title

	if canonical := canonicalLink(doc, pageURL); canonical != "" {
		meta.Canonical = canonical
	}
	meta.Robots = robotsMeta(doc)
	return meta
}

// canonicalLink returns the page's <link rel="canonical"> href resolved to an
// absolute URL, or "" when absent or unresolvable.
func canonicalLink(doc *goquery.Document, pageURL string) string {
	var href string
	doc.Find("link[rel][href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		rel, _ := link.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "canonical") {
			return true
		}
		href, _ = link.Attr("href")
		return false
	})
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// robotsMeta returns the content of the page's robots meta tag, if any.
func robotsMeta(doc *goquery.Document) string {
	var content string
	doc.Find("meta[name][content]").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		name, _ := meta.Attr("name")
		if !strings.Contains(strings.ToLower(name), "robots") {
			return true
		}
		content, _ = meta.Attr("content")
		return false
	})
	return content
}

// DescribePage is a convenience for logging one saved page.
func DescribePage(section models.Section, meta models.PageMeta) string {
	return fmt.Sprintf("%s (%d bytes, sha256 %.12s...)", section, meta.ContentLength, meta.ContentSHA256)
}
