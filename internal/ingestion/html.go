package ingestion

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "p, li, h1, h2, h3, h4, h5, h6, blockquote, pre, td, dt, dd, div"

// HTMLBlocks reduces an HTML transcript to its text blocks in document order.
// A div only counts as a block when it has no block-level descendants.
func HTMLBlocks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, form, iframe, svg").Remove()

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "div" && sel.Find(blockSelector).Length() > 0 {
			return
		}
		// nested blocks are emitted by the inner element
		if sel.ParentsFiltered("p, li, blockquote, pre, td, dd").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		if text := strings.Join(strings.Fields(doc.Find("body").Text()), " "); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks, nil
}
