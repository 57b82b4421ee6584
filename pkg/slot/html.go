package slot

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractHTML extracts candidates from a raw page snapshot instead of live
// element handles. Used as a fallback when node queries matched nothing but
// the markup may still carry slot text. Selectors are tried in order; the
// first that yields any candidate wins.
func ExtractHTML(html string, selectors []string) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	for _, sel := range selectors {
		var out []Candidate
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if _, disabled := s.Attr("disabled"); disabled {
				return
			}
			if cls, ok := s.Attr("class"); ok && strings.Contains(cls, "disabled") {
				return
			}
			out = appendCandidate(out, s.Text())
		})
		if len(out) > 0 {
			return out, nil
		}
	}

	return nil, nil
}
