package features

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"

	"github.com/Tezha3/phishing-url-detection/collectors/page"
)

// Network holds the signals derived from the fetched page. When the page is
// unavailable, every signal is absent and Err tells why.
type Network struct {
	Hyperlinks        Value
	ExtHyperlinkRatio Value
	DomainInTitle     Value
	Err               error
}

func unavailableNetwork(err error) Network {
	return Network{
		Hyperlinks:        Absent,
		ExtHyperlinkRatio: Absent,
		DomainInTitle:     Absent,
		Err:               err,
	}
}

// ExtractNetwork derives all page signals from the single fetch of the URL.
// label is the registrable domain label ("example" for "sub.example.co.uk"),
// empty when unknown.
func ExtractNetwork(res page.Result, label string) Network {
	if !res.Ok() {
		return unavailableNetwork(res.Err)
	}

	var r io.Reader = bytes.NewReader(res.Body)
	if cr, err := charset.NewReader(r, res.ContentType); err == nil {
		r = cr
	} else {
		r = bytes.NewReader(res.Body)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return unavailableNetwork(errors.Wrap(err, "parse html"))
	}

	anchors := doc.Find("a")
	total := anchors.Length()
	ext := 0
	anchors.Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.AttrOr("href", ""), "http") {
			ext++
		}
	})
	ratio := 0.0
	if total > 0 {
		ratio = float64(ext) / float64(total)
	}

	net := Network{
		Hyperlinks:        Int(total),
		ExtHyperlinkRatio: Float(ratio),
		DomainInTitle:     domainInTitle(doc, label),
	}
	return net
}

func domainInTitle(doc *goquery.Document, label string) Value {
	title := doc.Find("title").First()
	if title.Length() == 0 || label == "" {
		return Absent
	}
	text := strings.ToLower(title.Text())
	return Bool(strings.Contains(text, strings.ToLower(label)))
}
