// Package tei imports TEI-encoded XML documents, producing an annotated
// text with paragraph and sentence layers aligned to the extracted raw
// text.
package tei

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/span"
	"github.com/strata-nlp/strata/core/text"
	"github.com/strata-nlp/strata/internal/logging"
)

// Layer names produced by Import.
const (
	ParagraphLayer = "paragraphs"
	SentenceLayer  = "sentences"
)

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

// CheckExpression reports whether expr is a valid XPath expression.
func CheckExpression(expr string) error {
	if _, err := xpath.Compile(expr); err != nil {
		return errors.NewParse("xpath", "", err.Error())
	}
	return nil
}

// Import parses a TEI document and returns a text carrying the
// paragraphs and sentences layers. Paragraphs are separated with blank
// lines in the raw text, sentences within a paragraph with a space.
//
// Paragraphs come from //text//p elements. When a paragraph contains
// <s> children, each becomes a sentence span; otherwise the whole
// paragraph is one sentence.
func Import(data []byte) (*text.Text, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParse("TEI", "", err.Error())
	}

	paragraphs := xmlquery.Find(doc, "//text//p")
	if len(paragraphs) == 0 {
		return nil, errors.NewParse("TEI", "", "no //text//p elements found")
	}

	var (
		raw       strings.Builder
		paraSpans []span.Elementary
		sentSpans []span.Elementary
	)
	for _, p := range paragraphs {
		var contents []string
		if sentences := xmlquery.Find(p, "./s"); len(sentences) == 0 {
			if content := normalize(innerText(p)); content != "" {
				contents = append(contents, content)
			}
		} else {
			for _, s := range sentences {
				if content := normalize(innerText(s)); content != "" {
					contents = append(contents, content)
				}
			}
		}
		if len(contents) == 0 {
			continue
		}

		if raw.Len() > 0 {
			raw.WriteString(paragraphSep)
		}
		paraStart := raw.Len()
		for j, content := range contents {
			if j > 0 {
				raw.WriteString(sentenceSep)
			}
			sentStart := raw.Len()
			raw.WriteString(content)
			sentSpans = append(sentSpans, span.MustElementary(sentStart, raw.Len()))
		}
		paraSpans = append(paraSpans, span.MustElementary(paraStart, raw.Len()))
	}

	t := text.New(raw.String())
	if title := findTitle(doc); title != "" {
		t.Meta["title"] = title
	}

	paraLayer := layer.MustNew(layer.Def{Name: ParagraphLayer})
	for _, sp := range paraSpans {
		if _, err := paraLayer.AddSpan(sp.Start(), sp.End(), nil); err != nil {
			return nil, err
		}
	}
	if err := t.AddLayer(paraLayer); err != nil {
		return nil, err
	}

	sentLayer := layer.MustNew(layer.Def{Name: SentenceLayer})
	for _, sp := range sentSpans {
		if _, err := sentLayer.AddSpan(sp.Start(), sp.End(), nil); err != nil {
			return nil, err
		}
	}
	if err := t.AddLayer(sentLayer); err != nil {
		return nil, err
	}

	logging.Debug("TEI document imported",
		"paragraphs", paraLayer.Len(), "sentences", sentLayer.Len())
	return t, nil
}

// findTitle extracts the document title from the TEI header, if present.
func findTitle(doc *xmlquery.Node) string {
	node := xmlquery.FindOne(doc, "//teiHeader//titleStmt/title")
	if node == nil {
		return ""
	}
	return normalize(innerText(node))
}

// innerText collects the text content of a node, skipping nested <note>
// elements, which are editorial rather than document text.
func innerText(n *xmlquery.Node) string {
	var b strings.Builder
	var walk func(*xmlquery.Node)
	walk = func(node *xmlquery.Node) {
		if node.Type == xmlquery.TextNode {
			b.WriteString(node.Data)
			return
		}
		if node.Type == xmlquery.ElementNode && node.Data == "note" {
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

// normalize collapses runs of whitespace to single spaces and trims the
// result, so element indentation does not leak into the raw text.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
