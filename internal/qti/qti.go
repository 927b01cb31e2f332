// Package qti extracts questions and their answer choices from IMS/QTI-style
// assessment XML, such as a Canvas quiz export.
//
// The extraction is a single streaming pass that tags every text node by
// role: text under <itemmetadata> is metadata, text under <response_label>
// belongs to a choice, and the first remaining non-empty <mattext> is the
// question body. The first <varequal> inside a <conditionvar> names the
// correct response identifier.
package qti

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kevinhitt/canvas-grading/internal/model"
)

// Parse reads an assessment document and returns its items in document
// order. Malformed XML fails with no partial output. Items with no
// question text or no choices are still returned; downstream stages decide
// what to do with them.
func Parse(r io.Reader) ([]model.Item, error) {
	dec := xml.NewDecoder(r)
	var items []model.Item
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse exam markup: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "item" {
			continue
		}
		item, err := parseItem(dec, se)
		if err != nil {
			return nil, fmt.Errorf("parse exam markup: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseFile parses the assessment XML at path.
func ParseFile(path string) ([]model.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exam file: %w", err)
	}
	defer f.Close()
	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// parseItem consumes one <item> subtree, start element already read.
func parseItem(dec *xml.Decoder, start xml.StartElement) (model.Item, error) {
	item := model.Item{QuestionID: strings.TrimSpace(attr(start, "ident"))}

	var (
		depth      = 1
		metaDepth  int // inside <itemmetadata>
		labelDepth int // inside <response_label>
		condDepth  int // inside <conditionvar>

		correctID string
		choices   []model.Choice
		haveText  []bool // parallel to choices: first mattext already taken

		matBuf     strings.Builder
		matDepth   int
		matInMeta  bool
		matInLabel bool

		varBuf   strings.Builder
		varDepth int
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return item, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "itemmetadata":
				metaDepth++
			case "conditionvar":
				condDepth++
			case "response_label":
				labelDepth++
				choices = append(choices, model.Choice{
					ResponseID: strings.TrimSpace(attr(t, "ident")),
				})
				haveText = append(haveText, false)
			case "mattext":
				matDepth++
				if matDepth == 1 {
					matBuf.Reset()
					matInMeta = metaDepth > 0
					matInLabel = labelDepth > 0
				}
			case "varequal":
				if condDepth > 0 {
					varDepth++
					if varDepth == 1 {
						varBuf.Reset()
					}
				}
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "itemmetadata":
				metaDepth--
			case "conditionvar":
				condDepth--
			case "response_label":
				labelDepth--
			case "mattext":
				if matDepth > 0 {
					matDepth--
					if matDepth == 0 {
						text := strings.TrimSpace(matBuf.String())
						switch {
						case matInMeta:
							// Metadata text, never question or choice.
						case matInLabel:
							if n := len(choices); n > 0 && !haveText[n-1] {
								choices[n-1].Text = text
								haveText[n-1] = true
							}
						default:
							if item.QuestionText == "" && text != "" {
								item.QuestionText = text
							}
						}
					}
				}
			case "varequal":
				if varDepth > 0 {
					varDepth--
					if varDepth == 0 && correctID == "" {
						correctID = strings.TrimSpace(varBuf.String())
					}
				}
			}
		case xml.CharData:
			if matDepth > 0 {
				matBuf.Write(t)
			}
			if varDepth > 0 {
				varBuf.Write(t)
			}
		}
	}

	if correctID != "" {
		for i := range choices {
			choices[i].IsCorrect = choices[i].ResponseID == correctID
		}
	}
	item.Choices = choices
	return item, nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
