// Package render converts generated Markdown reports into standalone
// styled HTML pages.
package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WithUnsafe is required: the composer embeds the color-highlight spans as
// raw HTML inside the Markdown.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithUnsafe(),
	),
)

var titleCaser = cases.Title(language.English)

// Page converts one Markdown document into a complete HTML page.
func Page(src []byte, title string) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	page := strings.NewReplacer(
		"__TITLE__", title,
		"__CONTENT__", buf.String(),
	).Replace(pageShell)
	return []byte(page), nil
}

// Title derives a page title from a report file name: extension dropped,
// underscores and dashes become spaces, words title-cased.
func Title(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return titleCaser.String(base)
}

// Dir converts every .md file in inDir to an .html file in outDir,
// returning the number of pages written.
func Dir(inDir, outDir string) (int, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return 0, fmt.Errorf("read report dir: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create html dir: %w", err)
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(inDir, e.Name()))
		if err != nil {
			return count, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		page, err := Page(src, Title(e.Name()))
		if err != nil {
			return count, fmt.Errorf("render %s: %w", e.Name(), err)
		}
		out := strings.TrimSuffix(e.Name(), ".md") + ".html"
		if err := os.WriteFile(filepath.Join(outDir, out), page, 0o644); err != nil {
			return count, fmt.Errorf("write %s: %w", out, err)
		}
		count++
	}
	slog.Info("rendered HTML reports", "count", count, "dir", outDir)
	return count, nil
}

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>__TITLE__</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
  line-height: 1.6;
  color: #333;
  background-color: #f8f9fa;
  padding: 20px;
}
.container {
  max-width: 800px;
  margin: 0 auto;
  background: white;
  padding: 40px;
  border-radius: 10px;
  box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
}
h1, h2, h3, h4, h5, h6 {
  color: #2C68AA;
  margin-bottom: 0.5em;
  margin-top: 1em;
  font-weight: 600;
}
h1 {
  font-size: 2.5em;
  border-bottom: 3px solid #2C68AA;
  padding-bottom: 0.3em;
  margin-top: 0;
}
h3 { font-size: 1.5em; }
p { margin-bottom: 1em; }
strong { color: #2C68AA; }
hr {
  border: none;
  height: 2px;
  background: linear-gradient(to right, #2C68AA, #e9ecef);
  margin: 2em 0;
}
@media (max-width: 768px) {
  body { padding: 10px; }
  .container { padding: 20px; }
  h1 { font-size: 2em; }
}
</style>
</head>
<body>
<div class="container">
__CONTENT__
</div>
</body>
</html>
`
