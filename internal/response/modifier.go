// Package response post-processes rendered HTML. The splices are plain text
// operations on the first matching tag; markup is not parsed.
package response

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

// Modifier rewrites a rendered page.
type Modifier interface {
	Modify(html string) string
}

// Chain applies modifiers in order.
type Chain []Modifier

func (c Chain) Modify(html string) string {
	for _, m := range c {
		html = m.Modify(html)
	}
	return html
}

// capture collects what the action's handlers write.
func capture(a *hooks.Action[io.Writer]) string {
	var buf bytes.Buffer
	hooks.Capture(a, &buf)
	return buf.String()
}

var bodyClose = regexp.MustCompile(`(?i)</body[^>]*?>`)

// Footer inserts the "footer" broadcast before the first closing body tag.
type Footer struct {
	action *hooks.Action[io.Writer]
}

func NewFooter(a *hooks.Action[io.Writer]) *Footer { return &Footer{action: a} }

func (f *Footer) Modify(html string) string {
	if html == "" {
		return html
	}
	footer := capture(f.action)
	if footer == "" {
		return html
	}
	loc := bodyClose.FindStringIndex(html)
	if loc == nil {
		return html
	}
	return html[:loc[0]] + footer + html[loc[0]:]
}

const headClose = "</head>"

// Header inserts the "header" broadcast before the first literal </head>.
// Without that anchor the captured markup is dropped.
type Header struct {
	action *hooks.Action[io.Writer]
}

func NewHeader(a *hooks.Action[io.Writer]) *Header { return &Header{action: a} }

func (h *Header) Modify(html string) string {
	if html == "" {
		return html
	}
	header := capture(h.action)
	if header == "" {
		return html
	}
	i := strings.Index(html, headClose)
	if i < 0 {
		logger.Debugf("header: no %s in response, dropped %d bytes", headClose, len(header))
		return html
	}
	return html[:i] + header + html[i:]
}
