package notification

import (
	"fmt"
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/build"
)

// Composer turns a classified build into a Message.
type Composer struct {
	BaseURL string
	Texts   Texts
}

// Compose builds the message for rec. It never fails; missing data yields
// empty fields.
func (c Composer) Compose(rec *build.Record, status build.Status, extra string) Message {
	return Message{
		Title:     fmt.Sprintf("%s - Build #%d of %s", c.Texts.Label(status), rec.Number, rec.Project),
		Body:      c.body(rec),
		Priority:  PriorityFor(status),
		Link:      joinURL(c.BaseURL, rec.URL),
		LinkLabel: DefaultLinkLabel,
		Extra:     extra,
	}
}

func (c Composer) body(rec *build.Record) string {
	text := c.Texts.ResultText(rec.Result)
	if len(rec.Changes) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")
	for _, ch := range rec.Changes {
		b.WriteString("\n")
		b.WriteString(ch.Message)
		b.WriteString(" - ")
		b.WriteString(ch.Author)
	}
	return b.String()
}

// joinURL concatenates base and path with exactly one slash between them.
func joinURL(base, path string) string {
	switch {
	case base == "":
		return path
	case path == "":
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
