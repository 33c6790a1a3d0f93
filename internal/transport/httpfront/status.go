package httpfront

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"
)

const statusPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>imgserver status</title></head>
<body>
%s
</body></html>
`

func (s *Server) statusMarkdown() string {
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# imgserver\n\n")
	fmt.Fprintf(&markdownBuilder, "- **Front door**: `%s`\n", s.source)
	fmt.Fprintf(&markdownBuilder, "- **Uptime**: %s\n", time.Since(s.started).Truncate(time.Second))
	fmt.Fprintf(&markdownBuilder, "- **Forwarded requests**: %d\n", s.forwarded.Load())
	fmt.Fprintf(&markdownBuilder, "- **Failed requests**: %d\n\n", s.failed.Load())
	fmt.Fprintf(&markdownBuilder, "## Bound paths\n\n")
	for _, path := range s.options.Bind {
		fmt.Fprintf(&markdownBuilder, "- `%s`\n", path)
	}
	return markdownBuilder.String()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, statusPage, blackfriday.Run([]byte(s.statusMarkdown())))
}
