package query

import (
	"errors"
	"fmt"
	"strings"

	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

// splitCommand separates a line's leading command keyword from the
// remainder of the line. The keyword is returned exactly as written —
// command dispatch is case-sensitive, so "auth foo" does not match AUTH.
func splitCommand(line string) (command, rest string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// splitFirstSpace splits args into its first whitespace-delimited token
// and everything after it, used for PUBLISH's "<channel> <message>".
func splitFirstSpace(args string) (first, rest string, ok bool) {
	args = strings.TrimSpace(args)
	idx := strings.IndexByte(args, ' ')
	if idx < 0 {
		return "", "", false
	}
	return args[:idx], strings.TrimSpace(args[idx+1:]), true
}

// splitIDAndJSON splits UPDATE's "<id> <json>" argument form.
func splitIDAndJSON(args string) (id, rawJSON string, ok bool) {
	return splitFirstSpace(args)
}

// parseDocument decodes a JSON object body into a Document, rejecting
// arrays anywhere in the tree, since the wire codec has no Array frame.
func parseDocument(rawJSON string) (value.Document, error) {
	v, err := value.ParseJSON([]byte(rawJSON))
	if err != nil {
		return nil, err
	}
	doc, err := value.FromValue(v)
	if err != nil {
		return nil, err
	}
	if doc.ContainsArray() {
		return nil, fluxerrors.ErrArrayNotPersistable
	}
	return doc, nil
}

// parseErrorLabel converts a parseDocument/FIND-parse error into the
// protocol's error token.
func parseErrorLabel(err error) string {
	if errors.Is(err, fluxerrors.ErrArrayNotPersistable) {
		return "ARRAYS_NOT_SUPPORTED"
	}
	return "PARSE_ERROR"
}

// insertErrorLabel converts an Insert/Update failure into the protocol's
// error token.
func insertErrorLabel(err error) string {
	if errors.Is(err, fluxerrors.ErrArrayNotPersistable) {
		return "ARRAYS_NOT_SUPPORTED"
	}
	return "INSERT_FAILED"
}

// formatRow renders a single result row in the multi-line response
// format: "ID <id> <json>".
func formatRow(id uint64, doc value.Document) string {
	return fmt.Sprintf("ID %d %s", id, doc.ToValue().ToJSON())
}

// joinLines assembles a header line followed by zero or more row lines.
func joinLines(header string, rows []string) string {
	if len(rows) == 0 {
		return header
	}
	return header + "\n" + strings.Join(rows, "\n")
}
