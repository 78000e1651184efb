package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// DefaultVarName is the variable the search widget reads
const DefaultVarName = "searchData"

// Encode writes entries in the generator's searchData format. Parsing the
// output yields the same entries in the same order.
func Encode(w io.Writer, entries []types.SearchEntry) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("var " + DefaultVarName + "=\n[\n")
	for i := range entries {
		e := &entries[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("cannot encode entry %d: %w", i, err)
		}

		bw.WriteString("  [")
		writeQuoted(bw, e.Key)
		bw.WriteString(",[")
		writeQuoted(bw, e.DisplayName)
		for _, occ := range e.Occurrences {
			bw.WriteString(",[")
			writeQuoted(bw, occ.Anchor)
			bw.WriteByte(',')
			bw.WriteString(strconv.Itoa(occ.LinkFlag))
			bw.WriteByte(',')
			writeQuoted(bw, occ.Owner)
			bw.WriteByte(']')
		}
		bw.WriteString("]]")
		if i < len(entries)-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("];\n")

	return bw.Flush()
}

// EncodeFile writes entries to path, replacing any existing file
func EncodeFile(path string, entries []types.SearchEntry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return Encode(f, entries)
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
)

func writeQuoted(w *bufio.Writer, s string) {
	w.WriteByte('\'')
	_, _ = quoteReplacer.WriteString(w, s)
	w.WriteByte('\'')
}
