package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TableOptions configures ReadTable.
type TableOptions struct {
	Names       []string // Column names; nil names them V1, V2, ...
	SkipRows    int      // Lines to skip at the top
	NATokens    []string
	Categorical []string
}

// ReadTable reads a whitespace-separated table such as the text files
// shipped with the Commandeur and Koopman book. Blank lines are ignored.
func ReadTable(r io.Reader, opts *TableOptions) (*Frame, error) {
	if opts == nil {
		opts = &TableOptions{}
	}

	scanner := bufio.NewScanner(r)
	var rows [][]string
	line := 0
	for scanner.Scan() {
		line++
		if line <= opts.SkipRows {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	return build(opts.Names, rows, opts.NATokens, opts.Categorical)
}
