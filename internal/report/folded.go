// Package report serializes aggregated call trees into folded-stack text and
// pprof profiles, and reads folded reports back for analysis.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/countprof/countprof/internal/profiler/stacktree"
)

// Entry is one folded-stack record: an outer-to-inner call path of
// "unit:line" frames and the number of samples that ended on its last frame.
type Entry struct {
	Frames []string
	Count  uint64
}

// Path joins the entry's frames with the folded separator.
func (e Entry) Path() string {
	return strings.Join(e.Frames, ";")
}

// WriteFolded streams the tree as folded-stack lines:
//
//	frame1;frame2;...;frameN <count>\n
//
// exactly as consumed by flamegraph tooling. No header or footer. When
// emitZero is set, every tree node produces a line, including interior
// frames never caught as the innermost frame.
func WriteFolded(w io.Writer, t *stacktree.Tree, emitZero bool) error {
	bw := bufio.NewWriter(w)
	var werr error
	t.Walk(emitZero, func(stack []stacktree.Frame, self uint64) {
		if werr != nil {
			return
		}
		for i, f := range stack {
			if i > 0 {
				if err := bw.WriteByte(';'); err != nil {
					werr = err
					return
				}
			}
			if _, err := bw.WriteString(f.String()); err != nil {
				werr = err
				return
			}
		}
		if _, err := fmt.Fprintf(bw, " %d\n", self); err != nil {
			werr = err
		}
	})
	if werr != nil {
		return werr
	}
	return bw.Flush()
}

// Entries flattens the tree into folded records in the tree's deterministic
// walk order.
func Entries(t *stacktree.Tree, emitZero bool) []Entry {
	out := make([]Entry, 0, t.Nodes())
	t.Walk(emitZero, func(stack []stacktree.Frame, self uint64) {
		frames := make([]string, len(stack))
		for i, f := range stack {
			frames[i] = f.String()
		}
		out = append(out, Entry{Frames: frames, Count: self})
	})
	return out
}

// ParseFolded reads folded-stack lines back into entries. Blank lines are
// skipped; anything else that does not match "path count" is an error.
func ParseFolded(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		sep := strings.LastIndexByte(line, ' ')
		if sep <= 0 {
			return nil, fmt.Errorf("line %d: malformed folded line %q", lineNo, line)
		}
		count, err := strconv.ParseUint(line[sep+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad sample count: %w", lineNo, err)
		}
		out = append(out, Entry{
			Frames: strings.Split(line[:sep], ";"),
			Count:  count,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read folded report: %w", err)
	}
	return out, nil
}
