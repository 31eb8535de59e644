// Package stats tallies sizes and counts of the most important pieces of
// compiled bodies. The resulting numbers are good approximations, useful for
// profiling the compiler, not for correctness. It only reads finished bodies
// through the crate store's query surface.
package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/quill-lang/quill/compiler/cstore"
)

type nodeData struct {
	count int
	size  int
}

// Collector accumulates per-node-kind counts and item sizes.
type Collector struct {
	data map[string]*nodeData
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{data: make(map[string]*nodeData)}
}

// Record tallies one node of the given kind.
func (c *Collector) Record(label string, size int) {
	entry, ok := c.data[label]
	if !ok {
		entry = &nodeData{}
		c.data[label] = entry
	}
	entry.count++
	entry.size = size
}

// VisitBody walks one compiled body read-only.
func (c *Collector) VisitBody(body *cstore.Body) {
	for _, node := range body.Nodes {
		c.Record(node.Kind, node.Size)
	}
}

// CollectBodies fetches and visits the bodies of the given definitions.
func CollectBodies(store cstore.CrateStore, defs []cstore.DefId) *Collector {
	c := NewCollector()
	for _, def := range defs {
		c.VisitBody(store.ItemBody(def))
	}
	return c
}

const separator = "------------------------------------------------------------------------------"

// Print writes the statistics table: four fixed columns sorted ascending by
// accumulated size, with a separator rule before and after the rows.
func (c *Collector) Print(w io.Writer, title string) {
	type row struct {
		label string
		data  *nodeData
	}
	rows := make([]row, 0, len(c.data))
	for label, data := range c.data {
		rows = append(rows, row{label, data})
	}
	sort.Slice(rows, func(i, j int) bool {
		ai, aj := rows[i].data.count*rows[i].data.size, rows[j].data.count*rows[j].data.size
		if ai != aj {
			return ai < aj
		}
		return rows[i].label < rows[j].label
	})

	fmt.Fprintf(w, "\n%s\n\n", title)
	fmt.Fprintf(w, "%-32s%18s%14s%14s\n", "Name", "Accumulated Size", "Count", "Item Size")
	fmt.Fprintln(w, separator)
	for _, r := range rows {
		fmt.Fprintf(w, "%-32s%18s%14s%14s\n",
			r.label,
			readable(r.data.count*r.data.size),
			readable(r.data.count),
			readable(r.data.size))
	}
	fmt.Fprintln(w, separator)
}

// readable groups digits in threes with underscores, e.g. 1_024_000.
func readable(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '_')
		}
		out = append(out, d)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
