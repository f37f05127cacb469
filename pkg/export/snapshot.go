// Package export renders the filtered tree to files: static SVG and PNG
// snapshots and Mermaid flowcharts.
package export

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// Format is an export file format.
type Format string

const (
	FormatSVG     Format = "svg"
	FormatPNG     Format = "png"
	FormatMermaid Format = "mermaid"
)

// FormatForPath infers the format from a file extension. Paths without an
// extension default to SVG.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg", "":
		return FormatSVG, nil
	case ".png":
		return FormatPNG, nil
	case ".mmd", ".mermaid":
		return FormatMermaid, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want .svg, .png or .mmd)", filepath.Ext(path))
}

// SnapshotOptions controls snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format Format
	Title  string // Optional title rendered in the summary block
	Preset string // Layout preset: "compact" (default) or "roomy"
	// Roots are the filtered items, as returned by the controller.
	Roots []*tree.Item
}

// SaveSnapshot writes the filtered tree to opts.Path.
func SaveSnapshot(opts SnapshotOptions) error {
	if len(opts.Roots) == 0 {
		return fmt.Errorf("no items to export")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	format := opts.Format
	if format == "" {
		var err error
		if format, err = FormatForPath(opts.Path); err != nil {
			return err
		}
		if filepath.Ext(opts.Path) == "" {
			opts.Path += ".svg"
		}
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	switch format {
	case FormatSVG:
		f, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		return WriteSVG(f, opts)
	case FormatPNG:
		return renderPNG(opts.Path, buildLayout(opts))
	case FormatMermaid:
		return os.WriteFile(opts.Path, []byte(GenerateMermaid(opts.Roots, MermaidConfig{})), 0o644)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteSVG renders the snapshot as SVG to w.
func WriteSVG(w io.Writer, opts SnapshotOptions) error {
	if len(opts.Roots) == 0 {
		return fmt.Errorf("no items to export")
	}
	renderSVG(w, buildLayout(opts))
	return nil
}

// Fingerprint hashes the attach names and labels of the visible items, so
// two snapshots of the same view carry the same hash.
func Fingerprint(roots []*tree.Item) string {
	h := fnv.New64a()
	walk(roots, 0, func(it *tree.Item, _ int) {
		_, _ = io.WriteString(h, it.AttachName)
		_, _ = io.WriteString(h, "\x00")
		_, _ = io.WriteString(h, it.Label())
		_, _ = io.WriteString(h, "\x00")
	})
	return fmt.Sprintf("%016x", h.Sum64())
}

// walk visits the visible items in pre-order.
func walk(items []*tree.Item, depth int, fn func(it *tree.Item, depth int)) {
	for _, it := range items {
		fn(it, depth)
		walk(it.FilteredChildren, depth+1, fn)
	}
}

// --- layout computation ----------------------------------------------------

type layoutNode struct {
	Label  string
	Class  string
	Type   tree.ItemType
	Match  bool
	Depth  int
	X, Y   float64
	NodeW  float64
	NodeH  float64
	parent int
}

type layoutResult struct {
	Nodes   []layoutNode
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title      string
	DataHash   string
	Managers   int
	Nodes      int
	Properties int
	Matches    int
}

// buildLayout places one item per row, indented by depth, so parent edges
// run down and to the right like the terminal tree.
func buildLayout(opts SnapshotOptions) layoutResult {
	const (
		nodeWCompact  = 220.0
		nodeHCompact  = 44.0
		nodeWRoomy    = 260.0
		nodeHRoomy    = 56.0
		colGapCompact = 40.0
		rowGapCompact = 14.0
		colGapRoomy   = 60.0
		rowGapRoomy   = 22.0
		padding       = 36.0
		headerHeight  = 120.0
	)

	nodeW, nodeH, colGap, rowGap := nodeWCompact, nodeHCompact, colGapCompact, rowGapCompact
	if strings.EqualFold(opts.Preset, "roomy") {
		nodeW, nodeH, colGap, rowGap = nodeWRoomy, nodeHRoomy, colGapRoomy, rowGapRoomy
	}

	var nodes []layoutNode
	var summary summaryInfo
	// stack[d] is the index of the last node placed at depth d
	var stack []int
	maxDepth := 0
	walk(opts.Roots, 0, func(it *tree.Item, depth int) {
		parent := -1
		if depth > 0 && depth-1 < len(stack) {
			parent = stack[depth-1]
		}
		n := layoutNode{
			Label:  truncate(it.Label(), 34),
			Class:  truncate(it.Class(), 30),
			Type:   it.Type,
			Match:  it.Result == tree.ShownHighlighted,
			Depth:  depth,
			X:      padding + float64(depth)*colGap,
			Y:      padding + headerHeight + float64(len(nodes))*(nodeH+rowGap),
			NodeW:  nodeW,
			NodeH:  nodeH,
			parent: parent,
		}
		stack = append(stack[:depth], len(nodes))
		nodes = append(nodes, n)
		if depth > maxDepth {
			maxDepth = depth
		}

		switch it.Type {
		case tree.TypeManager:
			summary.Managers++
		case tree.TypeNode:
			summary.Nodes++
		case tree.TypeProperty:
			summary.Properties++
		}
		if n.Match {
			summary.Matches++
		}
	})

	width := int(padding*2 + float64(maxDepth)*colGap + nodeW)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + float64(len(nodes))*(nodeH+rowGap))
	if height < 480 {
		height = 480
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Tree Snapshot"
	}
	summary.Title = title
	summary.DataHash = Fingerprint(opts.Roots)

	return layoutResult{
		Nodes:   nodes,
		Width:   width,
		Height:  height,
		Header:  headerHeight,
		Summary: summary,
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorManager  = color.RGBA{0xd1, 0xc4, 0xe9, 0xff}
	colorNode     = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorProperty = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorMatch    = color.RGBA{0xff, 0x8f, 0x00, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func kindColor(t tree.ItemType) color.RGBA {
	switch t {
	case tree.TypeManager:
		return colorManager
	case tree.TypeNode:
		return colorNode
	default:
		return colorProperty
	}
}

func strokeFor(n layoutNode) (color.RGBA, float64) {
	if n.Match {
		return colorMatch, 2.5
	}
	return colorStroke, 1.2
}

// edgePoints runs from the left edge of the parent down to the middle of
// the child's left side.
func edgePoints(from, to layoutNode) (x1, y1, x2, y2 float64) {
	return from.X + 12, from.Y + from.NodeH, to.X, to.Y + to.NodeH/2
}

func summaryLines(s summaryInfo) []string {
	return []string{
		fmt.Sprintf("data_hash: %s", s.DataHash),
		fmt.Sprintf("managers: %d  nodes: %d  properties: %d", s.Managers, s.Nodes, s.Properties),
		fmt.Sprintf("matches: %d", s.Matches),
	}
}

var legendRows = []struct {
	c     color.RGBA
	label string
}{
	{colorManager, "Manager"},
	{colorNode, "Node"},
	{colorProperty, "Property"},
	{colorMatch, "Filter match"},
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	// header
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)

	// edges
	dc.SetColor(colorEdge)
	dc.SetLineWidth(1.5)
	for _, n := range layout.Nodes {
		if n.parent < 0 {
			continue
		}
		x1, y1, x2, y2 := edgePoints(layout.Nodes[n.parent], n)
		dc.MoveTo(x1, y1)
		dc.LineTo(x1, y2)
		dc.LineTo(x2, y2)
		dc.Stroke()
	}

	for _, n := range layout.Nodes {
		drawNode(dc, n)
	}

	return dc.SavePNG(path)
}

func renderSVG(w io.Writer, layout layoutResult) {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, layout)
	drawLegendSVG(canvas, layout)

	for _, n := range layout.Nodes {
		if n.parent < 0 {
			continue
		}
		x1, y1, x2, y2 := edgePoints(layout.Nodes[n.parent], n)
		canvas.Polyline(
			[]int{int(x1), int(x1), int(x2)},
			[]int{int(y1), int(y2), int(y2)},
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorEdge)),
		)
	}

	for _, n := range layout.Nodes {
		x := int(n.X)
		y := int(n.Y)
		stroke, width := strokeFor(n)
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(kindColor(n.Type)), css(stroke), width))
		canvas.Text(x+10, y+18, n.Label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;font-weight:bold", css(colorText)))
		if n.Class != "" {
			canvas.Text(x+10, y+34, n.Class, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		}
	}

	canvas.End()
}

func drawNode(dc *gg.Context, n layoutNode) {
	dc.SetColor(kindColor(n.Type))
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 6)
	dc.Fill()
	stroke, width := strokeFor(n)
	dc.SetColor(stroke)
	dc.SetLineWidth(width)
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 6)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(n.Label, n.X+10, n.Y+14, 0, 0.5)
	if n.Class != "" {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(n.Class, n.X+10, n.Y+30, 0, 0.5)
	}
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(layout.Summary) {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW := 180.0
	boxH := 96.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, row := range legendRows {
		drawLegendRow(dc, x+12, y+36+float64(i)*16, row.c, row.label)
	}
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func drawSummaryBlockSVG(canvas *svg.SVG, layout layoutResult) {
	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(layout.Summary) {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	boxW := 180
	boxH := 96
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, row := range legendRows {
		canvas.Roundrect(x+12, y+36+i*16-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(row.c), css(colorStroke)))
		canvas.Text(x+32, y+36+i*16, row.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
