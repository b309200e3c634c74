// Package report renders channel assignments for people and for other tools.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	SignalColor = lipgloss.Color("#FF6464")
	IdlerColor  = lipgloss.Color("#6464FF")
	LegendColor = lipgloss.Color("#C8C8C8")
)

const (
	nodeWidth    = 10
	channelWidth = 6
)

// Table writes a to w as one row per node, signal channels first. Nodes
// without channels are listed with an empty row. If nodes is nil the nodes of
// a are used. Colour is applied only if w supports it.
func Table(w io.Writer, a chandist.Assignment, nodes []string, ok bool) error {
	r := lipgloss.NewRenderer(w)
	var (
		nodeStyle   = r.NewStyle().Bold(true).Foreground(LegendColor).Width(nodeWidth)
		signalStyle = r.NewStyle().Foreground(SignalColor).Width(channelWidth)
		idlerStyle  = r.NewStyle().Foreground(IdlerColor).Width(channelWidth)
		legendStyle = r.NewStyle().MarginTop(1)
		errStyle    = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
		okStyle     = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	)
	if nodes == nil {
		nodes = a.Nodes()
	}
	sorted := chandist.Sorted(a)

	var rows []string
	for _, n := range nodes {
		cells := []string{nodeStyle.Render("Node " + n + ":")}
		for _, e := range sorted[n] {
			if e.Role == chandist.Signal {
				cells = append(cells, signalStyle.Render(e.Label))
			} else {
				cells = append(cells, idlerStyle.Render(e.Label))
			}
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	legend := lipgloss.JoinVertical(lipgloss.Left,
		r.NewStyle().Foreground(SignalColor).Render("Signal Channels"),
		r.NewStyle().Foreground(IdlerColor).Render("Idler Channels"),
	)
	rows = append(rows, legendStyle.Render(legend))
	if ok {
		rows = append(rows, okStyle.Render("Assignment successful with no duplicates."))
	} else {
		rows = append(rows, errStyle.Render("Failed to resolve duplicates after maximum attempts."))
	}
	_, err := fmt.Fprintln(w, strings.Join(rows, "\n"))
	return err
}

var columns = []string{"Node", "Channel", "Index", "Role"}

const lineTmpl = "{{.Node}}, {{.Channel}}, {{.Index}}, {{.Role}}\n"

var line = template.Must(template.New("line").Parse(lineTmpl))

// A Row is one (node, channel) pair of an assignment, as written by CSV.
type Row struct {
	Node    string
	Channel string
	Index   int
	Role    string
}

// Rows flattens a into one Row per held channel, nodes in alphabetical order
// and channels in display order.
func Rows(a chandist.Assignment) []Row {
	sorted := chandist.Sorted(a)
	var r []Row
	for _, n := range sorted.Nodes() {
		for _, e := range sorted[n] {
			r = append(r, Row{Node: n, Channel: e.Label, Index: e.Index, Role: e.Role.String()})
		}
	}
	return r
}

// CSV writes a to w as comma separated lines under a header.
func CSV(w io.Writer, a chandist.Assignment) error {
	if _, err := fmt.Fprintln(w, strings.Join(columns, ", ")); err != nil {
		return err
	}
	for _, row := range Rows(a) {
		if err := line.Execute(w, row); err != nil {
			return err
		}
	}
	return nil
}

// Meta describes the run that produced an assignment.
type Meta struct {
	RunID    string
	Seed     int64
	Attempts int
	OK       bool
}

// Struct converts a and meta into a protobuf Struct.
func Struct(a chandist.Assignment, meta Meta) (*structpb.Struct, error) {
	sorted := chandist.Sorted(a)
	nodes := make(map[string]interface{}, len(sorted))
	for _, n := range sorted.Nodes() {
		chans := make([]interface{}, 0, len(sorted[n]))
		for _, e := range sorted[n] {
			chans = append(chans, map[string]interface{}{
				"channel": e.Label,
				"index":   e.Index,
				"role":    e.Role.String(),
			})
		}
		nodes[n] = chans
	}
	return structpb.NewStruct(map[string]interface{}{
		"run_id":   meta.RunID,
		"seed":     fmt.Sprint(meta.Seed),
		"attempts": meta.Attempts,
		"ok":       meta.OK,
		"nodes":    nodes,
	})
}

// JSON writes a and meta to w as indented JSON.
func JSON(w io.Writer, a chandist.Assignment, meta Meta) error {
	s, err := Struct(a, meta)
	if err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
