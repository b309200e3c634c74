package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/google/go-cmp/cmp"
)

var sample = chandist.Assignment{
	"B": {{Label: "H14", Index: 1, Role: chandist.Idler}, {Label: "C16", Index: 4, Role: chandist.Signal}},
	"A": {{Label: "C15", Index: 2, Role: chandist.Idler}, {Label: "C14", Index: 0, Role: chandist.Signal}},
	"C": {{Label: "C14", Index: 0, Role: chandist.Signal}},
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(&buf, sample, []string{"A", "B", "C", "D"}, true); err != nil {
		t.Fatalf("Table(): %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	tcs := []struct {
		line   int
		eorder []string
	}{
		{0, []string{"Node A:", "C14", "C15"}},
		{1, []string{"Node B:", "C16", "H14"}},
		{2, []string{"Node C:", "C14"}},
		{3, []string{"Node D:"}},
	}
	for _, tc := range tcs {
		l := lines[tc.line]
		last := -1
		for _, s := range tc.eorder {
			i := strings.Index(l, s)
			if i <= last {
				t.Errorf("line %d == %q, want %v in order", tc.line, l, tc.eorder)
				break
			}
			last = i
		}
	}
	for _, s := range []string{"Signal Channels", "Idler Channels", "successful"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("Table() output lacks %q:\n%s", s, buf.String())
		}
	}
}

func TestTableFailure(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(&buf, sample, nil, false); err != nil {
		t.Fatalf("Table(): %v", err)
	}
	if !strings.Contains(buf.String(), "Failed to resolve duplicates") {
		t.Errorf("Table() did not report the failure:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Node D:") {
		t.Errorf("Table() listed a node outside the assignment")
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sample); err != nil {
		t.Fatalf("CSV(): %v", err)
	}
	want := `Node, Channel, Index, Role
A, C14, 0, signal
A, C15, 2, idler
B, C16, 4, signal
B, H14, 1, idler
C, C14, 0, signal
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("CSV() mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := Meta{RunID: "run-1", Seed: 44, Attempts: 3, OK: true}
	if err := JSON(&buf, sample, meta); err != nil {
		t.Fatalf("JSON(): %v", err)
	}
	var got struct {
		RunID    string  `json:"run_id"`
		Seed     string  `json:"seed"`
		Attempts float64 `json:"attempts"`
		OK       bool    `json:"ok"`
		Nodes    map[string][]struct {
			Channel string  `json:"channel"`
			Index   float64 `json:"index"`
			Role    string  `json:"role"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("JSON() produced invalid JSON: %v\n%s", err, buf.String())
	}
	if got.RunID != "run-1" || got.Seed != "44" || got.Attempts != 3 || !got.OK {
		t.Errorf("JSON() metadata == %+v", got)
	}
	if len(got.Nodes) != 3 || got.Nodes["B"][0].Channel != "C16" || got.Nodes["B"][1].Role != "idler" {
		t.Errorf("JSON() nodes == %+v", got.Nodes)
	}
}
