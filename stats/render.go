package stats

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zintix-labs/clawlab/errs"
	"gopkg.in/yaml.v3"
)

// StatReportRender 機台報表輸出
type StatReportRender interface {
	Write(w io.Writer, r *StatReport) error
}

// EstimatorRender 玩家估計輸出
type EstimatorRender interface {
	Write(w io.Writer, e *EstimatorPlayers) error
}

type JsonStatReportRender struct{}

func (*JsonStatReportRender) Write(w io.Writer, r *StatReport) error { return writeJSON(w, r) }

type YAMLStatReportRender struct{}

func (*YAMLStatReportRender) Write(w io.Writer, r *StatReport) error { return writeYAML(w, r) }

// TableStatReportRender 與 StdOut 相同的表格，但寫到 w，且不含用時。
type TableStatReportRender struct{}

func (*TableStatReportRender) Write(w io.Writer, r *StatReport) error {
	for _, t := range r.tables() {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}

type JsonEstimatorRender struct{}

func (*JsonEstimatorRender) Write(w io.Writer, e *EstimatorPlayers) error { return writeJSON(w, e) }

type YAMLEstimatorRender struct{}

func (*YAMLEstimatorRender) Write(w io.Writer, e *EstimatorPlayers) error { return writeYAML(w, e) }

type TableEstimatorRender struct{}

func (*TableEstimatorRender) Write(w io.Writer, e *EstimatorPlayers) error { return e.writeTable(w) }

// RenderByName json | yaml | table
func RenderByName(name string) (StatReportRender, error) {
	switch name {
	case "json":
		return &JsonStatReportRender{}, nil
	case "yaml":
		return &YAMLStatReportRender{}, nil
	case "table":
		return &TableStatReportRender{}, nil
	}
	return nil, errs.Warnf("unknown render format %q", name)
}

// EstimatorRenderByName 同 RenderByName
func EstimatorRenderByName(name string) (EstimatorRender, error) {
	switch name {
	case "json":
		return &JsonEstimatorRender{}, nil
	case "yaml":
		return &YAMLEstimatorRender{}, nil
	case "table":
		return &TableEstimatorRender{}, nil
	}
	return nil, errs.Warnf("unknown render format %q", name)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML 只含純量的 sequence 以 flow style 輸出（[a, b]），巢狀的維持展開。
func writeYAML(w io.Writer, v any) error {
	var doc yaml.Node
	if err := doc.Encode(v); err != nil {
		return errs.Wrap(err, "yaml encode")
	}
	flowLeafSeqs(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// flowLeafSeqs 回傳 n 是否為 sequence
func flowLeafSeqs(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	nested := false
	for _, c := range n.Content {
		if flowLeafSeqs(c) {
			nested = true
		}
	}
	if n.Kind != yaml.SequenceNode {
		return false
	}
	if !nested {
		n.Style = yaml.FlowStyle
	}
	return true
}
