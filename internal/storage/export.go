package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/blocksim/internal/dynamo"
)

type ExportData struct {
	Diagram    string               `json:"diagram"`
	Integrator string               `json:"integrator"`
	Dt         float64              `json:"dt"`
	Duration   float64              `json:"duration"`
	Status     string               `json:"status"`
	Steps      int                  `json:"steps"`
	Times      []float64            `json:"times"`
	StateNames []string             `json:"state_names"`
	States     [][]float64          `json:"states"`
	DStates    [][]float64          `json:"dstates,omitempty"`
	Watched    map[string][]float64 `json:"watched,omitempty"`
	Ticks      []dynamo.Tick        `json:"ticks,omitempty"`
	Metrics    map[string]float64   `json:"metrics"`
}

func NewExportData(info RunInfo, result *dynamo.Result) ExportData {
	data := ExportData{
		Diagram:    info.Diagram,
		Integrator: info.Integrator,
		Dt:         info.Dt,
		Duration:   info.Duration,
		Status:     result.Status.String(),
		Steps:      len(result.Times),
		Times:      result.Times,
		StateNames: info.StateNames,
		States:     make([][]float64, len(result.States)),
		Ticks:      result.Ticks,
		Metrics:    result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	if len(result.DStates) > 0 && len(result.DStates[0]) > 0 {
		data.DStates = make([][]float64, len(result.DStates))
		for i, d := range result.DStates {
			data.DStates[i] = d
		}
	}
	if len(result.WatchNames) > 0 {
		data.Watched = make(map[string][]float64, len(result.WatchNames))
		for _, name := range result.WatchNames {
			data.Watched[name], _ = result.Series(name)
		}
	}
	return data
}

func WriteJSON(w io.Writer, info RunInfo, result *dynamo.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(info, result))
}

func ExportJSON(path string, info RunInfo, result *dynamo.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, info, result)
}
