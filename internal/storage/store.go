package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how a result was produced. StateNames label the
// continuous state columns; unnamed states get x0, x1, ...
type RunInfo struct {
	Diagram    string
	Integrator string
	Dt         float64
	Duration   float64
	Adaptive   bool
	StateNames []string
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Diagram    string             `json:"diagram"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Adaptive   bool               `json:"adaptive"`
	Status     string             `json:"status"`
	StopReason string             `json:"stop_reason,omitempty"`
	Steps      int                `json:"steps"`
	Rejected   int                `json:"rejected"`
	Ticks      int                `json:"ticks"`
	Violations []string           `json:"violations,omitempty"`
	Columns    []string           `json:"columns"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Columns returns the CSV header for a result: time, continuous states,
// discrete states, then watched signals.
func Columns(info RunInfo, result *dynamo.Result) []string {
	header := []string{"time"}
	if len(result.States) > 0 {
		for i := range result.States[0] {
			if i < len(info.StateNames) {
				header = append(header, info.StateNames[i])
			} else {
				header = append(header, fmt.Sprintf("x%d", i))
			}
		}
	}
	if len(result.DStates) > 0 {
		for i := range result.DStates[0] {
			header = append(header, fmt.Sprintf("xd%d", i))
		}
	}
	return append(header, result.WatchNames...)
}

func (s *Store) newRunDir(diagram string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", diagram, time.Now().Unix())
	runID := base
	for n := 2; ; n++ {
		dir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return runID, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, n)
	}
}

func (s *Store) Save(info RunInfo, result *dynamo.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	runID, runDir, err := s.newRunDir(info.Diagram)
	if err != nil {
		return "", errors.Wrap(err, "create run dir")
	}

	meta := RunMetadata{
		ID:         runID,
		Diagram:    info.Diagram,
		Timestamp:  time.Now(),
		Dt:         info.Dt,
		Duration:   info.Duration,
		Integrator: info.Integrator,
		Adaptive:   info.Adaptive,
		Status:     result.Status.String(),
		StopReason: result.StopReason,
		Steps:      result.StepsTaken,
		Rejected:   result.Rejected,
		Ticks:      len(result.Ticks),
		Columns:    Columns(info, result),
		Metrics:    result.Metrics,
	}
	for _, v := range result.Violations {
		meta.Violations = append(meta.Violations, v.String())
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "states.csv"), meta.Columns, result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i, t := range result.Times {
		row := make([]string, 0, len(header))
		row = append(row, format(t))
		if i < len(result.States) {
			for _, val := range result.States[i] {
				row = append(row, format(val))
			}
		}
		if i < len(result.DStates) {
			for _, val := range result.DStates[i] {
				row = append(row, format(val))
			}
		}
		if i < len(result.Watched) {
			for _, val := range result.Watched[i] {
				row = append(row, format(val))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "run %s", runID)
	}

	return &meta, nil
}

// Series is a stored run read back column by column.
type Series struct {
	Header []string
	Times  []float64
	Rows   [][]float64
}

// Column returns the values of a named column, excluding time.
func (s *Series) Column(name string) ([]float64, bool) {
	for j, h := range s.Header {
		if h != name || j == 0 {
			continue
		}
		out := make([]float64, len(s.Rows))
		for i, row := range s.Rows {
			out[i] = row[j-1]
		}
		return out, true
	}
	return nil, false
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "run %s", runID)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("run %s: empty states.csv", runID)
	}

	series := &Series{Header: records[0]}
	for i := 1; i < len(records); i++ {
		record := records[i]
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "run %s line %d", runID, i+1)
		}
		row := make([]float64, len(record)-1)
		for j := 1; j < len(record); j++ {
			row[j-1], err = strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "run %s line %d", runID, i+1)
			}
		}
		series.Times = append(series.Times, t)
		series.Rows = append(series.Rows, row)
	}
	return series, nil
}
