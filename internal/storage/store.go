package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/legsim/internal/dynamo"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return errors.Wrapf(os.MkdirAll(s.baseDir, 0755), "creating data dir %s", s.baseDir)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	ContactKp  float64            `json:"contact_kp"`
	ContactKd  float64            `json:"contact_kd"`
	Joints     int                `json:"joints"`
	Contacts   int                `json:"contacts"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
	Errors     []string           `json:"errors,omitempty"`
}

// Save writes metadata.json and states.csv into a new run directory and
// returns the run ID. ID, Timestamp, Steps, Joints and Contacts in meta are
// filled in from the result.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	meta.Metrics = result.Metrics
	if len(result.States) > 0 {
		meta.Joints = len(result.States[0].Q)
	}
	if len(result.ContactForces) > 0 {
		meta.Contacts = len(result.ContactForces[0])
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating run dir %s", runDir)
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", errors.Wrap(err, "creating metadata")
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", errors.Wrap(err, "writing metadata")
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", errors.Wrap(err, "creating states")
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// Header names the CSV columns for a run with the given joint and contact
// counts.
func Header(joints, contacts int) []string {
	header := []string{"time"}
	header = append(header, dynamo.StateLabels(joints)...)
	for i := 0; i < joints; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	for i := 0; i < contacts; i++ {
		header = append(header, fmt.Sprintf("f%dx", i), fmt.Sprintf("f%dy", i), fmt.Sprintf("f%dz", i))
	}
	return header
}

// WriteCSV writes one row per recorded sample.
func WriteCSV(out io.Writer, result *dynamo.Result) error {
	w := csv.NewWriter(out)
	if len(result.States) == 0 {
		w.Flush()
		return errors.Wrap(w.Error(), "writing states")
	}

	joints := len(result.States[0].Q)
	contacts := 0
	if len(result.ContactForces) > 0 {
		contacts = len(result.ContactForces[0])
	}
	if err := w.Write(Header(joints, contacts)); err != nil {
		return errors.Wrap(err, "writing header")
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }
	for i, st := range result.States {
		row := []string{format(result.Times[i])}
		for _, val := range st.Flatten() {
			row = append(row, format(val))
		}
		for j := 0; j < joints; j++ {
			v := 0.0
			if i < len(result.Controls) && j < len(result.Controls[i]) {
				v = result.Controls[i][j]
			}
			row = append(row, format(v))
		}
		for j := 0; j < contacts; j++ {
			f := result.ContactForces[i][j]
			row = append(row, format(f[0]), format(f[1]), format(f[2]))
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "writing row %d", i)
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "writing states")
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrapf(err, "listing %s", s.baseDir)
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading run %s", runID)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decoding run %s", runID)
	}

	return &meta, nil
}

// LoadStates returns the CSV header and the rows of a run, without the time
// column, alongside the sample times.
func (s *Store) LoadStates(runID string) ([]string, [][]float64, []float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "opening states of %s", runID)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "reading states of %s", runID)
	}

	if len(records) < 2 {
		return nil, [][]float64{}, []float64{}, nil
	}

	header := records[0][1:]
	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		state := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return header, states, times, nil
}

// LoadResult rebuilds the recorded samples of a run from its CSV. Metrics
// come from the metadata; errors are not restored.
func (s *Store) LoadResult(runID string) (*RunMetadata, *dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	_, rows, times, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}

	dim := dynamo.NewRobotState(meta.Joints).Dim()
	width := dim + meta.Joints + 3*meta.Contacts
	result := &dynamo.Result{
		States:        make([]dynamo.RobotState, len(rows)),
		Controls:      make([]dynamo.Control, len(rows)),
		ContactForces: make([][]mgl64.Vec3, len(rows)),
		Times:         times,
		Metrics:       meta.Metrics,
		StepsTaken:    meta.Steps,
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, nil, errors.Errorf("run %s row %d has %d columns, want %d", runID, i, len(row), width)
		}
		st, err := dynamo.UnflattenRobotState(row[:dim], meta.Joints)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "run %s row %d", runID, i)
		}
		result.States[i] = st
		result.Controls[i] = append(dynamo.Control(nil), row[dim:dim+meta.Joints]...)
		forces := make([]mgl64.Vec3, meta.Contacts)
		for j := range forces {
			k := dim + meta.Joints + 3*j
			forces[j] = mgl64.Vec3{row[k], row[k+1], row[k+2]}
		}
		result.ContactForces[i] = forces
	}
	return meta, result, nil
}

// ExportData is the JSON form of a run.
type ExportData struct {
	RunMetadata
	Labels        []string       `json:"labels"`
	Times         []float64      `json:"times"`
	States        [][]float64    `json:"states"`
	Controls      [][]float64    `json:"controls"`
	ContactForces [][][3]float64 `json:"contact_forces"`
}

// ExportJSON writes a run and its samples as indented JSON.
func ExportJSON(out io.Writer, meta RunMetadata, result *dynamo.Result) error {
	joints := 0
	if len(result.States) > 0 {
		joints = len(result.States[0].Q)
	}
	meta.Metrics = result.Metrics
	meta.Steps = result.StepsTaken

	data := ExportData{
		RunMetadata:   meta,
		Labels:        dynamo.StateLabels(joints),
		Times:         result.Times,
		States:        make([][]float64, len(result.States)),
		Controls:      make([][]float64, len(result.Controls)),
		ContactForces: make([][][3]float64, len(result.ContactForces)),
	}
	for i, s := range result.States {
		data.States[i] = s.Flatten()
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	for i, fs := range result.ContactForces {
		data.ContactForces[i] = make([][3]float64, len(fs))
		for j, f := range fs {
			data.ContactForces[i][j] = f
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(data), "encoding run")
}
