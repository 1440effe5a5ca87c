package qturing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

/*
Record is one configuration of a register snapshot in the layout consumed by
the offline analysis: a flat row per configuration, tagged with the step
budget that produced it.
*/
type Record struct {
	Step          int     `json:"step"`
	State         string  `json:"state"`
	Head          int     `json:"head"`
	Tape          string  `json:"tape"`
	AmplitudeReal float64 `json:"amplitude_real"`
	AmplitudeImag float64 `json:"amplitude_imag"`
	Probability   float64 `json:"probability"`
}

// Configuration rebuilds the configuration the record was taken from.
func (r Record) Configuration() Configuration {
	return Configuration{Tape: r.Tape, Head: r.Head, State: r.State}
}

// Amplitude rebuilds the complex amplitude.
func (r Record) Amplitude() complex128 {
	return complex(r.AmplitudeReal, r.AmplitudeImag)
}

/*
Snapshot flattens a register into records, most probable first. An empty
register yields an empty, non-nil slice.
*/
func Snapshot(register *Register, step int) []Record {
	entries := register.Entries()
	records := make([]Record, 0, len(entries))

	for _, entry := range entries {
		records = append(records, Record{
			Step:          step,
			State:         entry.Configuration.State,
			Head:          entry.Configuration.Head,
			Tape:          entry.Configuration.Tape,
			AmplitudeReal: real(entry.Amplitude),
			AmplitudeImag: imag(entry.Amplitude),
			Probability:   entry.Probability,
		})
	}

	return records
}

// Summarize keeps the entries whose probability is above threshold.
func Summarize(register *Register, threshold float64) []Entry {
	var visible []Entry

	for _, entry := range register.Entries() {
		if entry.Probability > threshold {
			visible = append(visible, entry)
		}
	}

	return visible
}

// Log accumulates one snapshot per attempted step budget.
type Log [][]Record

// WriteJSON encodes the log as an indented JSON array of arrays.
func (l Log) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	out := l
	if out == nil {
		out = Log{}
	}

	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode amplitude log: %w", err)
	}

	return nil
}

// SaveJSON writes the log to path, replacing any existing file.
func (l Log) SaveJSON(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create amplitude log: %w", err)
	}

	if err := l.WriteJSON(file); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

// ReadLog decodes a log written by WriteJSON.
func ReadLog(r io.Reader) (Log, error) {
	var log Log
	if err := json.NewDecoder(r).Decode(&log); err != nil {
		return nil, fmt.Errorf("failed to decode amplitude log: %w", err)
	}

	return log, nil
}

// LoadLog reads a log file from disk.
func LoadLog(path string) (Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open amplitude log: %w", err)
	}
	defer file.Close()

	return ReadLog(file)
}
