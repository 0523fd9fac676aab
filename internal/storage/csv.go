package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/pyrosim/internal/dynamo"
)

// WriteStates writes a trajectory as CSV with a "time,<label>..." header.
// Unlabelled components are named x0, x1, ...
func WriteStates(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)

	width := 0
	if len(result.States) > 0 {
		width = len(result.States[0])
	}
	header := []string{"time"}
	for i := 0; i < width; i++ {
		if i < len(result.Labels) {
			header = append(header, result.Labels[i])
		} else {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'g', -1, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadStates parses the output of WriteStates.
func ReadStates(r io.Reader) (*dynamo.Result, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	result := &dynamo.Result{
		States: []dynamo.State{},
		Times:  []float64{},
	}
	if len(records) == 0 {
		return result, nil
	}
	result.Labels = records[0][1:]

	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: time: %w", i+1, err)
		}
		state := make(dynamo.State, 0, len(record)-1)
		for j, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: column %d: %w", i+1, j+1, err)
			}
			state = append(state, val)
		}
		result.Times = append(result.Times, t)
		result.States = append(result.States, state)
	}
	return result, nil
}
