package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/storage"
)

type ExportData struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Integrator  string             `json:"integrator"`
	Temperature float64            `json:"temperature_k"`
	Policy      string             `json:"policy"`
	Labels      []string           `json:"labels"`
	Steps       int                `json:"steps"`
	Times       []float64          `json:"times"`
	States      [][]float64        `json:"states"`
	Stats       dynamo.Stats       `json:"stats"`
	Metrics     map[string]float64 `json:"metrics"`
}

func NewExportData(meta storage.RunMetadata, result *dynamo.Result) ExportData {
	data := ExportData{
		ID:          meta.ID,
		Name:        meta.Name,
		Integrator:  meta.Integrator,
		Temperature: meta.Temperature,
		Policy:      meta.Policy,
		Labels:      result.Labels,
		Steps:       len(result.Times),
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Stats:       result.Stats,
		Metrics:     result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
