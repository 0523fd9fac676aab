package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/export"
	"github.com/san-kum/pyrosim/internal/report"
	"github.com/san-kum/pyrosim/internal/storage"
	"github.com/spf13/cobra"
)

var (
	chartOut    string
	chartKind   string
	chartWidth  int
	chartHeight int
	plotHeight  int
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Red,
	asciigraph.Green,
	asciigraph.Blue,
	asciigraph.Yellow,
	asciigraph.Magenta,
}

func runCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	reportCmd := &cobra.Command{
		Use:   "report [run_id|latest]",
		Short: "summarise a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  reportRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id|latest]",
		Short: "plot species masses in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height in rows")

	chartCmd := &cobra.Command{
		Use:   "chart [run_id|latest]",
		Short: "render a run to a png or svg chart",
		Args:  cobra.ExactArgs(1),
		RunE:  chartRun,
	}
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "", "output file (.png or .svg), defaults to <run_id>.png")
	chartCmd.Flags().StringVar(&chartKind, "kind", "trajectory", "chart kind (trajectory, final)")
	chartCmd.Flags().IntVar(&chartWidth, "width", 1280, "image width")
	chartCmd.Flags().IntVar(&chartHeight, "height", 720, "image height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id|latest]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id|latest]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	return []*cobra.Command{listCmd, reportCmd, plotCmd, chartCmd, exportCSVCmd, exportJSONCmd}
}

// loadRun resolves an id prefix, or "latest", and loads the stored run.
func loadRun(ref string) (*storage.RunMetadata, *dynamo.Result, error) {
	st := storage.New(dataDir)
	var (
		runID string
		err   error
	)
	if ref == "latest" {
		runID, err = st.Latest()
	} else {
		runID, err = st.Resolve(ref)
	}
	if err != nil {
		return nil, nil, err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(result.States) == 0 {
		return nil, nil, fmt.Errorf("run %s has no data", runID)
	}
	return meta, result, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tTEMP\tPOLICY\tINTEG\tSAMPLES\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "partial"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fK\t%s\t%s\t%d\t%s\n",
			run.ID[:8],
			run.Name,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Temperature,
			run.Policy,
			run.Integrator,
			run.Samples,
			status,
		)
	}

	return w.Flush()
}

func reportRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	summary, err := report.New(meta.Name, nil, result)
	if err != nil {
		return err
	}
	summary.Temperature = meta.Temperature
	summary.Policy = meta.Policy

	fmt.Println(summary.Render())
	fmt.Printf("run id: %s\n", meta.ID)
	if meta.Error != "" {
		fmt.Printf("stopped early: %s\n", meta.Error)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("config: %s (%.2f K, %s)\n", meta.Name, meta.Temperature, meta.Policy)
	fmt.Printf("samples: %d over %gs\n\n", len(result.Times), result.Times[len(result.Times)-1]-result.Times[0])

	n := len(result.States[0])
	data := make([][]float64, n)
	colors := make([]asciigraph.AnsiColor, n)
	for i := 0; i < n; i++ {
		data[i] = result.Column(i)
		colors[i] = seriesColors[i%len(seriesColors)]
	}

	graph := asciigraph.PlotMany(data,
		asciigraph.Height(plotHeight),
		asciigraph.Width(80),
		asciigraph.Caption("mass (kg) vs sample"),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(result.Labels...),
	)
	fmt.Println(graph)
	return nil
}

func chartRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := chartOut
	if out == "" {
		out = meta.ID[:8] + ".png"
	}
	opts := export.ChartOptions{
		Title:  fmt.Sprintf("%s at %.2f K", meta.Name, meta.Temperature),
		Width:  chartWidth,
		Height: chartHeight,
		Format: strings.TrimPrefix(filepath.Ext(out), "."),
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	switch chartKind {
	case "trajectory":
		err = export.Trajectory(f, result, opts)
	case "final":
		err = export.FinalMasses(f, result, opts)
	default:
		err = fmt.Errorf("unknown chart kind: %s", chartKind)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return err
	}

	fmt.Printf("wrote %s\n", out)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteStates(os.Stdout, result)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return export.WriteJSON(os.Stdout, export.NewExportData(*meta, result))
}
