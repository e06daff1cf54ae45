package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cronograma/internal/chart"
	"cronograma/internal/ics"
	appLog "cronograma/internal/log"
	"cronograma/internal/pipeline"
)

func checkCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the workbook and list the derived tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			v := a.renderer.Run(cmd.Context(), nil)
			writeReport(cmd.OutOrStdout(), v)
			return v.Err
		},
	}
}

// writeReport prints the messages followed by the task table.
func writeReport(w io.Writer, v pipeline.View) {
	for _, m := range v.Messages {
		fmt.Fprintf(w, "%s: %s\n", m.Severity, m.Text)
	}
	if len(v.Result.Tasks) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tWEEK\tSTART\tEND\tDAYS\tLABEL")
	for _, t := range v.Result.Tasks {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%g\t%s\n",
			t.RowIndex, t.Week, t.Start.Format("2006-01-02"), t.End.Format("2006-01-02 15:04"), t.Days(), t.Label)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d tasks, %d skipped\n", len(v.Result.Tasks), len(v.Result.Skipped))
}

func exportCmd(flags *rootFlags) *cobra.Command {
	var (
		complete []int
		pending  []int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Mark rows as completed and write the edited workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			source, err := a.renderer.Load(cmd.Context())
			if err != nil {
				return err
			}
			table := source.Clone()
			for _, i := range complete {
				if err := table.SetCompleted(i, true); err != nil {
					return err
				}
			}
			for _, i := range pending {
				if err := table.SetCompleted(i, false); err != nil {
					return err
				}
			}
			if err := a.store.Save(cmd.Context(), a.cfg.Output, table); err != nil {
				appLog.Error("export failed", err, "output", a.cfg.Output)
				return err
			}
			changed := 0
			for i := 0; i < table.Len(); i++ {
				if table.Completed(i) != source.Completed(i) {
					changed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d changed\n", a.cfg.Output, table.Len(), changed)
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&complete, "complete", nil, "Row indexes to mark as completed")
	cmd.Flags().IntSliceVar(&pending, "pending", nil, "Row indexes to mark as pending")
	return cmd
}

func icsCmd(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export the schedule as an iCalendar file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			v := a.renderer.Run(cmd.Context(), nil)
			if v.Err != nil {
				writeReport(cmd.ErrOrStderr(), v)
				return v.Err
			}
			return writeTo(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return ics.Export(w, v.Result.Tasks, ics.ExportOptions{Name: a.cfg.Title, Source: a.cfg.Input})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	return cmd
}

func chartCmd(flags *rootFlags) *cobra.Command {
	var (
		out   string
		width int
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the timeline as SVG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			v := a.renderer.Run(cmd.Context(), nil)
			if v.Chart == nil {
				writeReport(cmd.ErrOrStderr(), v)
				return v.Err
			}
			return writeTo(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return chart.RenderSVG(w, *v.Chart, width)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().IntVar(&width, "width", chart.DefaultWidth, "SVG width in pixels")
	return cmd
}

func snapshotCmd(flags *rootFlags) *cobra.Command {
	var (
		url  string
		path string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the running dashboard's chart as PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			if path != "" {
				a.cfg.Snapshot.Path = path
			}
			return a.snapshot(cmd.Context(), url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Page to capture (default: the configured dashboard /chart)")
	cmd.Flags().StringVarP(&path, "out", "o", "", "PNG output path (overrides config)")
	return cmd
}

// writeTo runs fn against stdout when path is "-" and against a new file
// otherwise.
func writeTo(stdout io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
