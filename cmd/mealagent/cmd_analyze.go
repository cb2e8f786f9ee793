package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bububa/meal-agents/meal"
	"github.com/bububa/meal-agents/service"
)

var analyzeFlags struct {
	hint     string
	mimeType string
	asJSON   bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyse a meal photo and print the nutrition report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.hint, "hint", "", "Context for identification, e.g. brand or restaurant")
	f.StringVar(&analyzeFlags.mimeType, "mime-type", "", "Image media type (sniffed when empty)")
	f.BoolVar(&analyzeFlags.asJSON, "json", false, "Print the report as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	img, err := meal.NewMealImage(data, analyzeFlags.mimeType)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := service.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	run, err := svc.Analyze(ctx, meal.Request{Image: img, Hint: analyzeFlags.hint})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if analyzeFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Report)
	}
	printReport(out, run)
	return nil
}

func printReport(out io.Writer, run *meal.Run) {
	report := run.Report
	fmt.Fprintf(out, "Meal:        %s\n", report.FoodName)
	fmt.Fprintf(out, "Confidence:  %d%%\n", report.Confidence)
	fmt.Fprintf(out, "Calories:    %.0f kcal\n", report.Calories)
	fmt.Fprintf(out, "Macros:      %.1fg carbs, %.1fg protein, %.1fg fat\n", report.Carbs, report.Protein, report.Fat)
	if len(report.Items) > 0 {
		fmt.Fprintf(out, "Items:\n")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "  NAME\tPORTION\tKCAL\tCARBS\tPROTEIN\tFAT\n")
		for _, item := range report.Items {
			facts, ok := item.Nutrition()
			if !ok {
				fmt.Fprintf(tw, "  %s\t%s\t-\t-\t-\t-\n", item.Name, item.Portion)
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t%.0f\t%.1f\t%.1f\t%.1f\n", item.Name, item.Portion, facts.Calories, facts.Carbs, facts.Protein, facts.Fat)
		}
		tw.Flush()
	}
	fmt.Fprintf(out, "\n%s\n", report.Description)
	for _, lookupErr := range run.LookupErrors {
		fmt.Fprintf(out, "warning: %v\n", lookupErr)
	}
	fmt.Fprintf(out, "Run %s took %s (%d input / %d output tokens)\n", run.ID, run.Duration().Round(time.Millisecond), run.Usage.InputTokens, run.Usage.OutputTokens)
}
