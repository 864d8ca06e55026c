package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
)

type cvCmdConfig struct {
	*rootCmdConfig
	config string
}

func cvCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &cvCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "cv",
		Short: "Cross-validate a learner",
		Long:  `Run k-fold cross-validation of a learner and print accuracy, precision, recall and the area under the pooled ROC curve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cvConfig CVConfig
			if err := decodeConfig(config.config, &cvConfig); err != nil {
				return err
			}
			report, err := config.crossValidate(cvConfig)
			if err != nil {
				return err
			}
			printReport(os.Stdout, report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&(config.config), "config", "c", "cv_config.json", "a config file for the run of the program")
	return cmd
}

func (ccc *cvCmdConfig) crossValidate(cvConfig CVConfig) (*btl.CVReport, error) {
	factory, err := cvConfig.Factory()
	if err != nil {
		return nil, err
	}
	dm, err := cvConfig.Data.load()
	if err != nil {
		return nil, err
	}
	return btl.KFoldCV(btl.CVParams{
		K:             cvConfig.K,
		Factory:       factory,
		PositiveLabel: cvConfig.PositiveLabel,
		Shuffle:       cvConfig.Shuffle,
		Seed:          cvConfig.Seed,
		ThreadsNum:    cvConfig.ThreadsNum,
	}, dm)
}

func printReport(out io.Writer, report *btl.CVReport) {
	folds := table.NewWriter()
	folds.SetOutputMirror(out)
	folds.AppendHeader(table.Row{"Fold", "Rows", "TP", "FP", "TN", "FN", "Accuracy", "Precision", "Recall"})
	for _, fold := range report.Folds {
		c := fold.Confusion
		folds.AppendRow(table.Row{fold.Fold, fold.Rows, c.TP, c.FP, c.TN, c.FN,
			fmt.Sprintf("%.4f", fold.Accuracy), fmt.Sprintf("%.4f", fold.Precision), fmt.Sprintf("%.4f", fold.Recall)})
	}
	folds.Render()

	summary := table.NewWriter()
	summary.SetOutputMirror(out)
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Metric", Align: text.AlignLeft},
		{Name: "Value", Align: text.AlignRight},
	})
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.AppendRow(table.Row{"accuracy", formatMeanStd(report.Accuracy)})
	summary.AppendRow(table.Row{"precision", formatMeanStd(report.Precision)})
	summary.AppendRow(table.Row{"recall", formatMeanStd(report.Recall)})
	summary.AppendRow(table.Row{"auc", fmt.Sprintf("%.4f", report.AreaUnderROC)})
	summary.Render()

	for _, caveat := range report.Caveats {
		fmt.Fprintln(out, "caveat:", caveat)
	}
}

func formatMeanStd(m btl.MeanStd) string {
	return fmt.Sprintf("%.4f ± %.4f", m.Mean, m.StdDev)
}
