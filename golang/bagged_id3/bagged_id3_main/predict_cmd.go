package main

import (
	"github.com/spf13/cobra"
	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type predictCmdConfig struct {
	*rootCmdConfig
	config string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict labels with a saved model",
		Long:  `Predict the labels of an npy feature matrix with a saved tree or ensemble and write them as npy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var predictConfig PredictConfig
			if err := decodeConfig(config.config, &predictConfig); err != nil {
				return err
			}
			return config.predict(predictConfig)
		},
	}
	cmd.Flags().StringVarP(&(config.config), "config", "c", "predict_config.json", "a config file for the run of the program")
	return cmd
}

func (pcc *predictCmdConfig) predict(predictConfig PredictConfig) error {
	features, err := btl.ReadNpy(predictConfig.FileNameFeature)
	if err != nil {
		return err
	}
	clf, err := btl.LoadLearner(predictConfig.ModelFileName)
	if err != nil {
		return err
	}

	prediction, err := btl.PredictDense(clf, features)
	if err != nil {
		return err
	}
	pcc.logger.Info("write prediction", zap.String("file", predictConfig.PredictionFileName))
	if err = btl.WriteNpy(predictConfig.PredictionFileName, prediction); err != nil {
		return err
	}

	if predictConfig.ScoresFileName == "" {
		return nil
	}
	scorer, ok := clf.(btl.Scorer)
	if !ok {
		return nil
	}
	h := btl.Height(features)
	scores := mat.NewDense(h, 1, nil)
	for p := 0; p < h; p++ {
		score, err := scorer.Score(features.RawRowView(p), predictConfig.PositiveLabel)
		if err != nil {
			return err
		}
		scores.Set(p, 0, score)
	}
	pcc.logger.Info("write scores", zap.String("file", predictConfig.ScoresFileName))
	return btl.WriteNpy(predictConfig.ScoresFileName, scores)
}
