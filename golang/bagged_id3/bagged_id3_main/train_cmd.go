package main

import (
	"github.com/spf13/cobra"
	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
	"go.uber.org/zap"
)

type trainCmdConfig struct {
	*rootCmdConfig
	config string
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a tree or a bagged ensemble",
		Long:  `Train a tree or a bagged ensemble of trees on an npy dataset, report accuracy on the test datasets and save the model as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var trainConfig TrainConfig
			if err := decodeConfig(config.config, &trainConfig); err != nil {
				return err
			}
			return config.train(trainConfig)
		},
	}
	cmd.Flags().StringVarP(&(config.config), "config", "c", "train_config.json", "a config file for the run of the program")
	return cmd
}

func (tcc *trainCmdConfig) train(trainConfig TrainConfig) error {
	factory, err := trainConfig.Factory()
	if err != nil {
		return err
	}

	tcc.logger.Info("load train")
	dmTrain, err := trainConfig.Train.load()
	if err != nil {
		return err
	}

	var dmTests []btl.DMatrix
	for _, testConfig := range trainConfig.Tests {
		tcc.logger.Info("load test", zap.String("description", testConfig.Description))
		dm, err := testConfig.load()
		if err != nil {
			return err
		}
		dmTests = append(dmTests, dm)
	}

	clf, err := factory()
	if err != nil {
		return err
	}
	if err = clf.Fit(dmTrain); err != nil {
		return err
	}
	if ensemble, ok := clf.(*btl.Bagging); ok {
		tcc.logger.Info("out of bag estimate",
			zap.Int("rows", ensemble.OOBCount),
			zap.Float64("accuracy", ensemble.OOBAccuracy))
	}

	for ind, dm := range dmTests {
		prediction, err := btl.PredictDense(clf, dm.Features)
		if err != nil {
			return err
		}
		confusion, err := btl.NewConfusion(dm.Labels(), prediction.RawMatrix().Data, trainConfig.PositiveLabel)
		if err != nil {
			return err
		}
		description := trainConfig.Tests[ind].Description
		tcc.logger.Info("test evaluated",
			zap.String("description", description),
			zap.Int("rows", confusion.Total()),
			zap.Float64("accuracy", confusion.Accuracy()))
	}

	if trainConfig.FileNameModel == "" {
		return nil
	}
	tcc.logger.Info("save model", zap.String("file", trainConfig.FileNameModel))
	return btl.SaveLearner(clf, trainConfig.FileNameModel)
}
