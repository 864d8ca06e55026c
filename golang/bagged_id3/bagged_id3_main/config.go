package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
)

func decodeConfig(srcConfig string, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(srcConfig)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", srcConfig)
	}
	return errors.Wrapf(v.Unmarshal(out), "decode config %s", srcConfig)
}

type DatasetConfig struct {
	Description     string `mapstructure:"description"`
	FileNameFeature string `mapstructure:"filename_features"`
	FileNameTarget  string `mapstructure:"filename_target"`
	DiscreteColumns []int  `mapstructure:"discrete_columns"`
}

func (config DatasetConfig) load() (btl.DMatrix, error) {
	dm, err := btl.ReadDMatrix(config.FileNameFeature, config.FileNameTarget, nil)
	if err != nil {
		return dm, err
	}
	_, w := dm.Features.Dims()
	if dm.Discrete, err = btl.DiscreteMask(w, config.DiscreteColumns); err != nil {
		return dm, err
	}
	if config.Description != "" {
		dm.SetDescription(config.Description)
	}
	return dm, nil
}

type TrainConfig struct {
	Train             DatasetConfig   `mapstructure:"train"`
	Tests             []DatasetConfig `mapstructure:"tests"`
	FileNameModel     string          `mapstructure:"filename_model"`
	PositiveLabel     float64         `mapstructure:"positive_label"`
	btl.LearnerConfig `mapstructure:",squash"`
}

type CVConfig struct {
	Data              DatasetConfig `mapstructure:"data"`
	K                 int           `mapstructure:"k"`
	PositiveLabel     float64       `mapstructure:"positive_label"`
	Shuffle           bool          `mapstructure:"shuffle"`
	btl.LearnerConfig `mapstructure:",squash"`
}

type PredictConfig struct {
	FileNameFeature    string  `mapstructure:"filename_features"`
	ModelFileName      string  `mapstructure:"filename_model"`
	PredictionFileName string  `mapstructure:"filename_prediction"`
	ScoresFileName     string  `mapstructure:"filename_scores"`
	PositiveLabel      float64 `mapstructure:"positive_label"`
}

type GraphConfig struct {
	ModelFileName     string `mapstructure:"filename_model"`
	FigureType        string `mapstructure:"figure_type"`
	PicturesDirectory string `mapstructure:"pictures_directory"`
	DumpPrefix        string `mapstructure:"dump_prefix"`
	DotFileName       string `mapstructure:"filename_dot"`
}
