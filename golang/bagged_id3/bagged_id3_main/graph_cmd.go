package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
	"go.uber.org/zap"
)

type graphCmdConfig struct {
	*rootCmdConfig
	config string
}

func graphCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &graphCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the trees of a saved model",
		Long:  `Render every tree of a saved model into png, svg or jpg pictures and optionally dump the first tree as DOT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphConfig GraphConfig
			if err := decodeConfig(config.config, &graphConfig); err != nil {
				return err
			}
			return config.graph(graphConfig)
		},
	}
	cmd.Flags().StringVarP(&(config.config), "config", "c", "graph_config.json", "a config file for the run of the program")
	return cmd
}

func (gcc *graphCmdConfig) graph(graphConfig GraphConfig) error {
	clf, err := btl.LoadLearner(graphConfig.ModelFileName)
	if err != nil {
		return err
	}
	trees := btl.TreesOf(clf)
	gcc.logger.Info("render trees", zap.Int("trees", len(trees)), zap.String("directory", graphConfig.PicturesDirectory))
	if err = btl.RenderTrees(trees, graphConfig.DumpPrefix, graphConfig.FigureType, graphConfig.PicturesDirectory); err != nil {
		return err
	}

	if graphConfig.DotFileName == "" || len(trees) == 0 {
		return nil
	}
	dot, err := trees[0].DotString()
	if err != nil {
		return err
	}
	return os.WriteFile(graphConfig.DotFileName, []byte(dot), 0644)
}
