package main

import (
	"fmt"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type forestCmdConfig struct {
	*modelCmdConfig
	size       int
	resampling string
}

func forestCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &forestCmdConfig{}
	cmd := &cobra.Command{
		Use:   "forest",
		Short: "Grow a random forest and test it",
		Long:  `Grow a random forest from a training set, each tree considering a random subset of the attributes at each split, and test its performance against a testing set`,
		Run: func(cmd *cobra.Command, args []string) {
			if code, err := config.growForest(); err != nil {
				config.exit(code, err)
			}
		},
	}
	config.modelCmdConfig = newModelCmdConfig(rootConfig, cmd)
	config.addForestFlags(cmd)
	return cmd
}

// growForest grows and tests a forest, returning the exit code and error
// of the step that failed, if any.
func (fcc *forestCmdConfig) growForest() (int, error) {
	err := fcc.Validate()
	if err != nil {
		return 1, err
	}
	training, testing, closeSets, err := fcc.sets()
	if err != nil {
		return 2, err
	}
	defer closeSets()
	opts, closeStore, err := fcc.forestOptions(training.Domain())
	if err != nil {
		return 3, err
	}
	defer closeStore()
	e, err := fcc.grow(training, opts)
	if err != nil {
		return 4, errors.Wrap(err, "growing the forest")
	}
	err = fcc.evaluate("Random forest", e, testing)
	if err != nil {
		return 5, err
	}
	return 0, nil
}

func (fcc *forestCmdConfig) addForestFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&(fcc.size), "size", "s", 100, "number of trees of the forest")
	cmd.Flags().StringVarP(&(fcc.resampling), "resampling", "r", "permutation", "how the training set of each tree is drawn: permutation (every sample once, shuffled) or bootstrap (with replacement)")
}

func (fcc *forestCmdConfig) Validate() error {
	err := fcc.modelCmdConfig.Validate()
	if err != nil {
		return err
	}
	if fcc.testInput == "" {
		return fmt.Errorf("required test flag was not set")
	}
	if !fcc.cmd.Flags().Changed("size") {
		fcc.size = fcc.run.Size
	}
	if !fcc.cmd.Flags().Changed("resampling") {
		fcc.resampling = fcc.run.Resampling
	}
	if fcc.size < 1 {
		return fmt.Errorf("forest size must be at least 1, got %d", fcc.size)
	}
	_, err = resampling(fcc.resampling)
	return err
}

func (fcc *forestCmdConfig) forestOptions(d *feature.Domain) ([]canopy.Option, closer, error) {
	opts, closeStore, err := fcc.options(d)
	if err != nil {
		return nil, nil, err
	}
	r, err := resampling(fcc.resampling)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return append(opts, canopy.WithResampling(r)), closeStore, nil
}

func (fcc *forestCmdConfig) grow(training dataset.Dataset, opts []canopy.Option) (*canopy.Ensemble, error) {
	f, err := canopy.NewForest(fcc.size, opts...)
	if err != nil {
		return nil, err
	}
	fcc.Logf("Growing a forest of %d trees from %s...", f.Size(), describe(fcc.Context(), training))
	e, err := f.Grow(fcc.Context(), training)
	if err != nil {
		return nil, err
	}
	fcc.Logf("Done")
	for i, t := range e.Trees() {
		fcc.printTree(fcc.Context(), fmt.Sprintf("Tree %d", i+1), t)
	}
	return e, nil
}

func resampling(name string) (canopy.Resampling, error) {
	switch name {
	case "permutation":
		return canopy.Permutation, nil
	case "bootstrap":
		return canopy.Bootstrap, nil
	}
	return nil, fmt.Errorf("unknown resampling %s, valid ones are permutation and bootstrap", name)
}
