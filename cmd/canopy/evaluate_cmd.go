package main

import (
	"github.com/pbanos/canopy"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func evaluateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &forestCmdConfig{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare a decision tree and a random forest",
		Long:  `Grow a decision tree and a random forest from the same training set and report the performance of both against a testing set`,
		Run: func(cmd *cobra.Command, args []string) {
			if code, err := config.compare(); err != nil {
				config.exit(code, err)
			}
		},
	}
	config.modelCmdConfig = newModelCmdConfig(rootConfig, cmd)
	config.addForestFlags(cmd)
	return cmd
}

// compare grows a tree and a forest on the training set and tests both,
// returning the exit code and error of the step that failed, if any.
func (fcc *forestCmdConfig) compare() (int, error) {
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

	fcc.Logf("Growing tree from %s...", describe(fcc.Context(), training))
	t, err := canopy.NewPot(opts...).Grow(fcc.Context(), training)
	if err != nil {
		return 4, errors.Wrap(err, "growing the tree")
	}
	fcc.printTree(fcc.Context(), "Decision tree", t)
	err = fcc.evaluate("Decision tree", t, testing)
	if err != nil {
		return 5, err
	}

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
