package main

import (
	"fmt"

	"github.com/pbanos/canopy"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func treeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	var config *modelCmdConfig
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Grow a decision tree and test it",
		Long:  `Grow a decision tree from a training set considering every attribute at each split, and test its performance against a testing set`,
		Run: func(cmd *cobra.Command, args []string) {
			if code, err := config.growTree(); err != nil {
				config.exit(code, err)
			}
		},
	}
	config = newModelCmdConfig(rootConfig, cmd)
	return cmd
}

// growTree grows and tests a tree, returning the exit code and error of
// the step that failed, if any.
func (mcc *modelCmdConfig) growTree() (int, error) {
	err := mcc.Validate()
	if err == nil && mcc.testInput == "" {
		err = fmt.Errorf("required test flag was not set")
	}
	if err != nil {
		return 1, err
	}
	training, testing, closeSets, err := mcc.sets()
	if err != nil {
		return 2, err
	}
	defer closeSets()
	opts, closeStore, err := mcc.options(training.Domain())
	if err != nil {
		return 3, err
	}
	defer closeStore()
	mcc.Logf("Growing tree from %s...", describe(mcc.Context(), training))
	t, err := canopy.NewPot(opts...).Grow(mcc.Context(), training)
	if err != nil {
		return 4, errors.Wrap(err, "growing the tree")
	}
	mcc.Logf("Done")
	mcc.printTree(mcc.Context(), "Decision tree", t)
	err = mcc.evaluate("Decision tree", t, testing)
	if err != nil {
		return 5, err
	}
	return 0, nil
}
