package main

import (
	"fmt"
	"os"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/dataset/inputsample"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*forestCmdConfig
	undefinedValue string
	forest         bool
}

type stdoutFeatureValueRequester string

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{forestCmdConfig: &forestCmdConfig{}}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the label of a sample answering questions",
		Long:  `Grow a model from a training set and use it to predict the label of a sample answering a reduced set of questions about its attributes`,
		Run: func(cmd *cobra.Command, args []string) {
			if code, err := config.predict(); err != nil {
				config.exit(code, err)
			}
		},
	}
	config.modelCmdConfig = newModelCmdConfig(rootConfig, cmd)
	config.addForestFlags(cmd)
	cmd.Flags().BoolVarP(&(config.forest), "forest", "f", false, "predict with a random forest instead of a decision tree")
	cmd.Flags().StringVarP(&(config.undefinedValue), "undefined-value", "u", "?", "value to input to leave a sample's attribute undefined (read as 0)")
	return cmd
}

// predict grows a model and predicts the label of a sample read from
// STDIN, returning the exit code and error of the step that failed, if any.
func (pcc *predictCmdConfig) predict() (int, error) {
	err := pcc.Validate()
	if err != nil {
		return 1, err
	}
	training, closeTraining, err := pcc.trainingSet()
	if err != nil {
		return 2, err
	}
	defer closeTraining()
	opts, closeStore, err := pcc.forestOptions(training.Domain())
	if err != nil {
		return 3, err
	}
	defer closeStore()
	var model canopy.Classifier
	if pcc.forest {
		model, err = pcc.grow(training, opts)
	} else {
		model, err = canopy.NewPot(opts...).Grow(pcc.Context(), training)
	}
	if err != nil {
		return 4, errors.Wrap(err, "growing the model")
	}
	sample := inputsample.New(os.Stdin, training.Domain(), stdoutFeatureValueRequester(pcc.undefinedValue), pcc.undefinedValue)
	label, err := model.Predict(pcc.Context(), sample)
	if err != nil {
		return 5, err
	}
	fmt.Printf("Predicted label is %d\n", label)
	return 0, nil
}

func (pcc *predictCmdConfig) Validate() error {
	err := pcc.modelCmdConfig.Validate()
	if err != nil {
		return err
	}
	if pcc.trainInput == "" {
		return fmt.Errorf("required train flag was not set, STDIN is used to read the sample")
	}
	if !pcc.cmd.Flags().Changed("size") {
		pcc.size = pcc.run.Size
	}
	if !pcc.cmd.Flags().Changed("resampling") {
		pcc.resampling = pcc.run.Resampling
	}
	if pcc.forest && pcc.size < 1 {
		return fmt.Errorf("forest size must be at least 1, got %d", pcc.size)
	}
	_, err = resampling(pcc.resampling)
	return err
}

func (sfvr stdoutFeatureValueRequester) RequestValueFor(f *feature.Feature) error {
	fmt.Printf("Please provide the sample's %s:\n(valid values are 0 to %d or %s if undefined)\n", f.Name(), f.Size()-1, string(sfvr))
	return nil
}

func (sfvr stdoutFeatureValueRequester) RejectValueFor(f *feature.Feature, value string) error {
	fmt.Printf("%v is not a valid value for the sample's %s. Please provide one of 0 to %d or %s if undefined.\n", value, f.Name(), f.Size()-1, string(sfvr))
	return nil
}
