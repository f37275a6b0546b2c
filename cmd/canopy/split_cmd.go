package main

import (
	"fmt"
	"math/rand"

	"github.com/pbanos/canopy/dataset"
	"github.com/spf13/cobra"
)

type splitCmdConfig struct {
	*setCmdConfig
	splitOutput      string
	splitProbability int
	seed             int64
}

func splitCmd(setConfig *setCmdConfig) *cobra.Command {
	config := &splitCmdConfig{setCmdConfig: setConfig}
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a set into two sets",
		Long:  `Split a set into an output set and a split set, for instance to obtain a training set and a testing set`,
		Run: func(cmd *cobra.Command, args []string) {
			if code, err := config.split(); err != nil {
				config.exit(code, err)
			}
		},
	}
	cmd.Flags().StringVarP(&(config.setOutput), "output", "o", "", "output set location: "+locationHelp+" (defaults to STDOUT in CSV)")
	cmd.Flags().IntVarP(&(config.splitProbability), "split-probability", "p", 20, "probability as percent integer that a sample of the set will be assigned to the split set")
	cmd.Flags().StringVarP(&(config.splitOutput), "split-output", "s", "", "split set location: "+locationHelp+" (required)")
	cmd.Flags().Int64Var(&(config.seed), "seed", 1, "seed of the random assignment of samples")
	return cmd
}

// split assigns every sample of the input set to the output or the split
// output, returning the exit code and error of the step that failed, if
// any.
func (scc *splitCmdConfig) split() (int, error) {
	err := scc.Validate()
	if err != nil {
		return 1, err
	}
	inputStream, errStream, closeInput, err := scc.InputStream()
	if err != nil {
		return 2, err
	}
	defer closeInput()
	output, closeOutput, err := outputWriter(scc.Context(), scc.logger, scc.setOutput, scc.domain)
	if err != nil {
		return 3, err
	}
	defer closeOutput()
	splitOutput, closeSplitOutput, err := outputWriter(scc.Context(), scc.logger, scc.splitOutput, scc.domain)
	if err != nil {
		return 5, err
	}
	defer closeSplitOutput()

	randomizer := rand.New(rand.NewSource(scc.seed))
	var outputCount, splitCount int
	for s := range inputStream {
		if randomizer.Intn(100) >= scc.splitProbability {
			_, err = output.Write(scc.Context(), []*dataset.Sample{s})
			outputCount++
		} else {
			_, err = splitOutput.Write(scc.Context(), []*dataset.Sample{s})
			splitCount++
		}
		if err != nil {
			return 8, err
		}
	}
	err = <-errStream
	if err != nil {
		return 8, err
	}
	scc.Logf("Flushing output set...")
	err = output.Flush()
	if err != nil {
		return 9, err
	}
	scc.Logf("Flushing split set...")
	err = splitOutput.Flush()
	if err != nil {
		return 10, err
	}
	scc.Logf("Done")
	scc.Logf("Input set with %d samples was split into sets with %d and %d samples", outputCount+splitCount, outputCount, splitCount)
	return 0, nil
}

func (scc *splitCmdConfig) Validate() error {
	if scc.splitOutput == "" {
		return fmt.Errorf("required split-output flag was not set")
	}
	if scc.splitProbability <= 0 || scc.splitProbability > 100 {
		return fmt.Errorf("split-probability flag was set to an invalid value: it must be set to an integer between 1 and 100")
	}
	return nil
}
