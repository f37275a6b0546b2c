package main

import (
	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/feature/yaml"
	"github.com/spf13/cobra"
)

type setCmdConfig struct {
	*rootCmdConfig
	setInput      string
	metadataInput string
	setOutput     string
	// domain of the input set, once it is read
	domain *feature.Domain
}

func setCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &setCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Manage sets of data",
		Long:  `Dump a set of data into another location, converting it between formats and databases`,
		Run: func(cmd *cobra.Command, args []string) {
			if code, err := config.dump(); err != nil {
				config.exit(code, err)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.setInput), "input", "i", "", "input set location: "+locationHelp+" (defaults to STDIN, interpreted as sparse)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file declaring the domain of the data (required for databases)")
	cmd.Flags().StringVarP(&(config.setOutput), "output", "o", "", "output set location: "+locationHelp+" (defaults to STDOUT in CSV)")
	cmd.AddCommand(splitCmd(config))
	return cmd
}

// dump writes the samples of the input set into the output, returning
// the exit code and error of the step that failed, if any.
func (scc *setCmdConfig) dump() (int, error) {
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

	var count int
	for s := range inputStream {
		_, err = output.Write(scc.Context(), []*dataset.Sample{s})
		if err != nil {
			return 8, err
		}
		count++
	}
	err = <-errStream
	if err != nil {
		return 9, err
	}
	scc.Logf("Flushing output set...")
	err = output.Flush()
	if err != nil {
		return 9, err
	}
	scc.Logf("Done, dumped %d samples", count)
	return 0, nil
}

func (scc *setCmdConfig) readInput() (dataset.Dataset, closer, error) {
	var d *feature.Domain
	var err error
	if scc.metadataInput != "" {
		scc.Logf("Reading domain from metadata at %s...", scc.metadataInput)
		d, err = yaml.ReadDomainFromFile(scc.metadataInput)
		if err != nil {
			return nil, nil, err
		}
	}
	return readSet(scc.Context(), scc.logger, scc.setInput, d, false)
}

/*
InputStream reads the input set and returns a stream of its samples,
a stream for the error that may interrupt it and a closer for the
input.
*/
func (scc *setCmdConfig) InputStream() (<-chan *dataset.Sample, <-chan error, closer, error) {
	s, closeInput, err := scc.readInput()
	if err != nil {
		return nil, nil, nil, err
	}
	scc.domain = s.Domain()
	if dbs, ok := s.(dbSet); ok {
		sampleStream, errStream := dbs.Read(scc.Context())
		return sampleStream, errStream, closeInput, nil
	}
	samples, err := s.Samples(scc.Context())
	if err != nil {
		closeInput()
		return nil, nil, nil, err
	}
	sampleStream := make(chan *dataset.Sample)
	errStream := make(chan error, 1)
	go func() {
		defer close(sampleStream)
		defer close(errStream)
		for _, sample := range samples {
			select {
			case <-scc.Context().Done():
				errStream <- scc.Context().Err()
				return
			case sampleStream <- sample:
			}
		}
	}()
	return sampleStream, errStream, closeInput, nil
}
