package main

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

/*
runConfig holds the settings of a run that can be given on a YML file
instead of flags.

	seed: 42
	workers: 4
	tree_workers: 8
	size: 100
	resampling: permutation
	cpu_intensive: false
	redis:
	  addr: localhost:6379
	  prefix: canopy
	  task_max_run: 30s

A zero task_max_run lets tasks of the redis queue run for as long as
they need.
*/
type runConfig struct {
	Seed         int64       `yaml:"seed"`
	Workers      int         `yaml:"workers"`
	TreeWorkers  int         `yaml:"tree_workers"`
	Size         int         `yaml:"size"`
	Resampling   string      `yaml:"resampling"`
	CPUIntensive bool        `yaml:"cpu_intensive"`
	Redis        redisConfig `yaml:"redis"`
}

type redisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	TaskMaxRun time.Duration `yaml:"task_max_run"`
}

func defaultRunConfig() *runConfig {
	return &runConfig{
		Seed:       1,
		Workers:    1,
		Size:       100,
		Resampling: "permutation",
		Redis:      redisConfig{Prefix: "canopy"},
	}
}

// loadRunConfig returns the defaults overridden by the YML file at the
// given path, if any.
func loadRunConfig(path string) (*runConfig, error) {
	rc := defaultRunConfig()
	if path == "" {
		return rc, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading run configuration from %s", path)
	}
	err = yaml.UnmarshalStrict(data, rc)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing run configuration from %s", path)
	}
	return rc, nil
}
