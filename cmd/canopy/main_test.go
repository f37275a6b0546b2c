package main

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadRunConfig(t *testing.T) {
	rc, err := loadRunConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultRunConfig(), rc)

	path := filepath.Join(t.TempDir(), "run.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte("seed: 7\nsize: 10\nredis:\n  addr: localhost:6379\n  task_max_run: 30s\n"), 0644))
	rc, err = loadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rc.Seed)
	assert.Equal(t, 10, rc.Size)
	assert.Equal(t, 1, rc.Workers)
	assert.Equal(t, "localhost:6379", rc.Redis.Addr)
	assert.Equal(t, "canopy", rc.Redis.Prefix)
	assert.Equal(t, 30*time.Second, rc.Redis.TaskMaxRun)

	require.NoError(t, ioutil.WriteFile(path, []byte("sead: 7\n"), 0644))
	_, err = loadRunConfig(path)
	assert.Error(t, err)
}

func TestLocations(t *testing.T) {
	assert.True(t, isCSV("train.csv"))
	assert.True(t, isSQLite3("train.db"))
	assert.True(t, isPostgreSQL("postgresql://localhost/canopy"))
	assert.True(t, isMongoDB("mongodb://localhost/canopy"))
	assert.False(t, isDatabase("train.txt"))
	assert.False(t, isCSV("train.txt"))
}

func TestResampling(t *testing.T) {
	for _, name := range []string{"permutation", "bootstrap"} {
		r, err := resampling(name)
		require.NoError(t, err)
		assert.NotNil(t, r)
	}
	_, err := resampling("jackknife")
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range cliParser().Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"version", "tree", "forest", "evaluate", "predict", "set"} {
		assert.True(t, names[name], name)
	}
}

func newTestForestConfig(t *testing.T, ctx context.Context) *forestCmdConfig {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.txt")
	test := filepath.Join(dir, "test.txt")
	require.NoError(t, ioutil.WriteFile(train, []byte("1 1:0 2:1\n2 1:1 2:0\n1 1:0 2:0\n2 1:1 2:1\n"), 0644))
	require.NoError(t, ioutil.WriteFile(test, []byte("1 1:0\n2 1:1\n"), 0644))
	root := &rootCmdConfig{logger: logger{zap.NewNop().Sugar()}, run: defaultRunConfig(), ctx: ctx}
	cmd := &cobra.Command{}
	fcc := &forestCmdConfig{}
	fcc.modelCmdConfig = newModelCmdConfig(root, cmd)
	fcc.addForestFlags(cmd)
	fcc.trainInput = train
	fcc.testInput = test
	return fcc
}

func TestGrowForestReturnsFailuresToCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fcc := newTestForestConfig(t, ctx)
	code, err := fcc.growForest()
	assert.Equal(t, 4, code)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	fcc = newTestForestConfig(t, context.Background())
	fcc.testInput = ""
	code, err = fcc.growForest()
	assert.Equal(t, 1, code)
	assert.Error(t, err)
}

func TestGrowTreeReportsMissingSets(t *testing.T) {
	fcc := newTestForestConfig(t, context.Background())
	fcc.testInput = filepath.Join(t.TempDir(), "missing.txt")
	code, err := fcc.growTree()
	assert.Equal(t, 2, code)
	assert.Error(t, err)
}
