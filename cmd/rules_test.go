package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/rules"
)

func TestInitRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "rules.yaml")

	require.NoError(t, initRules(path, false))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = initRules(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, initRules(path, true))

	r, err := rules.Load(path)
	require.NoError(t, err)
	assert.Equal(t, rules.CurrentVersion, r.Version)
}

func TestInitRules_NoPath(t *testing.T) {
	err := initRules("", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules.path")
}

func TestPrintRules(t *testing.T) {
	r := rules.Default()
	r.RecordStrategy("kosekafe.com", model.StrategyScreenshot)

	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "version: 1")
	assert.Contains(t, out, "junk_labels:")
	assert.Contains(t, out, "kosekafe.com: screenshot")
}
