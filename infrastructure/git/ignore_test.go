package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIgnoreRulesGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "*.log\nbuild/\n")

	rules, err := LoadIgnoreRules(dir)
	require.NoError(t, err)

	assert.True(t, rules.Ignored("debug.log"))
	assert.True(t, rules.Ignored("build/out.bin"))
	assert.False(t, rules.Ignored("main.go"))
}

func TestIgnoreRulesNoIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".noindex", "# generated code\nvendor/\n*.pb.go\n")

	rules, err := LoadIgnoreRules(dir)
	require.NoError(t, err)

	assert.True(t, rules.Ignored("vendor/lib/lib.go"))
	assert.True(t, rules.Ignored("api/service.pb.go"))
	assert.False(t, rules.Ignored("api/service.go"))
}

func TestIgnoreRulesGitDirAlwaysExcluded(t *testing.T) {
	dir := t.TempDir()

	rules, err := LoadIgnoreRules(dir)
	require.NoError(t, err)

	assert.True(t, rules.Ignored(".git/config"))
	assert.True(t, rules.Ignored(".git"))
	assert.False(t, rules.Ignored(".github/workflows/ci.yml"))
}

func TestIgnoreRulesEmptyWorktree(t *testing.T) {
	rules, err := LoadIgnoreRules(t.TempDir())
	require.NoError(t, err)
	assert.False(t, rules.Ignored("anything.go"))
}
