package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInlineVars(t *testing.T) {
	vars, err := ParseInlineVars(" proxy_80_port=8080 , proxy_443_port=8443,,")
	require.NoError(t, err)
	assert.Equal(t, Vars{"proxy_80_port": "8080", "proxy_443_port": "8443"}, vars)

	_, err = ParseInlineVars("novalue")
	assert.Error(t, err)

	_, err = ParseInlineVars("=1")
	assert.Error(t, err)

	empty, err := ParseInlineVars("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMergeLaterWins(t *testing.T) {
	merged := Merge(Vars{"a": "1", "b": "1"}, nil, Vars{"b": "2"})
	assert.Equal(t, Vars{"a": "1", "b": "2"}, merged)
}

func TestGet(t *testing.T) {
	v := Vars{"a": "1", "blank": "  "}
	assert.Equal(t, "1", v.Get("a", "x"))
	assert.Equal(t, "x", v.Get("blank", "x"))
	assert.Equal(t, "x", v.Get("missing", "x"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nproxy_80_port=8080\nQUOTED=\"a b\"\n"), 0o600))

	vars, err := LoadEnvFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, "8080", vars["proxy_80_port"])
	assert.Equal(t, "a b", vars["QUOTED"])
}

func TestLoadEnvFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")

	vars, err := LoadEnvFile(missing, true)
	require.NoError(t, err)
	assert.Empty(t, vars)

	_, err = LoadEnvFile(missing, false)
	assert.Error(t, err)
}

func TestFromOS(t *testing.T) {
	t.Setenv("EECTL_TEST_VAR", "a=b")
	assert.Equal(t, "a=b", FromOS()["EECTL_TEST_VAR"])
}
