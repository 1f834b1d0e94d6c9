package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWeights_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matcher:
  phone_exact: 120
  email_exact: 90
`), 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 120, w.PhoneExact)
	assert.Equal(t, 90, w.EmailExact)
	// Unset entries keep defaults.
	assert.Equal(t, 50, w.PhoneSubstring)
	assert.Equal(t, 90, w.PhoneSuffix)
}

func TestLoadWeights_ZeroDisablesSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matcher:
  name_input_in_stored: 0
  name_stored_in_input: 0
`), 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	// An explicit 0 sticks rather than reverting to the default.
	assert.Equal(t, 0, w.NameInputInStored)
	assert.Equal(t, 0, w.NameStoredInInput)
	assert.Equal(t, 100, w.PhoneExact)
}

func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
