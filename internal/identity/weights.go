package identity

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights are the per-signal match scores. Each signal contributes its
// single best-applicable sub-score; sub-scores never stack within a signal.
type Weights struct {
	PhoneExact        int `yaml:"phone_exact"`
	PhoneSubstring    int `yaml:"phone_substring"`
	EmailExact        int `yaml:"email_exact"`
	EmailSubstring    int `yaml:"email_substring"`
	NameExact         int `yaml:"name_exact"`
	NameInputInStored int `yaml:"name_input_in_stored"`
	NameStoredInInput int `yaml:"name_stored_in_input"`
	PhoneSuffix       int `yaml:"phone_suffix"`
}

// DefaultWeights returns the standard scoring table.
func DefaultWeights() Weights {
	return Weights{
		PhoneExact:        100,
		PhoneSubstring:    50,
		EmailExact:        80,
		EmailSubstring:    40,
		NameExact:         60,
		NameInputInStored: 30,
		NameStoredInInput: 20,
		PhoneSuffix:       90,
	}
}

// weightsFile mirrors Weights with pointer fields so an explicit 0 in the
// file (disabling a signal) is distinguishable from an absent key.
type weightsFile struct {
	PhoneExact        *int `yaml:"phone_exact"`
	PhoneSubstring    *int `yaml:"phone_substring"`
	EmailExact        *int `yaml:"email_exact"`
	EmailSubstring    *int `yaml:"email_substring"`
	NameExact         *int `yaml:"name_exact"`
	NameInputInStored *int `yaml:"name_input_in_stored"`
	NameStoredInInput *int `yaml:"name_stored_in_input"`
	PhoneSuffix       *int `yaml:"phone_suffix"`
}

// LoadWeights reads a scoring table from a YAML file. Absent keys keep
// their defaults, so a partial file overrides selectively; setting a key
// to 0 disables that signal.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return w, eris.Wrapf(err, "identity: read weights %s", path)
	}

	var wrapper struct {
		Matcher weightsFile `yaml:"matcher"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return w, eris.Wrap(err, "identity: parse weights")
	}

	applySet(&w.PhoneExact, wrapper.Matcher.PhoneExact)
	applySet(&w.PhoneSubstring, wrapper.Matcher.PhoneSubstring)
	applySet(&w.EmailExact, wrapper.Matcher.EmailExact)
	applySet(&w.EmailSubstring, wrapper.Matcher.EmailSubstring)
	applySet(&w.NameExact, wrapper.Matcher.NameExact)
	applySet(&w.NameInputInStored, wrapper.Matcher.NameInputInStored)
	applySet(&w.NameStoredInInput, wrapper.Matcher.NameStoredInInput)
	applySet(&w.PhoneSuffix, wrapper.Matcher.PhoneSuffix)

	return w, nil
}

func applySet(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
