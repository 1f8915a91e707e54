package utils

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// LoadTOMLFile decodes a TOML file into config. Keys the struct does not
// know are reported and otherwise ignored.
func LoadTOMLFile(path string, config any) error {
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		log.Warnf("TOML parsing error in config file %s: %v. Attempting partial recovery...", path, err)
		return err
	}
	if unknown := meta.Undecoded(); len(unknown) > 0 {
		log.Warnf("Ignoring unknown keys in %s: %v", path, unknown)
	}
	return nil
}

// TOMLTable is a loosely typed view of a TOML document or one of its tables.
// Each setter copies a key into dst only when the key holds the expected type,
// so one mistyped key does not cost the rest of the section.
type TOMLTable map[string]any

// ParseTOMLWithRecovery decodes a TOML file without a target struct.
func ParseTOMLWithRecovery(path string) (TOMLTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	table := make(TOMLTable)
	if _, err := toml.Decode(string(data), (*map[string]any)(&table)); err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v", path, err)
		return nil, err
	}
	return table, nil
}

// Section returns the named sub-table, or nil when it is missing or not a table.
// Setters on a nil table are no-ops.
func (t TOMLTable) Section(name string) TOMLTable {
	section, _ := t[name].(map[string]any)
	return section
}

// String sets dst from a string key.
func (t TOMLTable) String(key string, dst *string) bool {
	val, ok := t[key].(string)
	if ok {
		*dst = val
	}
	return ok
}

// Int sets dst from an integer key. TOML integers decode as int64.
func (t TOMLTable) Int(key string, dst *int) bool {
	val, ok := t[key].(int64)
	if ok {
		*dst = int(val)
	} else if _, present := t[key]; present {
		log.Warnf("Config key %q is %T, want integer; keeping default", key, t[key])
	}
	return ok
}

// Bool sets dst from a boolean key.
func (t TOMLTable) Bool(key string, dst *bool) bool {
	val, ok := t[key].(bool)
	if ok {
		*dst = val
	}
	return ok
}
