package config

import "strconv"

const redacted = "********"

// Entry is one flattened setting.
type Entry struct {
	Key    string
	Value  string
	Secret bool
}

// Display returns the value with non-empty secrets masked.
func (e Entry) Display() string {
	if e.Secret && e.Value != "" {
		return redacted
	}
	return e.Value
}

// Entries lists every setting in a stable order. Database/log keys are prefixed
// with "config.".
func (c Config) Entries() []Entry {
	entries := []Entry{
		{Key: "debug", Value: strconv.FormatBool(c.Debug)},
		{Key: "session_timeout", Value: strconv.Itoa(c.SessionTimeout)},
		{Key: "hash_key", Value: c.HashKey, Secret: true},
		{Key: "validate_key", Value: c.ValidateKey, Secret: true},
		{Key: "encrypt_key", Value: c.EncryptKey, Secret: true},
		{Key: "secret_key", Value: c.SecretKey, Secret: true},
		{Key: "page_limit", Value: strconv.Itoa(c.PageLimit)},
		{Key: "project_dir", Value: c.ProjectDir},
	}

	values := c.Database.Map()
	for _, key := range DatabaseKeys() {
		entries = append(entries, Entry{
			Key:    "config." + key,
			Value:  values[key],
			Secret: key == KeyDBPasswd,
		})
	}
	return entries
}
