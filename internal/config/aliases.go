// SPDX-License-Identifier: MIT

package config

// Keys accepted by PredefinedTags.Get and PredefinedStoragePaths.Get.
const (
	KeyIdentified = "identified"
	KeyInbox      = "inbox"
	KeyScanned    = "scanned"
	KeyUnsorted   = "unsorted"
)

// LookupAccountHolder returns the alias for an account holder, or the name itself.
func (c *Config) LookupAccountHolder(name string) string {
	return lookupAlias(c.Aliases.AccountHolder, name)
}

// LookupCorrespondent returns the alias for a correspondent, or the name itself.
func (c *Config) LookupCorrespondent(name string) string {
	return lookupAlias(c.Aliases.Correspondent, name)
}

// LookupDocumentType returns the alias for a document type, or the name itself.
func (c *Config) LookupDocumentType(name string) string {
	return lookupAlias(c.Aliases.DocumentType, name)
}

func lookupAlias(aliases map[string]string, name string) string {
	if alias, ok := aliases[name]; ok {
		return alias
	}
	return name
}

// Get returns the configured tag name for key and whether it is set.
func (t PredefinedTags) Get(key string) (string, bool) {
	var v string
	switch key {
	case KeyIdentified:
		v = t.Identified
	case KeyInbox:
		v = t.Inbox
	case KeyScanned:
		v = t.Scanned
	}
	return v, v != ""
}

// Values returns every configured tag name.
func (t PredefinedTags) Values() []string {
	var out []string
	for _, v := range []string{t.Identified, t.Inbox, t.Scanned} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Get returns the configured storage path name for key and whether it is set.
func (p PredefinedStoragePaths) Get(key string) (string, bool) {
	var v string
	switch key {
	case KeyUnsorted:
		v = p.Unsorted
	case KeyScanned:
		v = p.Scanned
	}
	return v, v != ""
}
