// Package acl loads the list of non-admin users allowed to call the
// rules endpoint.
package acl

import (
	"encoding/json"
	"fmt"
	"os"
)

// List is the parsed ACL file: {"users": ["alice", "bob"]}.
type List struct {
	Users []string `json:"users"`
}

// Allows reports whether the canonical user name is on the list.
func (l List) Allows(canonicalName string) bool {
	for _, name := range l.Users {
		if name == canonicalName {
			return true
		}
	}
	return false
}

// LoadFile reads and parses the ACL file. The file is read once at startup;
// changing it requires a restart.
func LoadFile(path string) (List, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return List{}, fmt.Errorf("read acl file: %w", err)
	}
	var list List
	if err := json.Unmarshal(contents, &list); err != nil {
		return List{}, fmt.Errorf("parse acl file %s: %w", path, err)
	}
	return list, nil
}
