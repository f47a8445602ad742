package levelstore

import "fmt"

// levelKey is the key that stores the encoded level called name.
func levelKey(prefix, name string) string {
	return fmt.Sprintf("%s:SNAPSHOT:%s", prefix, name)
}

// levelIndexKey is the key of the set holding the names of every stored level.
func levelIndexKey(prefix string) string {
	return fmt.Sprintf("%s:SNAPSHOTS", prefix)
}
