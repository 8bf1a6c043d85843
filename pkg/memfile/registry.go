package memfile

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// liveOwners tracks the identifiers owned by live handles in this process.
// At most one live owner may exist per identifier at creation time; any
// number of attachers may. The map also lets SweepDir refuse to touch links
// whose objects this process still owns.
var liveOwners = cmap.New[struct{}]()

func registerOwner(identifier string) bool {
	return liveOwners.SetIfAbsent(identifier, struct{}{})
}

func unregisterOwner(identifier string) {
	liveOwners.Remove(identifier)
}

func ownedByThisProcess(identifier string) bool {
	return liveOwners.Has(identifier)
}
