package audit

import (
	"github.com/mitchellh/hashstructure/v2"
)

// Hash returns a content hash of the event, used to deduplicate
// redelivered events from at-least-once transports. The event ID is
// part of the hashed structure, so two distinct API calls with
// identical parameters hash differently.
func Hash(e Event) (uint64, error) {
	return hashstructure.Hash(e, hashstructure.FormatV2, nil)
}
