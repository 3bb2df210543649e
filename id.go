package harness

import "github.com/jeethualex/harness/id"

// ID is the primary identifier type for harness jobs and events.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
