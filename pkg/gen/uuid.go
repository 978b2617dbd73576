package gen

import (
	"github.com/google/uuid"
)

type UUIDGenerator func() uuid.UUID

// UUID returns a generator of random (v4) UUIDs. Random ids keep
// concurrently uploaded files from colliding on disk and in the bucket.
func UUID() UUIDGenerator {
	return func() uuid.UUID {
		return uuid.New()
	}
}

// Static always yields id. Useful for deterministic file names in tests.
func Static(id uuid.UUID) UUIDGenerator {
	return func() uuid.UUID {
		return id
	}
}

func (g UUIDGenerator) Next() uuid.UUID {
	if g == nil {
		return uuid.Nil
	}

	return g()
}

// Name returns the next id in its canonical string form.
func (g UUIDGenerator) Name() string {
	return g.Next().String()
}
