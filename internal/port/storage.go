package port

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ArchivedUnit records where one unit's original media landed.
type ArchivedUnit struct {
	Bucket   string
	Key      string
	Location string
}

// MediaArchive stores the original uploaded media of an inspection, one
// object per unit, addressed by inspection id and unit index. The bucket and
// key layout belong to the implementation; callers never assemble object
// keys.
type MediaArchive interface {
	ArchiveUnit(ctx context.Context, inspectionID uuid.UUID, unitIndex int, body io.Reader, contentType string) (*ArchivedUnit, error)
	RemoveUnit(ctx context.Context, inspectionID uuid.UUID, unitIndex int) error
	UnitURL(ctx context.Context, inspectionID uuid.UUID, unitIndex int) (string, error)
}
