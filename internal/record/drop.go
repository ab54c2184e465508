package record

// DropReason explains why a snapshot produced no record. DropNone means the
// snapshot was accepted.
type DropReason int

const (
	DropNone DropReason = iota
	DropMissingField
	DropBadStatus
	DropDuplicate
	DropError
)

func (d DropReason) String() string {
	switch d {
	case DropNone:
		return "none"
	case DropMissingField:
		return "missing_field"
	case DropBadStatus:
		return "bad_status"
	case DropDuplicate:
		return "duplicate"
	case DropError:
		return "error"
	}
	return "unknown"
}
