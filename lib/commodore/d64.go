// Package commodore decodes Commodore 1541 D64 disk images: the
// Block Availability Map at track 18, and the directory/file-entry
// chain the original format decoder this was ported from never
// implemented.
package commodore

import (
	"github.com/zellyn/diskii/lib/errors"
	"github.com/zellyn/diskii/lib/parse"
)

// BAMOffset is the absolute byte offset of the Block Availability Map
// within a standard 35-track D64 image.
const BAMOffset = 0x16500

// Non-uniform track geometry: tracks 1-17 have 21 sectors, 18-24 have
// 19, 25-30 have 18, and 31-35 have 17.
func sectorsForTrack(track int) int {
	switch {
	case track >= 1 && track <= 17:
		return 21
	case track >= 18 && track <= 24:
		return 19
	case track >= 25 && track <= 30:
		return 18
	case track >= 31 && track <= 35:
		return 17
	default:
		return 0
	}
}

// BAMEntry is a single Block Availability Map entry: the number of
// free sectors on a track, and a 3-byte (24-bit) bitmap of which
// sectors on that track are free.
type BAMEntry struct {
	FreeSectorsOnTrack byte
	SectorUseBitmap    [3]byte
}

func parseBAMEntry(c *parse.Cursor) (BAMEntry, error) {
	free, err := c.U8()
	if err != nil {
		return BAMEntry{}, err
	}
	bitmap, err := c.Take(3)
	if err != nil {
		return BAMEntry{}, err
	}
	var e BAMEntry
	e.FreeSectorsOnTrack = free
	copy(e.SectorUseBitmap[:], bitmap)
	return e, nil
}

// IsFree reports whether the given sector (0-based) on this entry's
// track is marked free in the bitmap.
func (e BAMEntry) IsFree(sector int) bool {
	byteIdx := sector / 8
	if byteIdx < 0 || byteIdx >= len(e.SectorUseBitmap) {
		return false
	}
	bit := uint(sector % 8)
	return e.SectorUseBitmap[byteIdx]&(1<<bit) != 0
}

// BlockAvailabilityMap is the D64 Block Availability Map, found at
// absolute offset BAMOffset (the start of track 18's first sector).
type BlockAvailabilityMap struct {
	FirstDirectoryTrack  byte
	FirstDirectorySector byte
	DiskDOSVersion       byte
	Reserved             byte
	Entries              [35]BAMEntry
	DiskName             [16]byte // PETSCII, 0xA0-padded
	Reserved2            [2]byte
	DiskID               uint16
	Reserved3            byte
	DOSType              [2]byte // "2A" for CBM DOS
}

// ParseBlockAvailabilityMap reads the BAM from a full D64 image. It
// requires the first-directory-sector pointer to be track 18 sector 1
// and the DOS version byte to be 0x41 (hard write-protect DOS 2.x);
// any other value is reported as Invalid rather than silently
// accepted, mirroring the strict verification the format decoder this
// was grounded on performs for those same three bytes.
func ParseBlockAvailabilityMap(data []byte) (*BlockAvailabilityMap, error) {
	c := parse.NewCursor(data)
	if err := c.SeekTo(BAMOffset); err != nil {
		return nil, err
	}

	firstTrack, err := c.U8()
	if err != nil {
		return nil, err
	}
	if firstTrack != 0x12 {
		return nil, errors.Invalidf("d64: expected first directory track 0x12, got 0x%02X", firstTrack)
	}
	firstSector, err := c.U8()
	if err != nil {
		return nil, err
	}
	if firstSector != 0x01 {
		return nil, errors.Invalidf("d64: expected first directory sector 0x01, got 0x%02X", firstSector)
	}
	dosVersion, err := c.U8()
	if err != nil {
		return nil, err
	}
	if dosVersion != 0x41 {
		return nil, errors.Invalidf("d64: expected DOS version 0x41 (hard write-protect), got 0x%02X; soft write-protected disks are not supported", dosVersion)
	}
	reserved, err := c.U8()
	if err != nil {
		return nil, err
	}

	bam := &BlockAvailabilityMap{
		FirstDirectoryTrack:  firstTrack,
		FirstDirectorySector: firstSector,
		DiskDOSVersion:       dosVersion,
		Reserved:             reserved,
	}

	for i := 0; i < 35; i++ {
		entry, err := parseBAMEntry(c)
		if err != nil {
			return nil, err
		}
		bam.Entries[i] = entry
	}

	name, err := c.Take(16)
	if err != nil {
		return nil, err
	}
	copy(bam.DiskName[:], name)

	reserved2, err := c.Take(2)
	if err != nil {
		return nil, err
	}
	copy(bam.Reserved2[:], reserved2)

	diskID, err := c.LEU16()
	if err != nil {
		return nil, err
	}
	bam.DiskID = diskID

	reserved3, err := c.U8()
	if err != nil {
		return nil, err
	}
	bam.Reserved3 = reserved3

	dosType, err := c.Take(2)
	if err != nil {
		return nil, err
	}
	if string(dosType) != "2A" {
		return nil, errors.Invalidf("d64: expected DOS type tag \"2A\", got %q", dosType)
	}
	copy(bam.DOSType[:], dosType)

	return bam, nil
}
