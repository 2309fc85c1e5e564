package commodore

import (
	"github.com/zellyn/diskii/lib/errors"
)

// Image is a flat, 256-byte-sector D64 disk image: 35 tracks of
// non-uniform sector counts, addressed by absolute byte offset the
// way lib/disk.DSK addresses Apple DOS 3.3 sectors.
type Image struct {
	data []byte
}

// NewImage wraps raw D64 bytes for track/sector access. It does not
// validate the image's length; ReadSector reports an Invalid error if
// an out-of-range track/sector is requested against it.
func NewImage(data []byte) *Image {
	return &Image{data: data}
}

// offset computes the absolute byte offset of a 1-based track, 0-based
// sector pair, accounting for the non-uniform D64 track geometry.
func offset(track, sector int) (int, error) {
	if track < 1 || track > 35 {
		return 0, errors.Invalidf("d64: track must be 1-35, got %d", track)
	}
	secs := sectorsForTrack(track)
	if sector < 0 || sector >= secs {
		return 0, errors.Invalidf("d64: track %d has %d sectors, got sector %d", track, secs, sector)
	}
	off := 0
	for t := 1; t < track; t++ {
		off += sectorsForTrack(t) * 256
	}
	return off + sector*256, nil
}

// ReadSector returns the 256 bytes of the given track/sector.
func (img *Image) ReadSector(track, sector byte) ([]byte, error) {
	off, err := offset(int(track), int(sector))
	if err != nil {
		return nil, err
	}
	if off+256 > len(img.data) {
		return nil, errors.Invalidf("d64: track %d sector %d (offset %d) past end of %d-byte image", track, sector, off, len(img.data))
	}
	return img.data[off : off+256], nil
}

var _ sectorReader = (*Image)(nil)

// Disk is a fully decoded D64 disk image: its Block Availability Map
// and directory.
type Disk struct {
	BAM       *BlockAvailabilityMap
	Directory []FileEntry
}

// Parse decodes a D64 image's BAM and walks its directory chain.
func Parse(data []byte) (*Disk, error) {
	bam, err := ParseBlockAvailabilityMap(data)
	if err != nil {
		return nil, err
	}
	img := NewImage(data)
	entries, err := ReadDirectory(img, bam.FirstDirectoryTrack, bam.FirstDirectorySector)
	if err != nil {
		return nil, err
	}
	return &Disk{BAM: bam, Directory: entries}, nil
}

// Save is not implemented: writing a D64 image back out requires
// knowing how to re-derive a valid BAM free-sector map from a
// modified directory and file chain, which this decoding-focused core
// does not attempt.
func (d *Disk) Save() ([]byte, error) {
	return nil, errors.Unimplementedf("saving D64 disk images not implemented")
}
