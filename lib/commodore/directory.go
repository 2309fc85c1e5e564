package commodore

import (
	"encoding/binary"

	"github.com/zellyn/diskii/lib/errors"
)

// FileType is the low nibble of a Commodore directory entry's type
// byte.
type FileType byte

const (
	FileTypeDEL FileType = 0
	FileTypeSEQ FileType = 1
	FileTypePRG FileType = 2
	FileTypeUSR FileType = 3
	FileTypeREL FileType = 4
)

// String names a FileType the way Commodore DOS's directory listing
// does.
func (ft FileType) String() string {
	switch ft {
	case FileTypeDEL:
		return "DEL"
	case FileTypeSEQ:
		return "SEQ"
	case FileTypePRG:
		return "PRG"
	case FileTypeUSR:
		return "USR"
	case FileTypeREL:
		return "REL"
	default:
		return "???"
	}
}

// FileStatus is the upper nibble (really just bits 5-7) of a directory
// entry's combined status byte.
type FileStatus byte

const (
	StatusUnclosed      FileStatus = 0x00
	StatusNormal        FileStatus = 0x80
	StatusAtReplacement FileStatus = 0xA0
	StatusLocked        FileStatus = 0xC0
)

// fileTypeMask/statusMask/closedBit decompose a directory entry's
// combined status byte.
const (
	fileTypeMask = 0x0F
	statusMask   = 0xE0
	closedBit    = 0x80
)

// FileEntry is a single 32-byte Commodore directory slot's file
// description (the 30 bytes following the optional chain-link
// header).
type FileEntry struct {
	Type        FileType
	Status      FileStatus
	Locked      bool
	Closed      bool
	FirstTrack  byte
	FirstSector byte
	Filename    [16]byte // PETSCII, 0xA0-padded
	SizeBlocks  uint16
}

// ExtendedFileType renders a FileEntry's type the way a Commodore DOS
// directory listing does: a leading "*" marks a file that was never
// closed, a trailing " <" marks a locked file. The three combinations
// that convention leaves blank — a relative file that's unclosed or
// mid-@-replacement, and a deleted slot that's unclosed — render as an
// empty string rather than a bare type name.
func (fe FileEntry) ExtendedFileType() string {
	switch {
	case fe.Type == FileTypeREL && fe.Status == StatusUnclosed,
		fe.Type == FileTypeREL && fe.Status == StatusAtReplacement,
		fe.Type == FileTypeDEL && fe.Status == StatusUnclosed:
		return ""
	}
	name := fe.Type.String()
	switch fe.Status {
	case StatusUnclosed:
		name = "*" + name
	case StatusLocked:
		name = name + " <"
	}
	return name
}

// FilenameString converts a FileEntry's PETSCII, 0xA0-padded name to a
// plain string using the caller-supplied decoder, keeping PETSCII
// table contents an external collaborator's concern rather than this
// package's.
func (fe FileEntry) FilenameString(decode func([]byte) string) string {
	end := len(fe.Filename)
	for end > 0 && fe.Filename[end-1] == 0xA0 {
		end--
	}
	return decode(fe.Filename[:end])
}

// parseFileEntrySlot decodes the 32-byte directory slot starting at
// data[0]. linkTrack/linkSector are only meaningful for the first
// slot in a directory sector.
func parseFileEntrySlot(slot []byte) (entry FileEntry, linkTrack, linkSector byte, valid bool, err error) {
	if len(slot) != 32 {
		return FileEntry{}, 0, 0, false, errors.Invalidf("commodore: directory slot must be 32 bytes, got %d", len(slot))
	}
	linkTrack = slot[0]
	linkSector = slot[1]

	statusByte := slot[2]
	entry.Type = FileType(statusByte & fileTypeMask)
	entry.Status = FileStatus(statusByte & statusMask)
	entry.Closed = statusByte&closedBit != 0
	entry.Locked = entry.Status == StatusLocked
	entry.FirstTrack = slot[3]
	entry.FirstSector = slot[4]
	copy(entry.Filename[:], slot[5:21])
	entry.SizeBlocks = binary.LittleEndian.Uint16(slot[30:32])

	// An all-zero status byte with a zero first track marks an unused
	// slot, mirroring DOS 3.3's "never written" sentinel.
	valid = statusByte != 0 || entry.FirstTrack != 0
	return entry, linkTrack, linkSector, valid, nil
}

// DirectorySector is one 256-byte directory sector: up to 8 file
// entries plus the chain pointer to the next directory sector.
type DirectorySector struct {
	NextTrack  byte
	NextSector byte
	Entries    [8]FileEntry
	Valid      [8]bool
}

// ParseDirectorySector decodes a single 256-byte directory sector.
func ParseDirectorySector(data []byte) (*DirectorySector, error) {
	if len(data) != 256 {
		return nil, errors.Invalidf("commodore: directory sector must be 256 bytes, got %d", len(data))
	}
	ds := &DirectorySector{}
	for i := 0; i < 8; i++ {
		slot := data[i*32 : (i+1)*32]
		entry, linkTrack, linkSector, valid, err := parseFileEntrySlot(slot)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ds.NextTrack = linkTrack
			ds.NextSector = linkSector
		}
		ds.Entries[i] = entry
		ds.Valid[i] = valid
	}
	return ds, nil
}

// sectorReader reads a single logical sector by track/sector from a
// raw image. D64Image implements it directly; it exists so directory
// walking can be tested against a synthetic image too.
type sectorReader interface {
	ReadSector(track, sector byte) ([]byte, error)
}

// maxDirectoryChainLinks bounds how many directory sectors
// ReadDirectory will follow, the same chain-termination safeguard
// lib/dos33 applies to its catalog and track/sector-list chains.
const maxDirectoryChainLinks = 144 // well above the 19 sectors of the directory track (18)

// ReadDirectory walks the directory sector chain starting at
// startTrack/startSector (normally the BAM's
// FirstDirectoryTrack/FirstDirectorySector, conventionally track 18
// sector 1), returning every valid file entry found. A NextTrack of 0
// terminates the chain, matching the convention CBM DOS uses (as
// opposed to DOS 3.3's lib/dos33, where both chain-pointer bytes must
// be zero).
func ReadDirectory(r sectorReader, startTrack, startSector byte) ([]FileEntry, error) {
	var entries []FileEntry
	track, sector := startTrack, startSector
	for i := 0; ; i++ {
		if i >= maxDirectoryChainLinks {
			return nil, errors.Invalidf("commodore: directory chain did not terminate within %d sectors; disk image may be corrupt", maxDirectoryChainLinks)
		}
		data, err := r.ReadSector(track, sector)
		if err != nil {
			return nil, err
		}
		ds, err := ParseDirectorySector(data)
		if err != nil {
			return nil, err
		}
		for i, valid := range ds.Valid {
			if valid {
				entries = append(entries, ds.Entries[i])
			}
		}
		if ds.NextTrack == 0 {
			break
		}
		track, sector = ds.NextTrack, ds.NextSector
	}
	return entries, nil
}
