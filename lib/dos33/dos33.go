// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package dos33 contains routines for working with the on-disk
// structures of Apple DOS 3.3: the VTOC, the catalog sector chain,
// file descriptive entries, and the track/sector-list chains that
// hold a file's data.
package dos33

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/zellyn/diskii/lib/disk"
	"github.com/zellyn/diskii/lib/errors"
)

const (
	// VTOCTrack is the track on a DOS 3.3 disk that holds the VTOC.
	VTOCTrack = 17
	// VTOCSector is the sector on a DOS 3.3 disk that holds the VTOC.
	VTOCSector = 0

	// maxChainLinks bounds how many track/sector-list
	// sectors a single file's chain may hold, and how many catalog
	// sectors the catalog chain may hold: one per sector on the disk,
	// which is already far more than DOS 3.3 ever produces. Without a
	// bound, a disk image with a corrupted chain that points back on
	// itself would walk forever.
	maxChainLinks = DOS33Tracks * DOS33Sectors

	// DOS33Tracks and DOS33Sectors describe the standard DOS 3.3
	// geometry this package assumes throughout.
	DOS33Tracks  = 35
	DOS33Sectors = 16
)

// DiskSector records the track/sector a structure was read from (or
// will be written to), so that round-tripping it doesn't require the
// caller to track the location separately.
type DiskSector struct {
	Track  byte
	Sector byte
}

// GetTrack returns the track a DiskSector was loaded from.
func (ds DiskSector) GetTrack() byte { return ds.Track }

// SetTrack sets the track a DiskSector was loaded from.
func (ds *DiskSector) SetTrack(track byte) { ds.Track = track }

// GetSector returns the sector a DiskSector was loaded from.
func (ds DiskSector) GetSector() byte { return ds.Sector }

// SetSector sets the sector a DiskSector was loaded from.
func (ds *DiskSector) SetSector(sector byte) { ds.Sector = sector }

// TrackFreeSectors maps the free sectors in a single track.
type TrackFreeSectors [4]byte

// IsFree returns true if the given sector on a track is free. It
// returns false for sector > 15.
func (t TrackFreeSectors) IsFree(sector byte) bool {
	if sector >= 16 {
		return false
	}
	bits := byte(1) << (sector % 8)
	if sector < 8 {
		return t[1]&bits > 0
	}
	return t[0]&bits > 0
}

// UnusedClear returns true if the unused bytes of the free sector map
// for a track are zeroes (as they're supposed to be).
func (t TrackFreeSectors) UnusedClear() bool {
	return t[2] == 0 && t[3] == 0
}

// DiskFreeSectors maps the free sectors on a disk.
type DiskFreeSectors [50]TrackFreeSectors

// VTOC is the struct used to hold the DOS 3.3 VTOC structure.
// See page 4-2 of Beneath Apple DOS.
type VTOC struct {
	DiskSector
	Unused1       byte
	CatalogTrack  byte
	CatalogSector byte
	DOSRelease    byte
	Unused2       [2]byte
	Volume        byte
	Unused3       [32]byte
	// TrackSectorListMaxSize is the maximum number of track/sector
	// pairs which will fit in one file track/sector list sector (122
	// for 256-byte sectors).
	TrackSectorListMaxSize byte
	Unused4                [8]byte
	LastTrack              byte
	TrackDirection         int8
	Unused5                [2]byte
	NumTracks              byte
	NumSectors             byte
	BytesPerSector         uint16
	FreeSectors            DiskFreeSectors
}

var _ disk.SectorSource = VTOC{}
var _ disk.SectorSink = &VTOC{}

// Validate checks a VTOC sector to make sure it looks normal.
func (v *VTOC) Validate() error {
	if v.Volume == 255 {
		return errors.Invalidf("expected volume to be 0-254, but got 255")
	}
	if v.DOSRelease != 3 {
		return errors.Invalidf("expected DOS release number to be 3; got %d", v.DOSRelease)
	}
	if v.TrackDirection != 1 && v.TrackDirection != -1 {
		return errors.Invalidf("expected track direction to be 1 or -1; got %d", v.TrackDirection)
	}
	if v.NumTracks != 35 && v.NumTracks != 40 {
		return errors.Invalidf("expected number of tracks to be 35 or 40; got %d", v.NumTracks)
	}
	if v.NumSectors != 13 && v.NumSectors != 16 {
		return errors.Invalidf("expected number of sectors per track to be 13 or 16; got %d", v.NumSectors)
	}
	if v.BytesPerSector != 256 {
		return errors.Invalidf("expected 256 bytes per sector; got %d", v.BytesPerSector)
	}
	if v.TrackSectorListMaxSize != 122 {
		return errors.Invalidf("expected 122 track/sector pairs per track/sector list sector; got %d", v.TrackSectorListMaxSize)
	}
	for i, tf := range v.FreeSectors {
		if !tf.UnusedClear() {
			return errors.Invalidf("unused bytes of free-sector list for track %d are not zeroes", i)
		}
	}
	return nil
}

// ToSector marshals the VTOC sector to bytes.
func (v VTOC) ToSector() ([]byte, error) {
	buf := make([]byte, 256)
	buf[0x00] = v.Unused1
	buf[0x01] = v.CatalogTrack
	buf[0x02] = v.CatalogSector
	buf[0x03] = v.DOSRelease
	copyBytes(buf[0x04:0x06], v.Unused2[:])
	buf[0x06] = v.Volume
	copyBytes(buf[0x07:0x27], v.Unused3[:])
	buf[0x27] = v.TrackSectorListMaxSize
	copyBytes(buf[0x28:0x30], v.Unused4[:])
	buf[0x30] = v.LastTrack
	buf[0x31] = byte(v.TrackDirection)
	copyBytes(buf[0x32:0x34], v.Unused5[:])
	buf[0x34] = v.NumTracks
	buf[0x35] = v.NumSectors
	binary.LittleEndian.PutUint16(buf[0x36:0x38], v.BytesPerSector)
	for i, m := range v.FreeSectors {
		copyBytes(buf[0x38+4*i:0x38+4*i+4], m[:])
	}
	return buf, nil
}

// copyBytes is just like the builtin copy, but just for byte slices,
// and it checks that dst and src have the same length.
func copyBytes(dst, src []byte) int {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("copyBytes called with differing lengths %d and %d", len(dst), len(src)))
	}
	return copy(dst, src)
}

// FromSector unmarshals the VTOC sector from bytes. Input is expected
// to be exactly 256 bytes.
func (v *VTOC) FromSector(data []byte) error {
	if len(data) != 256 {
		return errors.Invalidf("VTOC.FromSector expects exactly 256 bytes; got %d", len(data))
	}

	v.Unused1 = data[0x00]
	v.CatalogTrack = data[0x01]
	v.CatalogSector = data[0x02]
	v.DOSRelease = data[0x03]
	copyBytes(v.Unused2[:], data[0x04:0x06])
	v.Volume = data[0x06]
	copyBytes(v.Unused3[:], data[0x07:0x27])
	v.TrackSectorListMaxSize = data[0x27]
	copyBytes(v.Unused4[:], data[0x28:0x30])
	v.LastTrack = data[0x30]
	v.TrackDirection = int8(data[0x31])
	copyBytes(v.Unused5[:], data[0x32:0x34])
	v.NumTracks = data[0x34]
	v.NumSectors = data[0x35]
	v.BytesPerSector = binary.LittleEndian.Uint16(data[0x36:0x38])
	for i := range v.FreeSectors {
		copyBytes(v.FreeSectors[i][:], data[0x38+4*i:0x38+4*i+4])
	}
	return nil
}

// DefaultVTOC returns a VTOC with typical values for a freshly
// initialized 35-track, 16-sector DOS 3.3 disk.
func DefaultVTOC() VTOC {
	v := VTOC{
		CatalogTrack:           0x11,
		CatalogSector:          0x0f,
		DOSRelease:             0x03,
		Volume:                 0x01,
		TrackSectorListMaxSize: 122,
		TrackDirection:         1,
		NumTracks:              0x23,
		NumSectors:             0x10,
		BytesPerSector:         0x100,
	}
	for i := range v.FreeSectors {
		if i < 35 {
			v.FreeSectors[i] = TrackFreeSectors{0xff, 0xff, 0x00, 0x00}
		}
	}
	return v
}

// CatalogSector is the struct used to hold the DOS 3.3 Catalog sector.
type CatalogSector struct {
	DiskSector
	Unused1    byte
	NextTrack  byte
	NextSector byte
	Unused2    [8]byte
	FileDescs  [7]FileDesc
}

var _ disk.SectorSource = CatalogSector{}
var _ disk.SectorSink = &CatalogSector{}

// ToSector marshals the CatalogSector to bytes.
func (cs CatalogSector) ToSector() ([]byte, error) {
	buf := make([]byte, 256)
	buf[0x00] = cs.Unused1
	buf[0x01] = cs.NextTrack
	buf[0x02] = cs.NextSector
	copyBytes(buf[0x03:0x0b], cs.Unused2[:])
	for i, fd := range cs.FileDescs {
		fdBytes := fd.ToBytes()
		copyBytes(buf[0x0b+35*i:0x0b+35*(i+1)], fdBytes)
	}
	return buf, nil
}

// FromSector unmarshals the CatalogSector from bytes. Input is
// expected to be exactly 256 bytes.
func (cs *CatalogSector) FromSector(data []byte) error {
	if len(data) != 256 {
		return errors.Invalidf("CatalogSector.FromSector expects exactly 256 bytes; got %d", len(data))
	}

	cs.Unused1 = data[0x00]
	cs.NextTrack = data[0x01]
	cs.NextSector = data[0x02]
	copyBytes(cs.Unused2[:], data[0x03:0x0b])

	for i := range cs.FileDescs {
		cs.FileDescs[i].FromBytes(data[0x0b+35*i : 0x0b+35*(i+1)])
	}
	return nil
}

// Filetype is the type for the DOS 3.3 filetype+locked status byte.
type Filetype byte

const (
	// FiletypeLocked is ORed with a filetype to mark a file locked.
	FiletypeLocked Filetype = 0x80

	FiletypeText        Filetype = 0x00
	FiletypeInteger     Filetype = 0x01
	FiletypeApplesoft   Filetype = 0x02
	FiletypeBinary      Filetype = 0x04
	FiletypeS           Filetype = 0x08
	FiletypeRelocatable Filetype = 0x10
	FiletypeA           Filetype = 0x20
	FiletypeB           Filetype = 0x40
)

// String renders the filetype's single display character as a
// string, for use in messages and listings.
func (ft Filetype) String() string {
	return string(ft.DisplayChar())
}

// Locked reports whether the file's locked bit is set.
func (ft Filetype) Locked() bool {
	return ft&FiletypeLocked != 0
}

// DisplayChar returns the single character a DOS 3.3 catalog listing
// uses for this file's type, ignoring the locked bit.
func (ft Filetype) DisplayChar() byte {
	switch ft &^ FiletypeLocked {
	case FiletypeText:
		return 'T'
	case FiletypeInteger:
		return 'I'
	case FiletypeApplesoft:
		return 'A'
	case FiletypeBinary:
		return 'B'
	case FiletypeS:
		return 'S'
	case FiletypeRelocatable:
		return 'R'
	case FiletypeA:
		return 'a'
	case FiletypeB:
		return 'b'
	default:
		return '?'
	}
}

// FileDescStatus describes whether a file descriptive entry is in
// use, deleted, or has never been written.
type FileDescStatus int

const (
	FileDescStatusNormal FileDescStatus = iota
	FileDescStatusDeleted
	FileDescStatusUnused
)

// FileDesc is the struct used to represent the DOS 3.3 File
// Descriptive entry.
type FileDesc struct {
	// TrackSectorListTrack is the track of the first track/sector list
	// sector. If this is a deleted file, this byte contains 0xFF and
	// the original track number is copied to the last byte of the file
	// name field. If this byte is 0x00, the entry has never been used.
	TrackSectorListTrack  byte
	TrackSectorListSector byte
	Filetype              Filetype
	Filename              [30]byte
	SectorCount           uint16
}

// NewFileDesc builds a FileDesc for a normal (not deleted, not
// unused) file from a plain low-ASCII name: the name is high-bit-set
// and right-padded to 30 bytes with the on-disk space character
// (0xA0), the inverse of FilenameString. A name outside the 1-30 byte
// range is rejected, matching the on-disk field width.
func NewFileDesc(tslTrack, tslSector byte, ft Filetype, locked bool, name string, sectorCount uint16) (FileDesc, error) {
	if len(name) < 1 || len(name) > 30 {
		return FileDesc{}, errors.Invalidf("Filename size is invalid: %d", len(name))
	}
	var filename [30]byte
	for i := range filename {
		filename[i] = 0xA0
	}
	for i := 0; i < len(name); i++ {
		filename[i] = name[i] + 0x80
	}
	if locked {
		ft |= FiletypeLocked
	}
	return FileDesc{
		TrackSectorListTrack:  tslTrack,
		TrackSectorListSector: tslSector,
		Filetype:              ft,
		Filename:              filename,
		SectorCount:           sectorCount,
	}, nil
}

// ToBytes marshals the FileDesc to bytes.
func (fd FileDesc) ToBytes() []byte {
	buf := make([]byte, 35)
	buf[0x00] = fd.TrackSectorListTrack
	buf[0x01] = fd.TrackSectorListSector
	buf[0x02] = byte(fd.Filetype)
	copyBytes(buf[0x03:0x21], fd.Filename[:])
	binary.LittleEndian.PutUint16(buf[0x21:0x23], fd.SectorCount)
	return buf
}

// FromBytes unmarshals the FileDesc from bytes. Input is expected to
// be exactly 35 bytes.
func (fd *FileDesc) FromBytes(data []byte) {
	if len(data) != 35 {
		panic(fmt.Sprintf("FileDesc.FromBytes expects exactly 35 bytes; got %d", len(data)))
	}

	fd.TrackSectorListTrack = data[0x00]
	fd.TrackSectorListSector = data[0x01]
	fd.Filetype = Filetype(data[0x02])
	copyBytes(fd.Filename[:], data[0x03:0x21])
	fd.SectorCount = binary.LittleEndian.Uint16(data[0x21:0x23])
}

// Status returns whether the FileDesc describes a deleted file, a
// normal file, or has never been used.
func (fd *FileDesc) Status() FileDescStatus {
	switch fd.TrackSectorListTrack {
	case 0:
		return FileDescStatusUnused
	case 0xff:
		return FileDescStatusDeleted
	default:
		return FileDescStatusNormal
	}
}

// FilenameString returns the filename of a FileDesc as a normal
// string: the high bit stripped from each byte, trailing spaces
// trimmed, and (for deleted files, whose last filename byte holds the
// original track number rather than a character) the last byte
// dropped.
func (fd *FileDesc) FilenameString() string {
	var slice []byte
	if fd.Status() == FileDescStatusDeleted {
		slice = append(slice, fd.Filename[0:len(fd.Filename)-1]...)
	} else {
		slice = append(slice, fd.Filename[:]...)
	}
	for i := range slice {
		slice[i] -= 0x80
	}
	return strings.TrimRight(string(slice), " ")
}

// TrackSectorList is the struct used to represent DOS 3.3
// Track/Sector List sectors.
type TrackSectorList struct {
	DiskSector
	Unused1      byte
	NextTrack    byte
	NextSector   byte
	Unused2      [2]byte
	SectorOffset uint16
	Unused3      [5]byte
	TrackSectors [122]disk.TrackSector
}

var _ disk.SectorSource = TrackSectorList{}
var _ disk.SectorSink = &TrackSectorList{}

// HasNext reports whether this track/sector-list sector points at a
// continuation sector. Both the track and sector byte must be zero to
// signal "no continuation"; a lone zero (only one of the two bytes
// zero) is not a valid terminator and is reported as Invalid by
// Next.
func (tsl TrackSectorList) HasNext() bool {
	return tsl.NextTrack != 0 || tsl.NextSector != 0
}

// Next returns the track/sector of the continuation sector, or an
// Invalid error if exactly one of NextTrack/NextSector is zero.
func (tsl TrackSectorList) Next() (track, sector byte, err error) {
	if tsl.NextTrack == 0 && tsl.NextSector == 0 {
		return 0, 0, errors.NotFoundf("track/sector list has no continuation sector")
	}
	if tsl.NextTrack == 0 || tsl.NextSector == 0 {
		return 0, 0, errors.Invalidf("track/sector list continuation pointer is only half-present: track=%d sector=%d", tsl.NextTrack, tsl.NextSector)
	}
	return tsl.NextTrack, tsl.NextSector, nil
}

// ToSector marshals the TrackSectorList to bytes.
func (tsl TrackSectorList) ToSector() ([]byte, error) {
	buf := make([]byte, 256)
	buf[0x00] = tsl.Unused1
	buf[0x01] = tsl.NextTrack
	buf[0x02] = tsl.NextSector
	copyBytes(buf[0x03:0x05], tsl.Unused2[:])
	binary.LittleEndian.PutUint16(buf[0x05:0x07], tsl.SectorOffset)
	copyBytes(buf[0x07:0x0C], tsl.Unused3[:])

	for i, ts := range tsl.TrackSectors {
		buf[0x0C+i*2] = ts.Track
		buf[0x0D+i*2] = ts.Sector
	}
	return buf, nil
}

// FromSector unmarshals the TrackSectorList from bytes. Input is
// expected to be exactly 256 bytes.
func (tsl *TrackSectorList) FromSector(data []byte) error {
	if len(data) != 256 {
		return errors.Invalidf("TrackSectorList.FromSector expects exactly 256 bytes; got %d", len(data))
	}

	tsl.Unused1 = data[0x00]
	tsl.NextTrack = data[0x01]
	tsl.NextSector = data[0x02]
	copyBytes(tsl.Unused2[:], data[0x03:0x05])
	tsl.SectorOffset = binary.LittleEndian.Uint16(data[0x05:0x07])
	copyBytes(tsl.Unused3[:], data[0x07:0x0C])

	for i := range tsl.TrackSectors {
		tsl.TrackSectors[i].Track = data[0x0C+i*2]
		tsl.TrackSectors[i].Sector = data[0x0D+i*2]
	}
	return nil
}

// readCatalogSectors reads the raw CatalogSector structs from a DOS
// 3.3 disk by walking the catalog chain starting from the VTOC. The
// walk is bounded by maxChainLinks, so a disk with a chain that loops
// back on itself fails with an error instead of looping forever.
func readCatalogSectors(d disk.LogicalSectorDisk) ([]CatalogSector, error) {
	v := &VTOC{}
	if err := disk.UnmarshalLogicalSector(d, v, VTOCTrack, VTOCSector); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, errors.Invalidf("invalid VTOC sector: %v", err)
	}

	nextTrack := v.CatalogTrack
	nextSector := v.CatalogSector
	var css []CatalogSector
	for i := 0; nextTrack != 0 || nextSector != 0; i++ {
		if i >= maxChainLinks {
			return nil, errors.Invalidf("catalog chain did not terminate within %d sectors; disk image may be corrupt", maxChainLinks)
		}
		if nextTrack >= v.NumTracks {
			return nil, errors.Invalidf("catalog sectors can't be in track %d: disk only has %d tracks", nextTrack, v.NumTracks)
		}
		if nextSector >= v.NumSectors {
			return nil, errors.Invalidf("catalog sectors can't be in sector %d: disk only has %d sectors", nextSector, v.NumSectors)
		}
		cs := CatalogSector{}
		if err := disk.UnmarshalLogicalSector(d, &cs, nextTrack, nextSector); err != nil {
			return nil, err
		}
		css = append(css, cs)
		nextTrack = cs.NextTrack
		nextSector = cs.NextSector
	}
	return css, nil
}

// ReadCatalog reads the catalog of a DOS 3.3 disk, splitting entries
// into currently-used files and deleted-but-not-yet-overwritten ones.
func ReadCatalog(d disk.LogicalSectorDisk) (files, deleted []FileDesc, err error) {
	css, err := readCatalogSectors(d)
	if err != nil {
		return nil, nil, err
	}

	for _, cs := range css {
		for _, fd := range cs.FileDescs {
			switch fd.Status() {
			case FileDescStatusUnused:
				// skip
			case FileDescStatusDeleted:
				deleted = append(deleted, fd)
			case FileDescStatusNormal:
				files = append(files, fd)
			}
		}
	}
	return files, deleted, nil
}

// AssembleFile walks a file's track/sector-list chain and returns the
// concatenated bytes of every data sector it names, in order. A
// TrackSector pair of {0,0} within a track/sector-list sector marks
// an unallocated (sparse) block of the file and contributes 256
// zero bytes, matching DOS 3.3's sparse-file convention. The unused
// {0,0} slots after the last allocated pair of the final
// track/sector-list sector are not part of the file.
func AssembleFile(d disk.LogicalSectorDisk, fd FileDesc) ([]byte, error) {
	if fd.Status() != FileDescStatusNormal {
		return nil, errors.Invalidf("cannot assemble a file whose status is not normal")
	}

	track, sector := fd.TrackSectorListTrack, fd.TrackSectorListSector
	var out []byte
	for i := 0; ; i++ {
		if i >= maxChainLinks {
			return nil, errors.Invalidf("track/sector list chain did not terminate within %d sectors; disk image may be corrupt", maxChainLinks)
		}
		tsl := TrackSectorList{}
		if err := disk.UnmarshalLogicalSector(d, &tsl, track, sector); err != nil {
			return nil, err
		}
		pairs := tsl.TrackSectors[:]
		if !tsl.HasNext() {
			end := 0
			for j, ts := range pairs {
				if ts.Track != 0 || ts.Sector != 0 {
					end = j + 1
				}
			}
			pairs = pairs[:end]
		}
		for _, ts := range pairs {
			if ts.Track == 0 && ts.Sector == 0 {
				out = append(out, make([]byte, 256)...)
				continue
			}
			data, err := d.ReadLogicalSector(ts.Track, ts.Sector)
			if err != nil {
				return nil, err
			}
			out = append(out, data...)
		}
		if !tsl.HasNext() {
			break
		}
		var err error
		track, sector, err = tsl.Next()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExtractFile assembles a file's data sectors and, for binary files,
// strips the leading 4-byte address/length header down to just the
// length bytes of payload that follow it. Other file types have no
// such header and no generally-applicable way to know where their
// payload ends within the last sector, so extraction for them fails.
func ExtractFile(d disk.LogicalSectorDisk, fd FileDesc) ([]byte, error) {
	raw, err := AssembleFile(d, fd)
	if err != nil {
		return nil, err
	}
	if fd.Filetype&^FiletypeLocked != FiletypeBinary {
		return nil, errors.Invalidf("unsupported file type for export")
	}
	if len(raw) < 4 {
		return nil, errors.Invalidf("binary file %q is too short to hold an address/length header", fd.FilenameString())
	}
	length := binary.LittleEndian.Uint16(raw[2:4])
	payload := raw[4:]
	if int(length) > len(payload) {
		return nil, errors.Invalidf("binary file %q declares length %d but only %d bytes follow its header", fd.FilenameString(), length, len(payload))
	}
	return payload[:length], nil
}
