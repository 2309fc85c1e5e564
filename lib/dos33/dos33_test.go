package dos33

import (
	"bytes"
	"crypto/rand"
	"io"
	"reflect"
	"testing"

	"github.com/zellyn/diskii/lib/disk"
	"github.com/zellyn/diskii/lib/errors"
)

// TestVTOCRoundtrip checks a simple roundtrip of VTOC data.
func TestVTOCRoundtrip(t *testing.T) {
	buf := make([]byte, 256)
	rand.Read(buf)
	vtoc1 := &VTOC{}
	if err := vtoc1.FromSector(buf); err != nil {
		t.Fatal(err)
	}
	buf2, err := vtoc1.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(buf, buf2) {
		t.Errorf("Buffers differ: %v != %v", buf, buf2)
	}
	vtoc2 := &VTOC{}
	if err := vtoc2.FromSector(buf2); err != nil {
		t.Fatal(err)
	}
	if *vtoc1 != *vtoc2 {
		t.Errorf("Structs differ: %v != %v", vtoc1, vtoc2)
	}
}

// TestCatalogSectorRoundtrip checks a simple roundtrip of CatalogSector data.
func TestCatalogSectorRoundtrip(t *testing.T) {
	buf := make([]byte, 256)
	rand.Read(buf)
	cs1 := &CatalogSector{}
	if err := cs1.FromSector(buf); err != nil {
		t.Fatal(err)
	}
	buf2, err := cs1.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(buf, buf2) {
		t.Errorf("Buffers differ: %v != %v", buf, buf2)
	}
	cs2 := &CatalogSector{}
	if err := cs2.FromSector(buf2); err != nil {
		t.Fatal(err)
	}
	if *cs1 != *cs2 {
		t.Errorf("Structs differ: %v != %v", cs1, cs2)
	}
}

// TestTrackSectorListRoundtrip checks a simple roundtrip of TrackSectorList data.
func TestTrackSectorListRoundtrip(t *testing.T) {
	buf := make([]byte, 256)
	rand.Read(buf)
	tsl1 := &TrackSectorList{}
	if err := tsl1.FromSector(buf); err != nil {
		t.Fatal(err)
	}
	buf2, err := tsl1.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(buf, buf2) {
		t.Errorf("Buffers differ: %v != %v", buf, buf2)
	}
}

// TestFilenameStringLocked checks the high-bit-stripped, space-trimmed
// filename of a normal, locked file entry.
func TestFilenameStringLocked(t *testing.T) {
	fd := FileDesc{
		TrackSectorListTrack: 0x01,
		Filetype:             FiletypeApplesoft | FiletypeLocked,
	}
	copy(fd.Filename[:], []byte("HELLO"))
	for i := range fd.Filename {
		if fd.Filename[i] == 0 {
			fd.Filename[i] = ' '
		}
		fd.Filename[i] += 0x80
	}
	if got, want := fd.FilenameString(), "HELLO"; got != want {
		t.Errorf("FilenameString() = %q; want %q", got, want)
	}
	if fd.Status() != FileDescStatusNormal {
		t.Errorf("Status() = %v; want Normal", fd.Status())
	}
}

// TestNewFileDescRoundtrip checks the literal 35-byte encoding of an
// unlocked Applesoft file named "HELLO" and that decoding it back
// yields an equal entry.
func TestNewFileDescRoundtrip(t *testing.T) {
	fd, err := NewFileDesc(0x12, 0x0F, FiletypeApplesoft, false, "HELLO", 0x0002)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x12, 0x0F, 0x02,
		0xC8, 0xC5, 0xCC, 0xCC, 0xCF,
		0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0,
		0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0, 0xA0,
		0xA0, 0xA0, 0xA0, 0xA0, 0xA0,
		0x02, 0x00,
	}
	got := fd.ToBytes()
	if !bytes.Equal(got, want) {
		t.Errorf("ToBytes() = % X; want % X", got, want)
	}

	var fd2 FileDesc
	fd2.FromBytes(got)
	if !reflect.DeepEqual(fd, fd2) {
		t.Errorf("round-tripped FileDesc = %+v; want %+v", fd2, fd)
	}
	if got, want := fd2.FilenameString(), "HELLO"; got != want {
		t.Errorf("FilenameString() = %q; want %q", got, want)
	}
}

// TestNewFileDescLocked checks that the locked flag sets the
// filetype's high bit, per the file-type byte in the on-disk entry.
func TestNewFileDescLocked(t *testing.T) {
	fd, err := NewFileDesc(0x12, 0x0F, FiletypeApplesoft, true, "HELLO", 0x0002)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := fd.ToBytes()[2], byte(0x82); got != want {
		t.Errorf("type byte = 0x%02X; want 0x%02X", got, want)
	}
	if !fd.Filetype.Locked() {
		t.Errorf("Locked() = false; want true")
	}
}

// TestNewFileDescBadNameLength checks the Invalid error message for
// names outside the 1-30 byte range the on-disk field allows.
func TestNewFileDescBadNameLength(t *testing.T) {
	_, err := NewFileDesc(0x12, 0x0F, FiletypeApplesoft, false, "", 0)
	if !errors.IsInvalid(err) {
		t.Fatalf("expected Invalid error for empty name, got %v", err)
	}
	if got, want := err.Error(), "Filename size is invalid: 0"; got != want {
		t.Errorf("error = %q; want %q", got, want)
	}

	long := make([]byte, 31)
	for i := range long {
		long[i] = 'A'
	}
	_, err = NewFileDesc(0x12, 0x0F, FiletypeApplesoft, false, string(long), 0)
	if !errors.IsInvalid(err) {
		t.Fatalf("expected Invalid error for 31-byte name, got %v", err)
	}
	if got, want := err.Error(), "Filename size is invalid: 31"; got != want {
		t.Errorf("error = %q; want %q", got, want)
	}
}

// TestTrackSectorListNextHalfPresent checks that a continuation
// pointer with only one of its two bytes zero is reported Invalid
// rather than silently treated as either "no continuation" or a valid
// link, per the joint-zero convention this package requires.
func TestTrackSectorListNextHalfPresent(t *testing.T) {
	tsl := TrackSectorList{NextTrack: 0, NextSector: 5}
	if _, _, err := tsl.Next(); !errors.IsInvalid(err) {
		t.Errorf("expected Invalid error for half-present continuation, got %v", err)
	}
}

// fakeDisk is a minimal in-memory disk.LogicalSectorDisk used to
// exercise the catalog-chain and track/sector-list walks without a
// real .dsk fixture.
type fakeDisk struct {
	sectors map[[2]byte][]byte
	tracks  byte
	secs    byte
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{sectors: make(map[[2]byte][]byte), tracks: DOS33Tracks, secs: DOS33Sectors}
}

func (f *fakeDisk) put(track, sector byte, data []byte) {
	buf := make([]byte, 256)
	copy(buf, data)
	f.sectors[[2]byte{track, sector}] = buf
}

func (f *fakeDisk) ReadLogicalSector(track, sector byte) ([]byte, error) {
	d, ok := f.sectors[[2]byte{track, sector}]
	if !ok {
		return make([]byte, 256), nil
	}
	return d, nil
}

func (f *fakeDisk) WriteLogicalSector(track, sector byte, data []byte) error {
	f.put(track, sector, data)
	return nil
}
func (f *fakeDisk) Sectors() byte             { return f.secs }
func (f *fakeDisk) Tracks() byte              { return f.tracks }
func (f *fakeDisk) Write(w io.Writer) (int, error) { return 0, nil }
func (f *fakeDisk) Order() string             { return "dos33" }

var _ disk.LogicalSectorDisk = (*fakeDisk)(nil)

// buildTestDisk writes a VTOC, a single catalog sector with one file,
// and that file's two-sector track/sector list and data, returning the
// disk and the file's descriptive entry.
func buildTestDisk(t *testing.T) (*fakeDisk, FileDesc) {
	t.Helper()
	d := newFakeDisk()

	vtoc := DefaultVTOC()
	vtoc.CatalogTrack = 17
	vtoc.CatalogSector = 15
	vbuf, err := vtoc.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(VTOCTrack, VTOCSector, vbuf)

	var fd FileDesc
	fd.TrackSectorListTrack = 18
	fd.TrackSectorListSector = 0
	fd.Filetype = FiletypeBinary | FiletypeLocked
	copy(fd.Filename[:], bytes.Repeat([]byte{' '}, 30))
	copy(fd.Filename[:], []byte("HELLO"))
	for i := range fd.Filename {
		fd.Filename[i] += 0x80
	}
	fd.SectorCount = 2

	cs := CatalogSector{}
	cs.FileDescs[0] = fd
	csbuf, err := cs.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(17, 15, csbuf)

	tsl := TrackSectorList{}
	tsl.TrackSectors[0] = disk.TrackSector{Track: 19, Sector: 0}
	tsl.TrackSectors[1] = disk.TrackSector{Track: 19, Sector: 1}
	tslbuf, err := tsl.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(18, 0, tslbuf)

	d.put(19, 0, bytes.Repeat([]byte{0xAA}, 256))
	d.put(19, 1, bytes.Repeat([]byte{0xBB}, 256))

	return d, fd
}

// TestReadCatalogWalksChain checks that ReadCatalog finds the single
// file written by buildTestDisk.
func TestReadCatalogWalksChain(t *testing.T) {
	d, _ := buildTestDisk(t)
	files, deleted, err := ReadCatalog(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 0 {
		t.Errorf("want 0 deleted files, got %d", len(deleted))
	}
	if len(files) != 1 {
		t.Fatalf("want 1 file, got %d", len(files))
	}
	if got, want := files[0].FilenameString(), "HELLO"; got != want {
		t.Errorf("filename = %q; want %q", got, want)
	}
}

// TestAssembleFile checks that AssembleFile concatenates the sectors
// named by a file's track/sector-list chain, in order.
func TestAssembleFile(t *testing.T) {
	d, fd := buildTestDisk(t)
	data, err := AssembleFile(d, fd)
	if err != nil {
		t.Fatal(err)
	}
	want := append(bytes.Repeat([]byte{0xAA}, 256), bytes.Repeat([]byte{0xBB}, 256)...)
	if !bytes.Equal(data, want) {
		t.Errorf("AssembleFile returned %d bytes; want %d matching the two sectors written", len(data), len(want))
	}
}

// TestAssembleFileSparseBlock checks that a {0,0} track/sector
// placeholder within the chain contributes a zeroed sector rather
// than being skipped or erroring.
func TestAssembleFileSparseBlock(t *testing.T) {
	d := newFakeDisk()
	var fd FileDesc
	fd.TrackSectorListTrack = 20
	fd.TrackSectorListSector = 0

	tsl := TrackSectorList{}
	tsl.TrackSectors[0] = disk.TrackSector{Track: 0, Sector: 0}
	tsl.TrackSectors[1] = disk.TrackSector{Track: 21, Sector: 3}
	tslbuf, err := tsl.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(20, 0, tslbuf)
	d.put(21, 3, bytes.Repeat([]byte{0x11}, 256))

	data, err := AssembleFile(d, fd)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 512 {
		t.Fatalf("len(data) = %d; want 512", len(data))
	}
	if !bytes.Equal(data[:256], make([]byte, 256)) {
		t.Errorf("first sector should be zeroed for a sparse placeholder")
	}
	if !bytes.Equal(data[256:], bytes.Repeat([]byte{0x11}, 256)) {
		t.Errorf("second sector should match the written data")
	}
}

// TestExtractFileUnsupportedType checks that ExtractFile rejects
// non-Binary file types with the literal Invalid error message
// spec.md §4.3 specifies, rather than treating it as Unimplemented.
func TestExtractFileUnsupportedType(t *testing.T) {
	d, fd := buildTestDisk(t)
	fd.Filetype = FiletypeApplesoft
	_, err := ExtractFile(d, fd)
	if !errors.IsInvalid(err) {
		t.Fatalf("expected Invalid error for non-Binary extract, got %v", err)
	}
	if got, want := err.Error(), "unsupported file type for export"; got != want {
		t.Errorf("error = %q; want %q", got, want)
	}
}
