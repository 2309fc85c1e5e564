package diskimage

import (
	"bytes"
	"io"
	"testing"

	"github.com/zellyn/diskii/lib/commodore"
	"github.com/zellyn/diskii/lib/disk"
	"github.com/zellyn/diskii/lib/dos33"
	"github.com/zellyn/diskii/lib/errors"
	"github.com/zellyn/diskii/lib/guess"
	"github.com/zellyn/diskii/lib/stx"
)

// fakeDisk is a minimal in-memory disk.LogicalSectorDisk, the same
// shape dos33's own tests use to exercise catalog/file-assembly logic
// without a real .dsk fixture.
type fakeDisk struct {
	sectors map[[2]byte][]byte
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{sectors: make(map[[2]byte][]byte)}
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
func (f *fakeDisk) Sectors() byte               { return dos33.DOS33Sectors }
func (f *fakeDisk) Tracks() byte                { return dos33.DOS33Tracks }
func (f *fakeDisk) Write(w io.Writer) (int, error) { return 0, nil }
func (f *fakeDisk) Order() string               { return "dos33" }

var _ disk.LogicalSectorDisk = (*fakeDisk)(nil)

// buildAppleFixture writes a VTOC, one catalog sector with a single
// binary file, and that file's track/sector list plus a payload
// carrying an address/length header, so ExtractFile has something to
// strip.
func buildAppleFixture(t *testing.T) *fakeDisk {
	t.Helper()
	d := newFakeDisk()

	vtoc := dos33.DefaultVTOC()
	vtoc.CatalogTrack = 17
	vtoc.CatalogSector = 15
	vbuf, err := vtoc.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(dos33.VTOCTrack, dos33.VTOCSector, vbuf)

	var fd dos33.FileDesc
	fd.TrackSectorListTrack = 18
	fd.TrackSectorListSector = 0
	fd.Filetype = dos33.FiletypeBinary
	copy(fd.Filename[:], bytes.Repeat([]byte{' '}, 30))
	copy(fd.Filename[:], []byte("HELLO"))
	for i := range fd.Filename {
		fd.Filename[i] += 0x80
	}
	fd.SectorCount = 1

	cs := dos33.CatalogSector{}
	cs.FileDescs[0] = fd
	csbuf, err := cs.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(17, 15, csbuf)

	tsl := dos33.TrackSectorList{}
	tsl.TrackSectors[0] = disk.TrackSector{Track: 19, Sector: 0}
	tslbuf, err := tsl.ToSector()
	if err != nil {
		t.Fatal(err)
	}
	d.put(18, 0, tslbuf)

	payload := make([]byte, 256)
	payload[0], payload[1] = 0x00, 0x10 // address, unchecked by ExtractFile
	payload[2], payload[3] = 5, 0       // length = 5
	copy(payload[4:], []byte("HELLO"))
	d.put(19, 0, payload)

	return d
}

func TestAppleCatalogAndExtract(t *testing.T) {
	d := buildAppleFixture(t)
	di := &DiskImage{Kind: guess.KindApple, Apple: &AppleImage{Encoding: guess.EncodingPlain, Logical: d}}

	catalog, err := di.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(catalog), []byte("HELLO")) {
		t.Errorf("catalog = %q; want it to mention HELLO", catalog)
	}

	data, err := di.ExtractFile("HELLO")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "HELLO" {
		t.Errorf("ExtractFile = %q; want %q", data, "HELLO")
	}

	if _, err := di.ExtractFile("NOPE"); !errors.IsNotFound(err) {
		t.Errorf("want NotFound for missing file, got %v", err)
	}
}

func TestD64Catalog(t *testing.T) {
	bam := &commodore.BlockAvailabilityMap{}
	copy(bam.DiskName[:], []byte("MY DISK"))
	entry := commodore.FileEntry{Type: commodore.FileTypePRG, Status: commodore.StatusNormal}
	copy(entry.Filename[:], []byte("PROGRAM"))
	di := &DiskImage{Kind: guess.KindD64, D64: &commodore.Disk{BAM: bam, Directory: []commodore.FileEntry{entry}}}

	catalog, err := di.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(catalog), []byte("PROGRAM")) || !bytes.Contains([]byte(catalog), []byte("PRG")) {
		t.Errorf("catalog = %q; want it to mention PROGRAM and PRG", catalog)
	}

	if _, err := di.ExtractFile("PROGRAM"); !errors.IsUnimplemented(err) {
		t.Errorf("want Unimplemented for D64 extract, got %v", err)
	}
}

func TestSTXSave(t *testing.T) {
	sectorData := bytes.Repeat([]byte{0x42}, 512)
	di := &DiskImage{Kind: guess.KindSTX, STX: &stx.Disk{
		Tracks: []stx.Track{{SectorData: [][]byte{sectorData}}},
	}}

	out, err := di.Save()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, sectorData) {
		t.Errorf("Save() did not reproduce the track's sector data")
	}

	if _, err := di.Catalog(); !errors.IsUnimplemented(err) {
		t.Errorf("want Unimplemented for STX catalog, got %v", err)
	}
}
