package commodore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/zellyn/diskii/lib/errors"
)

// identityDecode treats each byte as its own rune, enough to exercise
// FilenameString without depending on a real PETSCII table.
func identityDecode(b []byte) string {
	return string(b)
}

// totalD64Bytes is the size of a standard 35-track, no-error-info D64
// image.
func totalD64Bytes() int {
	total := 0
	for t := 1; t <= 35; t++ {
		total += sectorsForTrack(t) * 256
	}
	return total
}

// buildTestImage writes a minimal valid BAM and a one-entry directory
// sector into an otherwise empty D64-sized buffer.
func buildTestImage(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, totalD64Bytes())

	bam := data[BAMOffset : BAMOffset+256]
	bam[0] = 0x12
	bam[1] = 0x01
	bam[2] = 0x41
	bam[3] = 0x00
	// 35 BAM entries, 4 bytes each, left zeroed (all sectors in use) is fine.
	copy(bam[4+35*4:4+35*4+16], bytes.Repeat([]byte{0xA0}, 16))
	copy(bam[4+35*4:], []byte("TEST DISK"))
	for i := 0; i < 16; i++ {
		if bam[4+35*4+i] == 0 {
			bam[4+35*4+i] = 0xA0
		}
	}
	binary.LittleEndian.PutUint16(bam[4+35*4+16+2:], 0x1234)
	copy(bam[4+35*4+16+2+2+1:], []byte("2A"))

	dirOff, err := offset(18, 1)
	if err != nil {
		t.Fatal(err)
	}
	dir := data[dirOff : dirOff+256]
	dir[0] = 0 // no next directory sector
	dir[1] = 0xFF
	dir[2] = byte(FileTypePRG) | closedBit
	dir[3] = 19
	dir[4] = 0
	name := []byte("HELLO")
	copy(dir[5:21], bytes.Repeat([]byte{0xA0}, 16))
	copy(dir[5:21], name)
	binary.LittleEndian.PutUint16(dir[30:32], 5)

	return data
}

func TestParseBlockAvailabilityMap(t *testing.T) {
	data := buildTestImage(t)
	bam, err := ParseBlockAvailabilityMap(data)
	if err != nil {
		t.Fatal(err)
	}
	if bam.FirstDirectoryTrack != 0x12 || bam.FirstDirectorySector != 0x01 {
		t.Errorf("got first dir track/sector 0x%02X/0x%02X", bam.FirstDirectoryTrack, bam.FirstDirectorySector)
	}
	if bam.DiskID != 0x1234 {
		t.Errorf("DiskID = 0x%04X; want 0x1234", bam.DiskID)
	}
	if string(bam.DOSType[:]) != "2A" {
		t.Errorf("DOSType = %q; want \"2A\"", bam.DOSType)
	}
}

func TestParseBlockAvailabilityMapRejectsBadVersion(t *testing.T) {
	data := buildTestImage(t)
	data[BAMOffset+2] = 0x00 // soft write-protect, unsupported
	_, err := ParseBlockAvailabilityMap(data)
	if !errors.IsInvalid(err) {
		t.Fatalf("want Invalid error, got %v", err)
	}
}

func TestParseDisk(t *testing.T) {
	data := buildTestImage(t)
	disk, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(disk.Directory) != 1 {
		t.Fatalf("want 1 directory entry, got %d", len(disk.Directory))
	}
	entry := disk.Directory[0]
	if got, want := entry.FilenameString(identityDecode), "HELLO"; got != want {
		t.Errorf("filename = %q; want %q", got, want)
	}
	if entry.Type != FileTypePRG {
		t.Errorf("Type = %v; want PRG", entry.Type)
	}
	if !entry.Closed {
		t.Errorf("want Closed true")
	}
	if entry.FirstTrack != 19 {
		t.Errorf("FirstTrack = %d; want 19", entry.FirstTrack)
	}
}

func TestSaveUnimplemented(t *testing.T) {
	data := buildTestImage(t)
	disk, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := disk.Save(); !errors.IsUnimplemented(err) {
		t.Errorf("want Unimplemented error, got %v", err)
	}
}
