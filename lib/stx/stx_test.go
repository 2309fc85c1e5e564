package stx

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/zellyn/diskii/lib/crc"
	"github.com/zellyn/diskii/lib/errors"
	"github.com/zellyn/diskii/lib/parse"
)

// TestParseFileHeader checks the worked example from the STX
// container's own tests: version 3, tool 1, 82 tracks, new format 2.
func TestParseFileHeader(t *testing.T) {
	raw := []byte{
		0x52, 0x53, 0x59, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00,
		0x52, 0x02, 0x00, 0x00, 0x00, 0x00,
	}
	h, err := parseFileHeader(parse.NewCursor(raw))
	if err != nil {
		t.Fatal(err)
	}
	if string(h.Magic[:]) != "RSY\x00" {
		t.Errorf("Magic = %q; want RSY\\0", h.Magic)
	}
	if h.Version != 3 || h.Tool != 1 || h.TrackCount != 0x52 || h.NewFormat != 2 {
		t.Errorf("header = %+v; want version=3 tool=1 track_count=0x52 new_format=2", h)
	}
}

func TestParseFileHeaderRejectsBadMagic(t *testing.T) {
	raw := []byte{
		0x52, 0x53, 0x60, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00,
		0x52, 0x02, 0x00, 0x00, 0x00, 0x00,
	}
	if _, err := parseFileHeader(parse.NewCursor(raw)); !errors.IsInvalid(err) {
		t.Fatalf("want Invalid error for bad magic, got %v", err)
	}
}

// TestParseTrackHeader checks the worked example: block_size 0x2B43,
// sectors_count 9, flags 0x61, mfm_size 0x1874, passing validation.
func TestParseTrackHeader(t *testing.T) {
	raw := []byte{
		0x43, 0x2b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x09, 0x00,
		0x61, 0x00, 0x74, 0x18, 0x00, 0x00,
	}
	h, err := parseTrackHeader(parse.NewCursor(raw))
	if err != nil {
		t.Fatal(err)
	}
	if h.BlockSize != 0x2B43 || h.FuzzySize != 0 || h.SectorsCount != 9 ||
		h.Flags != 0x61 || h.MFMSize != 0x1874 || h.TrackNumber != 0 || h.RecordType != 0 {
		t.Errorf("track header = %+v; want block_size=0x2B43 sectors=9 flags=0x61 mfm_size=0x1874", h)
	}
	if err := h.Validate(); err != nil {
		t.Errorf("Validate() = %v; want nil", err)
	}
}

// TestParseTrackHeaderRejectsBadFlags checks that flags 0x62 (not one
// of the three recognized values) fails Validate.
func TestParseTrackHeaderRejectsBadFlags(t *testing.T) {
	raw := []byte{
		0x43, 0x2b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x09, 0x00,
		0x62, 0x00, 0x74, 0x18, 0x00, 0x00,
	}
	h, err := parseTrackHeader(parse.NewCursor(raw))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Validate(); err == nil {
		t.Errorf("Validate() = nil for flags 0x62; want an error")
	}
}

// TestSectorHeaderCRC checks the CRC invariant: a sector header's
// stored CRC must equal CRC16_CCITT over the synthesized preamble.
func TestSectorHeaderCRC(t *testing.T) {
	sh := SectorHeader{IDTrack: 1, IDHead: 0, IDSector: 3, IDSize: 2}
	sh.IDCRC = crc.Sum16(sh.crcPreamble())
	if err := sh.ValidateCRC(); err != nil {
		t.Errorf("ValidateCRC() = %v; want nil", err)
	}
	sh.IDCRC++
	if err := sh.ValidateCRC(); !errors.IsChecksum(err) {
		t.Errorf("ValidateCRC() with corrupted CRC = %v; want Checksum error", err)
	}
}

// TestPlainTrackCapturesSectorData exercises the plain-dump branch
// (flag bit 0 unset) and checks that its sector bytes land in
// SectorData, per the plain-track data-capture fix this port makes
// relative to the format decoder it's grounded on.
func TestPlainTrackCapturesSectorData(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(fileMagic)
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	buf.Write([]byte{0, 0})
	buf.WriteByte(1) // track count
	buf.WriteByte(2)
	buf.Write([]byte{0, 0, 0, 0})

	trackHeader := make([]byte, 16)
	sectorData := bytes.Repeat([]byte{0xAB}, 512)
	binary.LittleEndian.PutUint32(trackHeader[0:4], uint32(16+len(sectorData)))
	binary.LittleEndian.PutUint16(trackHeader[8:10], 1)  // sectors_count
	binary.LittleEndian.PutUint16(trackHeader[10:12], 0x21) // flags: plain
	buf.Write(trackHeader)
	buf.Write(sectorData)

	disk, err := ParseDisk(buf.Bytes(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(disk.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d; want 1", len(disk.Tracks))
	}
	tr := disk.Tracks[0]
	if len(tr.SectorData) != 1 || !bytes.Equal(tr.SectorData[0], sectorData) {
		t.Errorf("plain track SectorData not captured")
	}
	flat := disk.Save()
	if !bytes.Equal(flat, sectorData) {
		t.Errorf("Save() = %d bytes; want the plain track's 512 bytes reproduced", len(flat))
	}
}

// TestTrackBoundaryRecovery checks that the second track is located
// purely via the first track's BlockSize field rather than by
// continuing wherever track-body parsing stopped.
func TestTrackBoundaryRecovery(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(fileMagic)
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	buf.Write([]byte{0, 0})
	buf.WriteByte(2) // track count
	buf.WriteByte(2)
	buf.Write([]byte{0, 0, 0, 0})

	track0 := make([]byte, 16+512)
	binary.LittleEndian.PutUint32(track0[0:4], uint32(len(track0)))
	binary.LittleEndian.PutUint16(track0[8:10], 1)
	binary.LittleEndian.PutUint16(track0[10:12], 0x21)
	copy(track0[16:], bytes.Repeat([]byte{0x11}, 512))
	buf.Write(track0)

	track1 := make([]byte, 16+512)
	binary.LittleEndian.PutUint32(track1[0:4], uint32(len(track1)))
	binary.LittleEndian.PutUint16(track1[8:10], 1)
	binary.LittleEndian.PutUint16(track1[10:12], 0x21)
	copy(track1[16:], bytes.Repeat([]byte{0x22}, 512))
	buf.Write(track1)

	disk, err := ParseDisk(buf.Bytes(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(disk.Tracks) != 2 {
		t.Fatalf("len(Tracks) = %d; want 2", len(disk.Tracks))
	}
	if !bytes.Equal(disk.Tracks[1].SectorData[0], bytes.Repeat([]byte{0x22}, 512)) {
		t.Errorf("second track not parsed at trackStart+BlockSize boundary")
	}
}
