// Package nibble decodes Apple II GCR nibble-encoded sector streams:
// the address and data fields found in raw .nib dumps, 4-and-4 and
// 6-and-2 byte encoding, and the 342-byte-to-256-byte data field
// reconstruction used by DOS 3.3 and ProDOS alike.
package nibble

import (
	"bytes"

	"github.com/zellyn/diskii/lib/errors"
	"github.com/zellyn/diskii/lib/parse"
)

// nibbleRead6and2Table maps a 6-and-2 disk nibble (low 7 bits used)
// back to its original 6-bit value. Entries for nibbles that never
// appear on a valid disk are zero.
var nibbleRead6and2Table = [256]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x02, 0x03, 0x00, 0x04, 0x05, 0x06,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0x08, 0x00, 0x00, 0x00, 0x09, 0x0A, 0x0B, 0x0C, 0x0D,
	0x00, 0x00, 0x0E, 0x0F, 0x10, 0x11, 0x12, 0x13, 0x00, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1A,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1B, 0x00, 0x1C, 0x1D, 0x1E,
	0x00, 0x00, 0x00, 0x1F, 0x00, 0x00, 0x20, 0x21, 0x00, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x29, 0x2A, 0x2B, 0x00, 0x2C, 0x2D, 0x2E, 0x2F, 0x30, 0x31, 0x32,
	0x00, 0x00, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x00, 0x39, 0x3A, 0x3B, 0x3C, 0x3D, 0x3E, 0x3F,
}

// nibbleWrite6and2Table is the inverse of nibbleRead6and2Table: it
// maps a 6-bit value to the on-disk nibble the Apple II disk
// controller requires (high bit set, at least two adjacent set bits,
// at most one pair of consecutive zero bits).
var nibbleWrite6and2Table = [64]byte{
	0x96, 0x97, 0x9A, 0x9B, 0x9D, 0x9E, 0x9F, 0xA6,
	0xA7, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF, 0xB2, 0xB3,
	0xB4, 0xB5, 0xB6, 0xB7, 0xB9, 0xBA, 0xBB, 0xBC,
	0xBD, 0xBE, 0xBF, 0xCB, 0xCD, 0xCE, 0xCF, 0xD3,
	0xD6, 0xD7, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE,
	0xDF, 0xE5, 0xE6, 0xE7, 0xE9, 0xEA, 0xEB, 0xEC,
	0xED, 0xEE, 0xEF, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6,
	0xF7, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF,
}

var addressPrologue = []byte{0xD5, 0xAA, 0x96}
var dataPrologue = []byte{0xD5, 0xAA, 0xAD}
var fieldEpilogue = []byte{0xDE, 0xAA, 0xEB}

// Parse4and4 decodes a single byte stored in 4-and-4 odd-even
// encoding: two on-disk bytes where the second byte's low-order bits
// (ORed with 0x01 shifted into the first) reconstruct the original
// value. Used for the volume/track/sector/checksum fields of an
// address field.
func Parse4and4(c *parse.Cursor) (byte, error) {
	b, err := c.Take(2)
	if err != nil {
		return 0, err
	}
	return ((b[0] << 1) | 0x01) & b[1], nil
}

// Encode4and4 encodes a single byte into its two-disk-byte 4-and-4
// odd-even representation: both bytes carry the fixed 0xAA mask, the
// first ORed with the value shifted right one bit, the second ORed
// with the value itself. This is the inverse of Parse4and4.
func Encode4and4(b byte) (first, second byte) {
	return 0xAA | (b >> 1), 0xAA | b
}

// AddressField identifies the data field that follows it: the
// volume, track and sector the sector belongs to, and a checksum
// that should equal volume^track^sector.
type AddressField struct {
	Volume   byte
	Track    byte
	Sector   byte
	Checksum byte
}

// Encode serializes an AddressField into its 14-byte on-disk form:
// the D5 AA 96 prologue, the four 4-and-4-encoded fields in order, and
// the DE AA EB epilogue. It does not recompute Checksum; callers that
// want a self-consistent field should set Checksum to
// Volume^Track^Sector first.
func (af *AddressField) Encode() []byte {
	out := make([]byte, 0, 14)
	out = append(out, addressPrologue...)
	for _, b := range [4]byte{af.Volume, af.Track, af.Sector, af.Checksum} {
		first, second := Encode4and4(b)
		out = append(out, first, second)
	}
	out = append(out, fieldEpilogue...)
	return out
}

// FindAndParseAddressField scans forward for the next D5 AA 96
// prologue, decodes the four 4-and-4 fields that follow it, and
// consumes the DE AA EB epilogue. If the computed checksum disagrees
// with the stored one, it returns a Checksum error unless
// ignoreChecksums is set, in which case it returns the field anyway.
// A D5 byte not followed by AA 96 is skipped and the scan goes on; if
// no prologue is found, the cursor is left where it started.
func FindAndParseAddressField(c *parse.Cursor, ignoreChecksums bool) (*AddressField, error) {
	start := c.Pos()
	for {
		if _, err := c.TakeUntil(addressPrologue[0]); err != nil {
			_ = c.SeekTo(start)
			return nil, err
		}
		if p, err := c.Peek(len(addressPrologue)); err == nil && bytes.Equal(p, addressPrologue) {
			break
		}
		if err := c.Skip(1); err != nil {
			return nil, err
		}
	}
	if err := c.Skip(len(addressPrologue)); err != nil {
		return nil, err
	}

	volume, err := Parse4and4(c)
	if err != nil {
		return nil, err
	}
	track, err := Parse4and4(c)
	if err != nil {
		return nil, err
	}
	sector, err := Parse4and4(c)
	if err != nil {
		return nil, err
	}
	checksum, err := Parse4and4(c)
	if err != nil {
		return nil, err
	}
	if err := c.Skip(3); err != nil { // epilogue
		return nil, err
	}

	af := &AddressField{Volume: volume, Track: track, Sector: sector, Checksum: checksum}

	computed := volume ^ track ^ sector
	if computed != checksum && !ignoreChecksums {
		return af, errors.Checksumf("Address field computed checksum not equal to disk checksum: %d %d", computed, checksum)
	}
	return af, nil
}

// DataField holds the raw 342 bytes of 6-and-2 encoded sector data
// plus its on-disk checksum, before reconstruction into a 256-byte
// sector.
type DataField struct {
	Data     []byte // 342 bytes
	Checksum byte
}

// FindAndParseDataField scans forward for the next D5 AA AD prologue
// and reads the 342-byte data field, checksum byte, and epilogue that
// follow it.
func FindAndParseDataField(c *parse.Cursor) (*DataField, error) {
	if _, err := c.TakeUntil(dataPrologue[0]); err != nil {
		return nil, err
	}
	if err := c.Tag(dataPrologue); err != nil {
		return nil, err
	}
	data, err := c.Take(342)
	if err != nil {
		return nil, err
	}
	checksum, err := c.U8()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(3); err != nil { // epilogue
		return nil, err
	}
	buf := make([]byte, 342)
	copy(buf, data)
	return &DataField{Data: buf, Checksum: checksum}, nil
}

// Encode serializes a DataField into its 349-byte on-disk form: the
// D5 AA AD prologue, the 342 encoded data bytes, the raw checksum
// byte, and the DE AA EB epilogue.
func (df *DataField) Encode() []byte {
	out := make([]byte, 0, 3+342+1+3)
	out = append(out, dataPrologue...)
	out = append(out, df.Data...)
	out = append(out, df.Checksum)
	out = append(out, fieldEpilogue...)
	return out
}

// Sector is a reconstructed 256-byte 8-bit sector.
type Sector struct {
	Data [256]byte
}

// reverseValues un-does the final 2-bit shuffle applied when spreading
// the 2-bit low groups of the auxiliary buffer across the 256 data
// bytes.
var reverseValues = [4]byte{0x00, 0x02, 0x01, 0x03}

// TransformDataField reconstructs a 256-byte Sector from a 342-byte
// 6-and-2 encoded DataField. The first 0x56 bytes of the field are an
// auxiliary buffer holding the low two bits (in reverse order) of the
// following 256 six-bit bytes; TransformDataField recombines them
// byte by byte, verifying the running XOR checksum against the
// field's trailing checksum byte as it goes.
func TransformDataField(df *DataField, ignoreChecksums bool) (*Sector, error) {
	var computedChecksum byte
	n := len(df.Data)
	var buffer [342]byte

	for index, b := range df.Data {
		computedChecksum ^= nibbleRead6and2Table[b]
		if index < 0x56 {
			buffer[n-index-1] = computedChecksum
		} else {
			buffer[index-0x56] = computedChecksum
		}
	}

	if computedChecksum != df.Checksum && !ignoreChecksums {
		return nil, errors.Checksumf("Invalid checksum on data: calculated: %d, disk: %d", computedChecksum, df.Checksum)
	}

	var sector Sector
	for i := 0; i <= 255; i++ {
		byte1 := buffer[i]
		nibbleLow := len(buffer) - (i % 0x56) - 1
		byte2 := buffer[nibbleLow]
		shiftPairs := uint((i / 0x56) * 2)
		sector.Data[i] = (byte1 << 2) | reverseValues[(byte2>>shiftPairs)&0x03]
	}

	return &sector, nil
}

// EncodeSector is the inverse of TransformDataField: it 6-and-2
// encodes a 256-byte Sector into a 342-byte DataField. TransformDataField
// walks df.Data in on-disk order and, for each byte, XORs the running
// checksum with the byte's decoded 6-bit value; that running checksum
// is itself the target 6-bit value (auxiliary-buffer byte for the
// first 0x56 positions, direct sector byte thereafter). EncodeSector
// rebuilds that same target sequence and runs the XOR chain forward,
// so the nth on-disk nibble equals nibbleWrite6and2Table[target[n] ^
// target[n-1]].
func EncodeSector(sector *Sector) *DataField {
	var target [342]byte

	for k := 0; k < 0x56; k++ {
		var low2 byte
		if 2*0x56+k < 256 {
			low2 = sector.Data[2*0x56+k] & 0x03
		}
		low1 := sector.Data[0x56+k] & 0x03
		low0 := sector.Data[k] & 0x03
		target[k] = reverseValues[low0] | (reverseValues[low1] << 2) | (reverseValues[low2] << 4)
	}
	for i := 0; i < 256; i++ {
		target[0x56+i] = sector.Data[i] >> 2
	}

	data := make([]byte, 342)
	var prev byte
	for i, raw := range target {
		data[i] = nibbleWrite6and2Table[raw^prev]
		prev = raw
	}

	return &DataField{Data: data, Checksum: prev}
}
