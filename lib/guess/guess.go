// Package guess turns a filename and a disk image's raw bytes into a
// hypothesis about which decoder should parse it: by extension first,
// falling back to a magic-byte match for Apple DOS 3.3 images that
// arrive under an unexpected name.
package guess

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/zellyn/diskii/lib/errors"
)

// Encoding distinguishes an Apple image's byte-level representation:
// a plain 256-byte-sector dump, or a GCR nibble stream.
type Encoding int

const (
	EncodingPlain Encoding = iota
	EncodingNibble
)

func (e Encoding) String() string {
	switch e {
	case EncodingPlain:
		return "plain"
	case EncodingNibble:
		return "nibble"
	default:
		return "unknown"
	}
}

// Format names an Apple disk's filesystem sub-variant. It is only
// meaningful when Kind is KindApple.
type Format int

const (
	FormatUnknown Format = iota
	FormatDOS32
	FormatDOS33
)

func (f Format) String() string {
	switch f {
	case FormatDOS32:
		return "DOS 3.2"
	case FormatDOS33:
		return "DOS 3.3"
	default:
		return "unknown"
	}
}

// Kind names the top-level disk image family a DiskImageGuess
// resolves to.
type Kind int

const (
	KindApple Kind = iota
	KindSTX
	KindD64
)

func (k Kind) String() string {
	switch k {
	case KindApple:
		return "Apple"
	case KindSTX:
		return "Atari STX"
	case KindD64:
		return "Commodore D64"
	default:
		return "unknown"
	}
}

// DiskImageGuess is a pre-parse hypothesis about a disk image,
// carrying just enough to pick and configure a decoder: it does not
// itself validate the bytes it was built from.
type DiskImageGuess struct {
	Kind     Kind
	Encoding Encoding // meaningful only when Kind == KindApple
	Format   Format   // meaningful only when Kind == KindApple
	Size     int
}

// appleMagicPrefix and appleMagicSuffix are the byte sequences a
// plain Apple DOS 3.3 image carries at offset 0 and at
// appleMagicSuffixOffset respectively, regardless of the file's
// extension: the DOS boot loader's opening instructions, and three
// bytes from the relocated RWTS code it jumps into.
var appleMagicPrefix = []byte{0x01, 0xA5, 0x27, 0xC9, 0x09, 0xD0, 0x18, 0xA5, 0x2B}
var appleMagicSuffix = []byte{0x11, 0x0F, 0x03}

const appleMagicSuffixOffset = 0x11001

// firstNibblePrologueByte scans data for the first {0xD5, 0xAA, X}
// address-field prologue and reports X, which distinguishes DOS 3.3
// nibble images (0x96) from DOS 3.2 ones (0xB5).
func firstNibblePrologueByte(data []byte) (byte, bool) {
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0xD5 && data[i+1] == 0xAA {
			switch data[i+2] {
			case 0x96, 0xB5:
				return data[i+2], true
			}
		}
	}
	return 0, false
}

// fromExtension guesses purely from the filename's extension,
// inspecting the bytes only to disambiguate a .nib file's DOS
// sub-variant.
func fromExtension(filename string, data []byte) (*DiskImageGuess, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "dsk", "do":
		return &DiskImageGuess{Kind: KindApple, Encoding: EncodingPlain, Format: FormatDOS33, Size: len(data)}, true
	case "nib":
		format := FormatUnknown
		if b, ok := firstNibblePrologueByte(data); ok {
			switch b {
			case 0x96:
				format = FormatDOS33
			case 0xB5:
				format = FormatDOS32
			}
		}
		return &DiskImageGuess{Kind: KindApple, Encoding: EncodingNibble, Format: format, Size: len(data)}, true
	case "d64":
		return &DiskImageGuess{Kind: KindD64, Size: len(data)}, true
	case "stx", "st":
		return &DiskImageGuess{Kind: KindSTX, Size: len(data)}, true
	}
	return nil, false
}

// matchesAppleMagic reports whether data opens with the Apple DOS 3.3
// boot-loader prefix and carries the corroborating RWTS bytes at
// appleMagicSuffixOffset.
func matchesAppleMagic(data []byte) bool {
	if len(data) < len(appleMagicPrefix) || !bytes.Equal(data[:len(appleMagicPrefix)], appleMagicPrefix) {
		return false
	}
	end := appleMagicSuffixOffset + len(appleMagicSuffix)
	if len(data) < end {
		return false
	}
	return bytes.Equal(data[appleMagicSuffixOffset:end], appleMagicSuffix)
}

// Identify guesses a disk image's format from its filename and
// contents: by extension first, then by magic-byte match. It returns
// a NotFound error if neither approach recognizes the image.
func Identify(filename string, data []byte) (*DiskImageGuess, error) {
	if g, ok := fromExtension(filename, data); ok {
		return g, nil
	}
	if matchesAppleMagic(data) {
		return &DiskImageGuess{Kind: KindApple, Encoding: EncodingPlain, Format: FormatDOS33, Size: len(data)}, nil
	}
	return nil, errors.NotFoundf("guess: could not identify disk image format for %q", filename)
}
