// Package diskimage is the unified entry point external callers use:
// given a guessed disk image, it dispatches to the right decoder and
// exposes the three operations every disk image format understands in
// common, however differently (or not at all) each implements them:
// listing a catalog, extracting a named file, and saving the image
// back out.
package diskimage

import (
	"fmt"
	"io"
	"strings"

	"github.com/zellyn/diskii/lib/commodore"
	"github.com/zellyn/diskii/lib/disk"
	"github.com/zellyn/diskii/lib/dos33"
	"github.com/zellyn/diskii/lib/errors"
	"github.com/zellyn/diskii/lib/guess"
	"github.com/zellyn/diskii/lib/nibble"
	"github.com/zellyn/diskii/lib/stx"
)

// DiskImage is a fully decoded disk image: exactly one of Apple, STX
// or D64 is populated, matching the Kind the image was guessed and
// parsed as.
type DiskImage struct {
	Kind guess.Kind

	Apple *AppleImage
	STX   *stx.Disk
	D64   *commodore.Disk
}

// AppleImage wraps an Apple DOS 3.3 disk, decoded either from a plain
// sector dump or a GCR nibble stream, as a single logical-sector disk
// the dos33 catalog/file routines can operate on regardless of which
// encoding it came from.
type AppleImage struct {
	Encoding guess.Encoding
	Logical  disk.LogicalSectorDisk
}

// Options carries the only runtime-configurable behavior the core
// exposes: whether checksum mismatches abort a decode or are
// tolerated.
type Options struct {
	IgnoreChecksums bool
}

// nibbleLogicalDisk adapts a decoded nibble.Disk's single volume into
// a disk.LogicalSectorDisk, so dos33's catalog and file-assembly code
// can run over a nibble image exactly as it does over a plain one.
type nibbleLogicalDisk struct {
	disk   *nibble.Disk
	volume byte
}

var _ disk.LogicalSectorDisk = nibbleLogicalDisk{}

func (n nibbleLogicalDisk) ReadLogicalSector(track, sector byte) ([]byte, error) {
	v := n.disk.Get(n.volume)
	if v == nil {
		return nil, errors.NotFoundf("nibble: volume %d not found", n.volume)
	}
	t := v.Get(track)
	if t == nil {
		return nil, errors.NotFoundf("nibble: track %d not found on volume %d", track, n.volume)
	}
	if int(sector) >= len(disk.Dos33LogicalToPhysicalSectorMap) {
		return nil, errors.Invalidf("nibble: logical sector %d out of range", sector)
	}
	physical := disk.Dos33LogicalToPhysicalSectorMap[sector]
	s := t.Get(physical)
	if s == nil {
		return nil, errors.NotFoundf("nibble: sector %d (physical %d) not found on track %d", sector, physical, track)
	}
	return s.Data[:], nil
}

func (n nibbleLogicalDisk) WriteLogicalSector(track, sector byte, data []byte) error {
	return errors.Unimplementedf("nibble: writing sectors back to a GCR-encoded disk is not supported")
}

func (n nibbleLogicalDisk) Sectors() byte { return disk.DOS33Sectors }
func (n nibbleLogicalDisk) Tracks() byte  { return disk.DOS33Tracks }

func (n nibbleLogicalDisk) Write(w io.Writer) (int, error) {
	return w.Write(n.disk.Encode())
}

func (n nibbleLogicalDisk) Order() string { return "nibble (DOS 3.3 logical order)" }

// Parse dispatches on a guess and decodes the corresponding disk
// image.
func Parse(g *guess.DiskImageGuess, data []byte, opts Options) (*DiskImage, error) {
	switch g.Kind {
	case guess.KindApple:
		return parseApple(g, data, opts)
	case guess.KindSTX:
		d, err := stx.ParseDisk(data, opts.IgnoreChecksums)
		if err != nil {
			return nil, err
		}
		return &DiskImage{Kind: guess.KindSTX, STX: d}, nil
	case guess.KindD64:
		d, err := commodore.Parse(data)
		if err != nil {
			return nil, err
		}
		return &DiskImage{Kind: guess.KindD64, D64: d}, nil
	default:
		return nil, errors.Invalidf("diskimage: unknown guess kind %v", g.Kind)
	}
}

func parseApple(g *guess.DiskImageGuess, data []byte, opts Options) (*DiskImage, error) {
	switch g.Encoding {
	case guess.EncodingPlain:
		d, err := disk.LoadDSKBytes(data)
		if err != nil {
			return nil, errors.Invalidf("diskimage: %v", err)
		}
		md, err := disk.NewMappedDisk(d, disk.Dos33LogicalToPhysicalSectorMap)
		if err != nil {
			return nil, errors.Invalidf("diskimage: %v", err)
		}
		return &DiskImage{Kind: guess.KindApple, Apple: &AppleImage{Encoding: guess.EncodingPlain, Logical: md}}, nil
	case guess.EncodingNibble:
		nd, err := nibble.ParseDisk(data, opts.IgnoreChecksums)
		if err != nil {
			return nil, err
		}
		volumes := nd.SortedVolumes()
		if len(volumes) == 0 {
			return nil, errors.Invalidf("diskimage: no sectors decoded from nibble image")
		}
		ld := nibbleLogicalDisk{disk: nd, volume: volumes[0]}
		return &DiskImage{Kind: guess.KindApple, Apple: &AppleImage{Encoding: guess.EncodingNibble, Logical: ld}}, nil
	default:
		return nil, errors.Invalidf("diskimage: unknown Apple encoding %v", g.Encoding)
	}
}

// Catalog returns a human-readable directory listing.
func (di *DiskImage) Catalog() (string, error) {
	switch di.Kind {
	case guess.KindApple:
		return catalogApple(di.Apple)
	case guess.KindD64:
		return catalogD64(di.D64)
	case guess.KindSTX:
		return "", errors.Unimplementedf("diskimage: STX images have no catalog; they hold a raw sector stream")
	default:
		return "", errors.Invalidf("diskimage: unknown kind %v", di.Kind)
	}
}

func catalogApple(a *AppleImage) (string, error) {
	files, deleted, err := dos33.ReadCatalog(a.Logical)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, fd := range files {
		lock := " "
		if fd.Filetype.Locked() {
			lock = "*"
		}
		fmt.Fprintf(&sb, "%s%c %s\n", lock, fd.Filetype.DisplayChar(), fd.FilenameString())
	}
	for _, fd := range deleted {
		fmt.Fprintf(&sb, "(deleted) %s\n", fd.FilenameString())
	}
	return sb.String(), nil
}

func catalogD64(d *commodore.Disk) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%q\n", string(d.BAM.DiskName[:]))
	for _, entry := range d.Directory {
		fmt.Fprintf(&sb, "%-16s %s\n", string(entry.Filename[:]), entry.ExtendedFileType())
	}
	return sb.String(), nil
}

// ExtractFile returns the decoded payload of a named file. Apple
// images support only Binary-type files, matching dos33.ExtractFile;
// D64 and STX images have no extract path yet.
func (di *DiskImage) ExtractFile(name string) ([]byte, error) {
	switch di.Kind {
	case guess.KindApple:
		files, _, err := dos33.ReadCatalog(di.Apple.Logical)
		if err != nil {
			return nil, err
		}
		for _, fd := range files {
			if fd.FilenameString() == name {
				return dos33.ExtractFile(di.Apple.Logical, fd)
			}
		}
		return nil, errors.NotFoundf("diskimage: no file named %q", name)
	default:
		return nil, errors.Unimplementedf("diskimage: extracting a single file is only supported for Apple DOS 3.3 images")
	}
}

// Save writes the whole disk image back out as a flat byte stream.
func (di *DiskImage) Save() ([]byte, error) {
	switch di.Kind {
	case guess.KindSTX:
		return di.STX.Save(), nil
	case guess.KindD64:
		return di.D64.Save()
	case guess.KindApple:
		return nil, errors.Unimplementedf("diskimage: saving Apple DOS 3.3 images is not supported")
	default:
		return nil, errors.Invalidf("diskimage: unknown kind %v", di.Kind)
	}
}
