// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/zellyn/diskii/disk"
	"github.com/zellyn/diskii/helpers"
	"github.com/zellyn/diskii/internal/config"
	"github.com/zellyn/diskii/lib/diskimage"
	"github.com/zellyn/diskii/lib/guess"
	"github.com/zellyn/diskii/types"
)

// sdCmd is the parent command for the guesser/façade surface: its
// struct-tagged subcommands (GuessCmd, CatalogCmd, ExtractCmd below)
// are also kong command definitions, should the CLI ever
// switch from cobra's imperative registration to kong's struct-driven
// one; for now cobra invokes them directly.
var sdCmd = &cobra.Command{
	Use:   "sd",
	Short: "guess, catalog and extract from any supported disk image",
	Long: `diskii sd identifies a disk image's kind, encoding and
format, then dispatches to the right decoder for cataloging and
extracting files, across Apple II, Atari ST and Commodore 1541
images alike.`,
}

var sdDebug bool
var sdIgnoreChecksums bool

func init() {
	RootCmd.AddCommand(sdCmd)

	guessCobra := &cobra.Command{
		Use:   "guess <disk-image>",
		Short: "identify a disk image's kind, encoding and format",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runOrDie((&GuessCmd{Debug: sdDebug, DiskImage: args[0]}).Run)
		},
	}
	guessCobra.Flags().BoolVar(&sdDebug, "debug", false, "print the full guess structure to stderr")
	sdCmd.AddCommand(guessCobra)

	catalogCobra := &cobra.Command{
		Use:   "catalog <disk-image>",
		Short: "print a directory listing for any supported disk image",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runOrDie((&CatalogCmd{Debug: sdDebug, IgnoreChecksums: sdIgnoreChecksums, DiskImage: args[0]}).Run)
		},
	}
	catalogCobra.Flags().BoolVar(&sdDebug, "debug", false, "print the guess structure to stderr first")
	catalogCobra.Flags().BoolVar(&sdIgnoreChecksums, "ignore-checksums", false, "tolerate checksum mismatches while decoding")
	sdCmd.AddCommand(catalogCobra)

	extractCobra := &cobra.Command{
		Use:   "extract <disk-image> <filename>",
		Short: "write a single file's decoded contents to stdout",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			runOrDie((&ExtractCmd{Debug: sdDebug, DiskImage: args[0], Filename: args[1]}).Run)
		},
	}
	extractCobra.Flags().BoolVar(&sdDebug, "debug", false, "print the guess structure to stderr first")
	sdCmd.AddCommand(extractCobra)
}

// runOrDie runs a kong-style command Run method with nil globals
// (none of the façade commands read globals) and exits non-zero on
// failure, matching catalogCmd's error-handling style.
func runOrDie(run func(*types.Globals) error) {
	if err := run(nil); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
}

// SDCmd is the kong `mksd` command.
type SDCmd struct {
	Order types.DiskOrder `kong:"default='auto',enum='auto,do,po',help='Logical-to-physical sector order.'"`

	DiskImage string   `kong:"arg,required,type='path',help='Disk image to write.'"`
	Binary    *os.File `kong:"arg,required,help='Binary file to write to the disk.'"`

	Address uint16 `kong:"type='anybaseuint16',default='0x6000',help='Address to load the code at.'"`
	Start   uint16 `kong:"type='anybaseuint16',default='0xFFFF',help='Address to jump to. Defaults to 0xFFFF, which means “same as address flag”'"`
}

// Help displays extended help and examples.
func (s SDCmd) Help() string {
	return `
See https://github.com/peterferrie/standard-delivery for details.

Examples:
	# Load and run foo.o at the default address, then jump to the start of the loaded code.
	diskii mksd test.dsk foo.o

	# Load foo.o at address 0x2000, then jump to 0x2100.
	diskii mksd test.dsk foo.o --address 0x2000 --start 0x2100`
}

// Run the `mksd` command.
func (s *SDCmd) Run(globals *types.Globals) error {
	if s.Start == 0xFFFF {
		s.Start = s.Address
	}

	contents, err := io.ReadAll(s.Binary)
	if err != nil {
		return err
	}
	if s.Address%256 != 0 {
		return fmt.Errorf("address %d (%04X) not on a page boundary", s.Address, s.Address)
	}
	if s.Start < s.Address {
		return fmt.Errorf("start address %d (%04X) < load address %d (%04X)", s.Start, s.Start, s.Address, s.Address)
	}

	if int(s.Start) >= int(s.Address)+len(contents) {
		end := int(s.Address) + len(contents)
		return fmt.Errorf("start address %d (%04X) is beyond load address %d (%04X) + file length = %d (%04X)",
			s.Start, s.Start, s.Address, s.Address, end, end)
	}

	if int(s.Start)+len(contents) > 0xC000 {
		end := int(s.Start) + len(contents)
		return fmt.Errorf("start address %d (%04X) + file length %d (%04X) = %d (%04X), but we can't load past page 0xBF00",
			s.Start, s.Start, len(contents), len(contents), end, end)
	}

	sectors := (len(contents) + 255) / 256

	loader := []byte{
		0x01, 0xa8, 0xee, 0x06, 0x08, 0xad, 0x4e, 0x08, 0xc9, 0xc0, 0xf0, 0x40, 0x85, 0x27, 0xc8,
		0xc0, 0x10, 0x90, 0x09, 0xf0, 0x05, 0x20, 0x2f, 0x08, 0xa8, 0x2c, 0xa0, 0x01, 0x84, 0x3d,
		0xc8, 0xa5, 0x27, 0xf0, 0xdf, 0x8a, 0x4a, 0x4a, 0x4a, 0x4a, 0x09, 0xc0, 0x48, 0xa9, 0x5b,
		0x48, 0x60, 0xe6, 0x41, 0x06, 0x40, 0x20, 0x37, 0x08, 0x18, 0x20, 0x3c, 0x08, 0xe6, 0x40,
		0xa5, 0x40, 0x29, 0x03, 0x2a, 0x05, 0x2b, 0xa8, 0xb9, 0x80, 0xc0, 0xa9, 0x30, 0x4c, 0xa8,
		0xfc, 0x4c, byte(s.Start), byte(s.Start >> 8),
	}

	if len(loader)+sectors+1 > 256 {
		return fmt.Errorf("file %q is %d bytes long, max is %d", s.Binary.Name(), len(contents), (255-len(loader))*256)
	}

	for len(contents)%256 != 0 {
		contents = append(contents, 0)
	}

	diskbytes := make([]byte, disk.FloppyDiskBytes)

	var track, sector byte
	for i := 0; i < len(contents); i += 256 {
		sector += 2
		if sector >= disk.FloppySectors {
			sector = (disk.FloppySectors + 1) - sector
			if sector == 0 {
				track++
				if track >= disk.FloppyTracks {
					return fmt.Errorf("ran out of tracks")
				}
			}
		}

		address := int(s.Address) + i
		loader = append(loader, byte(address>>8))
		if err := disk.WriteSector(diskbytes, track, sector, contents[i:i+256]); err != nil {
			return err
		}
	}

	loader = append(loader, 0xC0)
	for len(loader) < 256 {
		loader = append(loader, 0)
	}

	if err := disk.WriteSector(diskbytes, 0, 0, loader); err != nil {
		return err
	}

	order := s.Order
	if order == types.DiskOrderAuto {
		order = disk.OrderFromFilename(s.DiskImage, types.DiskOrderDO)
	}
	rawBytes, err := disk.Swizzle(diskbytes, disk.PhysicalToLogicalByName[order])
	if err != nil {
		return err
	}
	return helpers.WriteOutput(s.DiskImage, rawBytes, true)
}

// loadAndParse reads a disk image off disk, identifies it, and
// decodes it, the three steps every guesser/façade subcommand below
// needs before it can do anything format-specific.
func loadAndParse(filename string, debug bool) (*diskimage.DiskImage, *guess.DiskImageGuess, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	g, err := guess.Identify(filename, data)
	if err != nil {
		return nil, nil, err
	}
	if debug || settings.Debug {
		fmt.Fprintf(os.Stderr, "guessed: %# v\n", pretty.Formatter(g))
	}
	di, err := diskimage.Parse(g, data, settings.Options())
	if err != nil {
		return nil, nil, err
	}
	return di, g, nil
}

// GuessCmd is the kong `guess` command: it identifies a disk image's
// kind, encoding and format without decoding its contents.
type GuessCmd struct {
	Debug     bool   `kong:"help='Print the full guess structure to stderr.'"`
	DiskImage string `kong:"arg,required,type='existingfile',help='Disk image to identify.'"`
}

// Run the `guess` command.
func (g *GuessCmd) Run(globals *types.Globals) error {
	data, err := ioutil.ReadFile(g.DiskImage)
	if err != nil {
		return err
	}
	guessed, err := guess.Identify(g.DiskImage, data)
	if err != nil {
		return err
	}
	if g.Debug {
		fmt.Fprintf(os.Stderr, "%# v\n", pretty.Formatter(guessed))
	}
	fmt.Printf("kind=%s encoding=%s format=%s size=%d\n", guessed.Kind, guessed.Encoding, guessed.Format, guessed.Size)
	return nil
}

// CatalogCmd is the kong `catalog` command: it prints the directory
// listing of a guessed-and-decoded disk image, for whichever formats
// support one.
type CatalogCmd struct {
	Debug           bool   `kong:"help='Print the guess structure to stderr before cataloging.'"`
	IgnoreChecksums bool   `kong:"help='Tolerate checksum mismatches while decoding.'"`
	DiskImage       string `kong:"arg,required,type='existingfile',help='Disk image to catalog.'"`
}

// Run the `catalog` command.
func (c *CatalogCmd) Run(globals *types.Globals) error {
	di, _, err := loadAndParse(c.DiskImage, c.Debug)
	if err != nil {
		return err
	}
	listing, err := di.Catalog()
	if err != nil {
		return err
	}
	fmt.Print(listing)
	return nil
}

// ExtractCmd is the kong `extract` command: it writes a single named
// file's decoded payload to stdout.
type ExtractCmd struct {
	Debug     bool   `kong:"help='Print the guess structure to stderr before extracting.'"`
	DiskImage string `kong:"arg,required,type='existingfile',help='Disk image to read from.'"`
	Filename  string `kong:"arg,required,help='Name of the file to extract.'"`
}

// Run the `extract` command.
func (e *ExtractCmd) Run(globals *types.Globals) error {
	di, _, err := loadAndParse(e.DiskImage, e.Debug)
	if err != nil {
		return err
	}
	data, err := di.ExtractFile(e.Filename)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
