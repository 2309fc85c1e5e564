package nibble

import (
	"sort"

	"github.com/zellyn/diskii/lib/parse"
)

// Track holds the decoded sectors of a single track, keyed by sector
// number. Iteration order (Sectors/SortedKeys) is always ascending,
// matching the BTreeMap a track was modeled on.
type Track struct {
	sectors map[byte]*Sector
}

func newTrack() *Track {
	return &Track{sectors: make(map[byte]*Sector)}
}

// Get returns the sector at the given number, or nil if absent.
func (t *Track) Get(sector byte) *Sector {
	return t.sectors[sector]
}

// SortedSectors returns sector numbers present on this track in
// ascending order.
func (t *Track) SortedSectors() []byte {
	keys := make([]byte, 0, len(t.sectors))
	for k := range t.sectors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Volume holds the decoded tracks of a single volume, keyed by track
// number.
type Volume struct {
	tracks map[byte]*Track
}

func newVolume() *Volume {
	return &Volume{tracks: make(map[byte]*Track)}
}

// Get returns the track at the given number, or nil if absent.
func (v *Volume) Get(track byte) *Track {
	return v.tracks[track]
}

// SortedTracks returns track numbers present on this volume in
// ascending order.
func (v *Volume) SortedTracks() []byte {
	keys := make([]byte, 0, len(v.tracks))
	for k := range v.tracks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Disk is a fully decoded nibble-encoded Apple II disk image: an
// ordered map of volume number to Volume, each an ordered map of
// track number to Track, each an ordered map of sector number to
// Sector.
type Disk struct {
	volumes map[byte]*Volume
}

// NewDisk returns an empty nibble Disk.
func NewDisk() *Disk {
	return &Disk{volumes: make(map[byte]*Volume)}
}

// Get returns the volume with the given number, or nil if absent.
func (d *Disk) Get(volume byte) *Volume {
	return d.volumes[volume]
}

// SortedVolumes returns volume numbers present on this disk in
// ascending order.
func (d *Disk) SortedVolumes() []byte {
	keys := make([]byte, 0, len(d.volumes))
	for k := range d.volumes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (d *Disk) getOrCreateVolume(volume byte) *Volume {
	v, ok := d.volumes[volume]
	if !ok {
		v = newVolume()
		d.volumes[volume] = v
	}
	return v
}

func (v *Volume) getOrCreateTrack(track byte) *Track {
	t, ok := v.tracks[track]
	if !ok {
		t = newTrack()
		v.tracks[track] = t
	}
	return t
}

// field pairs an address field with the data field that followed it.
type field struct {
	address AddressField
	data    DataField
}

// parseOneSector scans forward from the cursor's current position for
// the next address field and its following data field.
func parseOneSector(c *parse.Cursor, ignoreChecksums bool) (*field, error) {
	af, err := FindAndParseAddressField(c, ignoreChecksums)
	if err != nil {
		return nil, err
	}
	df, err := FindAndParseDataField(c)
	if err != nil {
		return nil, err
	}
	return &field{address: *af, data: *df}, nil
}

// ParseDisk decodes every address/data field pair in a raw nibble
// stream and assembles them into a Disk. It stops, without error, the
// first time no further address field can be found; any other
// decoding failure (short data field, checksum mismatch when
// ignoreChecksums is false) is returned immediately. The first sector
// seen for a given volume/track/sector triple wins; later duplicates
// (e.g. from re-synced read passes) are discarded, matching the
// first-writer-wins behavior of the format this was decoded from.
func ParseDisk(data []byte, ignoreChecksums bool) (*Disk, error) {
	c := parse.NewCursor(data)
	disk := NewDisk()

	for {
		start := c.Pos()
		f, err := parseOneSector(c, ignoreChecksums)
		if err != nil {
			if c.Pos() == start {
				break
			}
			return disk, err
		}
		volume := disk.getOrCreateVolume(f.address.Volume)
		track := volume.getOrCreateTrack(f.address.Track)
		if track.Get(f.address.Sector) != nil {
			continue
		}
		sector, err := TransformDataField(&f.data, ignoreChecksums)
		if err != nil {
			return disk, err
		}
		track.sectors[f.address.Sector] = sector
	}

	return disk, nil
}

// Encode serializes the Disk back into a nibble stream: for every
// sector, in ascending volume/track/sector order, it emits an
// AddressField (checksum volume^track^sector) followed by the
// 6-and-2-encoded DataField for that sector's 256 bytes, the same
// field framing ParseDisk/FindAndParseAddressField/
// FindAndParseDataField expect. ParseDisk(disk.Encode(), false) round
// trips to an equal Disk.
func (d *Disk) Encode() []byte {
	var out []byte
	for _, vnum := range d.SortedVolumes() {
		v := d.Get(vnum)
		for _, tnum := range v.SortedTracks() {
			t := v.Get(tnum)
			for _, snum := range t.SortedSectors() {
				s := t.Get(snum)
				af := AddressField{Volume: vnum, Track: tnum, Sector: snum, Checksum: vnum ^ tnum ^ snum}
				out = append(out, af.Encode()...)
				df := EncodeSector(s)
				out = append(out, df.Encode()...)
			}
		}
	}
	return out
}
