package nibble

import "testing"

// TestDiskEncodeRoundtrip builds a small multi-sector, multi-track
// Disk, encodes it to a nibble stream, and checks that ParseDisk
// reconstructs an equal Disk from that stream.
func TestDiskEncodeRoundtrip(t *testing.T) {
	d := NewDisk()
	v := d.getOrCreateVolume(0xFE)

	for trackNum := byte(0); trackNum < 2; trackNum++ {
		track := v.getOrCreateTrack(trackNum)
		for sectorNum := byte(0); sectorNum < 3; sectorNum++ {
			var sector Sector
			for i := range sector.Data {
				sector.Data[i] = byte(int(trackNum)*100 + int(sectorNum)*10 + i)
			}
			track.sectors[sectorNum] = &sector
		}
	}

	encoded := d.Encode()

	got, err := ParseDisk(encoded, false)
	if err != nil {
		t.Fatal(err)
	}

	for _, trackNum := range v.SortedTracks() {
		wantTrack := v.Get(trackNum)
		gotVolume := got.Get(0xFE)
		if gotVolume == nil {
			t.Fatalf("decoded disk is missing volume 0xFE")
		}
		gotTrack := gotVolume.Get(trackNum)
		if gotTrack == nil {
			t.Fatalf("decoded disk is missing track %d", trackNum)
		}
		for _, sectorNum := range wantTrack.SortedSectors() {
			want := wantTrack.Get(sectorNum)
			got := gotTrack.Get(sectorNum)
			if got == nil {
				t.Fatalf("decoded track %d is missing sector %d", trackNum, sectorNum)
			}
			if got.Data != want.Data {
				t.Errorf("track %d sector %d: round trip mismatch", trackNum, sectorNum)
			}
		}
	}
}
