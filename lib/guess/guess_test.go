package guess

import "testing"

func TestIdentifyByExtension(t *testing.T) {
	g, err := Identify("disk.dsk", make([]byte, 143360))
	if err != nil {
		t.Fatal(err)
	}
	if g.Kind != KindApple || g.Encoding != EncodingPlain || g.Format != FormatDOS33 {
		t.Errorf("got %+v; want Apple/plain/DOS33", g)
	}

	g, err = Identify("disk.d64", make([]byte, 174848))
	if err != nil {
		t.Fatal(err)
	}
	if g.Kind != KindD64 {
		t.Errorf("got %+v; want D64", g)
	}
}

func TestIdentifyNibbleSubVariant(t *testing.T) {
	data := make([]byte, 100)
	data[10] = 0xD5
	data[11] = 0xAA
	data[12] = 0xB5

	g, err := Identify("disk.nib", data)
	if err != nil {
		t.Fatal(err)
	}
	if g.Format != FormatDOS32 {
		t.Errorf("Format = %v; want DOS32", g.Format)
	}
}

func TestIdentifyByMagic(t *testing.T) {
	data := make([]byte, appleMagicSuffixOffset+8)
	copy(data, appleMagicPrefix)
	copy(data[appleMagicSuffixOffset:], appleMagicSuffix)

	g, err := Identify("unnamed.bin", data)
	if err != nil {
		t.Fatal(err)
	}
	if g.Kind != KindApple || g.Format != FormatDOS33 {
		t.Errorf("got %+v; want Apple/DOS33 from magic match", g)
	}
}

func TestIdentifyUnrecognized(t *testing.T) {
	if _, err := Identify("mystery.bin", make([]byte, 10)); err == nil {
		t.Errorf("want error for unrecognized image")
	}
}
