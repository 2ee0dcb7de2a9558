package protocol

import "testing"

func FuzzDecodeFrame(f *testing.F) {
	f.Add(NewFrame(FrameEvent, []byte{0x01, 0x02}).Encode())
	f.Add(NewFrame(FramePatches, []byte("test")).Encode())

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeFrame(data)
	})
}

func FuzzDecodeEvent(f *testing.F) {
	f.Add(EncodeEvent(NewScrollEvent(1, 0, 100)))
	f.Add(EncodeEvent(NewResizeEvent(2, 800, 600)))
	f.Add(EncodeEvent(NewLayoutEvent(3, []Section{{ID: "a", Top: 0, Height: 10}})))

	f.Fuzz(func(t *testing.T, data []byte) {
		ev, err := DecodeEvent(data)
		if err != nil {
			return
		}
		// Anything that decodes must survive a second trip.
		if _, err := DecodeEvent(EncodeEvent(ev)); err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
	})
}

func FuzzDecodePatches(f *testing.F) {
	f.Add(EncodePatches(&PatchesFrame{Seq: 1, Patches: []Patch{NewAddClassPatch("a", "b")}}))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodePatches(data)
	})
}

func FuzzDecodeClientHello(f *testing.F) {
	f.Add(EncodeClientHello(NewClientHello("/", 800, 600)))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeClientHello(data)
	})
}
