package protocol

import "fmt"

// PatchOp is the type of patch operation.
type PatchOp uint8

// Patch operation constants.
const (
	PatchAddClass    PatchOp = 0x10 // Add CSS class
	PatchRemoveClass PatchOp = 0x11 // Remove CSS class
	PatchSetStyle    PatchOp = 0x13 // Set style property
	PatchRemoveStyle PatchOp = 0x14 // Remove style property
	PatchSetData     PatchOp = 0x15 // Set data attribute
	PatchListen      PatchOp = 0x30 // Attach a client event listener
	PatchUnlisten    PatchOp = 0x31 // Detach a client event listener
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchAddClass:
		return "AddClass"
	case PatchRemoveClass:
		return "RemoveClass"
	case PatchSetStyle:
		return "SetStyle"
	case PatchRemoveStyle:
		return "RemoveStyle"
	case PatchSetData:
		return "SetData"
	case PatchListen:
		return "Listen"
	case PatchUnlisten:
		return "Unlisten"
	default:
		return fmt.Sprintf("PatchOp(0x%02x)", uint8(op))
	}
}

// Patch is a single DOM mutation. Target is an element id; the empty
// target addresses the window (listeners) or the document element
// (classes, styles).
//
// Field use by op:
//
//	AddClass, RemoveClass   Value = class name
//	SetStyle                Key = property, Value = value
//	RemoveStyle             Key = property
//	SetData                 Key = data-* suffix, Value = value
//	Listen                  Key = event name, Passive
//	Unlisten                Key = event name
type Patch struct {
	Op      PatchOp
	Target  string
	Key     string
	Value   string
	Passive bool
}

// String returns a compact human readable form used in logs.
func (p Patch) String() string {
	target := p.Target
	if target == "" {
		target = "window"
	}
	switch p.Op {
	case PatchAddClass, PatchRemoveClass:
		return fmt.Sprintf("%s(%s, %s)", p.Op, target, p.Value)
	case PatchRemoveStyle, PatchUnlisten:
		return fmt.Sprintf("%s(%s, %s)", p.Op, target, p.Key)
	case PatchListen:
		return fmt.Sprintf("%s(%s, %s, passive=%t)", p.Op, target, p.Key, p.Passive)
	default:
		return fmt.Sprintf("%s(%s, %s=%s)", p.Op, target, p.Key, p.Value)
	}
}

// PatchesFrame is a batch of patches applied by the client in order.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteString(p.Target)

	switch p.Op {
	case PatchAddClass, PatchRemoveClass:
		e.WriteString(p.Value)
	case PatchSetStyle, PatchSetData:
		e.WriteString(p.Key)
		e.WriteString(p.Value)
	case PatchRemoveStyle, PatchUnlisten:
		e.WriteString(p.Key)
	case PatchListen:
		e.WriteString(p.Key)
		e.WriteBool(p.Passive)
	}
}

// DecodePatches decodes a patches frame from bytes.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := DecodePatchesFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return pf, nil
}

// DecodePatchesFrom decodes a patches frame from a decoder.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	n, err := d.ReadCount(MaxPatchesPerFrame)
	if err != nil {
		return nil, err
	}

	pf := &PatchesFrame{Seq: seq, Patches: make([]Patch, n)}
	for i := range pf.Patches {
		if err := decodePatch(d, &pf.Patches[i]); err != nil {
			return nil, err
		}
	}
	return pf, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)

	if p.Target, err = readID(d); err != nil {
		return err
	}

	switch p.Op {
	case PatchAddClass, PatchRemoveClass:
		p.Value, err = d.ReadString()
	case PatchSetStyle, PatchSetData:
		if p.Key, err = readID(d); err != nil {
			return err
		}
		p.Value, err = d.ReadString()
	case PatchRemoveStyle, PatchUnlisten:
		p.Key, err = readID(d)
	case PatchListen:
		if p.Key, err = readID(d); err != nil {
			return err
		}
		p.Passive, err = d.ReadBool()
	default:
		return fmt.Errorf("protocol: unknown patch op 0x%02x", op)
	}
	return err
}

// NewAddClassPatch creates an AddClass patch.
func NewAddClassPatch(target, class string) Patch {
	return Patch{Op: PatchAddClass, Target: target, Value: class}
}

// NewRemoveClassPatch creates a RemoveClass patch.
func NewRemoveClassPatch(target, class string) Patch {
	return Patch{Op: PatchRemoveClass, Target: target, Value: class}
}

// NewSetStylePatch creates a SetStyle patch.
func NewSetStylePatch(target, property, value string) Patch {
	return Patch{Op: PatchSetStyle, Target: target, Key: property, Value: value}
}

// NewRemoveStylePatch creates a RemoveStyle patch.
func NewRemoveStylePatch(target, property string) Patch {
	return Patch{Op: PatchRemoveStyle, Target: target, Key: property}
}

// NewSetDataPatch creates a SetData patch.
func NewSetDataPatch(target, key, value string) Patch {
	return Patch{Op: PatchSetData, Target: target, Key: key, Value: value}
}

// NewListenPatch asks the client to attach a listener for event on target
// and forward it.
func NewListenPatch(target, event string, passive bool) Patch {
	return Patch{Op: PatchListen, Target: target, Key: event, Passive: passive}
}

// NewUnlistenPatch asks the client to detach the listener for event.
func NewUnlistenPatch(target, event string) Patch {
	return Patch{Op: PatchUnlisten, Target: target, Key: event}
}
