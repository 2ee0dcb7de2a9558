package protocol

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeServerBusy      HandshakeStatus = 0x04
	HandshakeInvalidFormat   HandshakeStatus = 0x06 // Malformed handshake message
	HandshakeInternalError   HandshakeStatus = 0x08 // Server error
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking v can talk to this version.
// Minor versions only add messages.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is the first frame sent by the client. It carries everything
// the server needs to seed the session's first signal.
type ClientHello struct {
	Version   ProtocolVersion
	SessionID string // Resume hint, empty for a new session
	Path      string // Page path, selects the manifest page
	ViewportW uint16
	ViewportH uint16
	ScrollX   int
	ScrollY   int
}

// ServerHello is the server's answer to ClientHello. FrameIntervalMs tells
// the client how often the server samples; the client may drop scroll
// events between frames.
type ServerHello struct {
	Status          HandshakeStatus
	SessionID       string
	ServerTime      uint64 // Unix milliseconds
	FrameIntervalMs uint16
	QuietWindowMs   uint16
}

// NewClientHello creates a ClientHello with the current version.
func NewClientHello(path string, width, height uint16) *ClientHello {
	return &ClientHello{
		Version:   CurrentVersion,
		Path:      path,
		ViewportW: width,
		ViewportH: height,
	}
}

// NewServerHello creates a successful ServerHello.
func NewServerHello(sessionID string, serverTime uint64, frameIntervalMs, quietWindowMs uint16) *ServerHello {
	return &ServerHello{
		Status:          HandshakeOK,
		SessionID:       sessionID,
		ServerTime:      serverTime,
		FrameIntervalMs: frameIntervalMs,
		QuietWindowMs:   quietWindowMs,
	}
}

// NewServerHelloError creates a ServerHello with an error status.
func NewServerHelloError(status HandshakeStatus) *ServerHello {
	return &ServerHello{Status: status}
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.SessionID)
	e.WriteString(ch.Path)
	e.WriteUint16(ch.ViewportW)
	e.WriteUint16(ch.ViewportH)
	e.WriteSvarint(int64(ch.ScrollX))
	e.WriteSvarint(int64(ch.ScrollY))
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	ch := &ClientHello{}
	var err error

	if ch.Version.Major, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.SessionID, err = readID(d); err != nil {
		return nil, err
	}
	if ch.Path, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ch.ViewportW, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if ch.ViewportH, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if ch.ScrollX, err = d.ReadInt(); err != nil {
		return nil, err
	}
	if ch.ScrollY, err = d.ReadInt(); err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUint64(sh.ServerTime)
	e.WriteUint16(sh.FrameIntervalMs)
	e.WriteUint16(sh.QuietWindowMs)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	sh := &ServerHello{}

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HandshakeStatus(status)

	if sh.SessionID, err = readID(d); err != nil {
		return nil, err
	}
	if sh.ServerTime, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if sh.FrameIntervalMs, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if sh.QuietWindowMs, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return sh, nil
}
