// Package protocol implements the framed binary wire protocol spoken
// between duplexchat clients and the server core.
package protocol

// Type is the packet-type tag carried in the frame header.
type Type uint16

const (
	AuthRegister        Type = 1
	AuthLogin           Type = 2
	AuthOk              Type = 3
	AuthError           Type = 4
	UserListUpdate      Type = 5
	GroupCreate         Type = 7
	GroupJoin           Type = 8
	GroupLeave          Type = 9
	GroupAdmin          Type = 10
	MessageSend         Type = 11
	MessageDeliver      Type = 12
	HistoryFetch        Type = 13
	HistoryResponse     Type = 14
	FileOffer           Type = 15
	FileAccept          Type = 16
	FileUploadChunk     Type = 17
	FileUploadDone      Type = 18
	FileDownloadRequest Type = 19
	FileDownloadChunk   Type = 20
	FileDone            Type = 21
)

const (
	// Magic is "OLTK" read as a big-endian uint32.
	Magic uint32 = 0x4F4C544B
	// Version is the only framing version this codec understands.
	Version uint16 = 1

	// HeaderSize is the fixed size of a frame header in bytes.
	HeaderSize = 28
	// MaxMetaSize is the largest metadata JSON payload accepted.
	MaxMetaSize = 1 << 20
	// MaxBinarySize is the largest binary payload accepted.
	MaxBinarySize = 32 << 20
)

// Header is the fixed 28-byte frame preamble, big-endian on the wire.
type Header struct {
	Magic     uint32
	Version   uint16
	Type      Type
	Flags     uint32
	RequestID uint64
	MetaLen   uint32
	BinLen    uint32
}

// Packet is a fully decoded frame: header plus its metadata JSON and
// opaque binary payload.
type Packet struct {
	Header Header
	Meta   []byte
	Binary []byte
}

// NewPacket builds a packet with a freshly computed header from its
// payloads; MetaLen and BinLen are derived at Encode time.
func NewPacket(typ Type, requestID uint64, meta, binary []byte) Packet {
	return Packet{
		Header: Header{
			Magic:     Magic,
			Version:   Version,
			Type:      typ,
			RequestID: requestID,
		},
		Meta:   meta,
		Binary: binary,
	}
}
