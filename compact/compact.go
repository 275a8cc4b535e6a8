package compact

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// PeerSize is the length of one compact peer record: 4 bytes of IPv4
// address followed by a 2 byte port, both big-endian.
const PeerSize = 6

var (
	ErrInvalidAddress = errors.New("compact: invalid peer address")
	ErrMalformedBlob  = errors.New("compact: malformed peer list")
)

// Peer is a single compact peer record. It is comparable, so it doubles as a
// map key and as the presence store key.
type Peer [PeerSize]byte

func EncodePeer(ip net.IP, port int) (Peer, error) {
	var p Peer

	ip4 := ip.To4()
	if ip4 == nil {
		return p, fmt.Errorf("%w: %v is not an IPv4 address", ErrInvalidAddress, ip)
	}
	if port < 1 || port > 65535 {
		return p, fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}

	copy(p[:4], ip4)
	binary.BigEndian.PutUint16(p[4:], uint16(port))
	return p, nil
}

func (p Peer) IP() net.IP {
	return net.IPv4(p[0], p[1], p[2], p[3])
}

func (p Peer) Port() int {
	return int(binary.BigEndian.Uint16(p[4:]))
}

func (p Peer) String() string {
	return net.JoinHostPort(p.IP().String(), strconv.Itoa(p.Port()))
}

// DecodePeers splits a peer list blob into records, keeping their order.
func DecodePeers(blob []byte) ([]Peer, error) {
	if len(blob)%PeerSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrMalformedBlob, len(blob), PeerSize)
	}

	peers := make([]Peer, len(blob)/PeerSize)
	for i := range peers {
		copy(peers[i][:], blob[i*PeerSize:])
	}
	return peers, nil
}

func EncodePeers(peers []Peer) []byte {
	blob := make([]byte, 0, len(peers)*PeerSize)
	for _, p := range peers {
		blob = append(blob, p[:]...)
	}
	return blob
}
