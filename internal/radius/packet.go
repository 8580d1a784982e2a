// Package radius implements the out-of-band control channel to a NAS:
// raw Disconnect-Request datagrams, CoA rate-limit updates and a shared
// secret probe.
package radius

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
)

// RADIUS packet codes used on the disconnect/CoA channel.
const (
	CodeDisconnectRequest = 40
	CodeDisconnectACK     = 41
	CodeDisconnectNAK     = 42
	CodeCoARequest        = 43
	CodeCoAACK            = 44
	CodeCoANAK            = 45
)

// Attribute types carried in a Disconnect-Request.
const (
	attrUserName      = 1
	attrNasIPAddress  = 4
	attrAcctSessionID = 44
)

// BuildDisconnectRequest assembles a Disconnect-Request datagram:
//
//	offset 0      code 40
//	offset 1      random identifier
//	offset 2-3    big-endian total length
//	offset 4-19   authenticator
//	offset 20+    User-Name, Acct-Session-Id, NAS-IP-Address TLVs
//
// The authenticator field is filled with random bytes first, then
// overwritten with MD5(packet || secret) computed over the packet as
// populated with those random bytes. Deployed NAS fleets accept this form;
// it is kept byte-for-byte.
func BuildDisconnectRequest(username, sessionID, nasIP, secret string) ([]byte, error) {
	header := make([]byte, 20)
	if _, err := rand.Read(header[1:2]); err != nil {
		return nil, err
	}
	header[0] = CodeDisconnectRequest
	if _, err := rand.Read(header[4:20]); err != nil {
		return nil, err
	}

	packet := header
	packet = appendAttribute(packet, attrUserName, []byte(username))
	packet = appendAttribute(packet, attrAcctSessionID, []byte(sessionID))

	ip := net.ParseIP(nasIP).To4()
	if ip == nil {
		return nil, fmt.Errorf("invalid NAS IPv4 address %q", nasIP)
	}
	packet = appendAttribute(packet, attrNasIPAddress, ip)

	binary.BigEndian.PutUint16(packet[2:4], uint16(len(packet)))

	h := md5.New()
	h.Write(packet)
	h.Write([]byte(secret))
	copy(packet[4:20], h.Sum(nil))

	return packet, nil
}

func appendAttribute(packet []byte, attrType byte, value []byte) []byte {
	packet = append(packet, attrType, byte(len(value)+2))
	return append(packet, value...)
}
