package radius

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// SecretProbeResult is the outcome of a shared-secret test against a NAS.
type SecretProbeResult struct {
	Success     bool   `json:"success"`
	SecretValid bool   `json:"secret_valid"`
	Message     string `json:"message"`
}

// ProbeSecret verifies the RADIUS shared secret by sending a minimal
// CoA-Request to the NAS's control ports. Any ACK or NAK proves the secret
// (a NAK only means no session matched); silence on both ports means the
// secret is wrong or CoA is disabled.
func ProbeSecret(nasIP, secret string) SecretProbeResult {
	if secret == "" {
		return SecretProbeResult{Message: "RADIUS secret not configured"}
	}

	for _, port := range []int{3799, 1700} {
		if msg, ok := sendProbe(nasIP, port, secret); ok {
			return SecretProbeResult{Success: true, SecretValid: true, Message: fmt.Sprintf("%s (port %d)", msg, port)}
		}
	}
	return SecretProbeResult{Message: "no CoA response - secret may be wrong or CoA not enabled"}
}

func sendProbe(nasIP string, port int, secret string) (string, bool) {
	addr := fmt.Sprintf("%s:%d", nasIP, port)
	conn, err := net.DialTimeout("udp", addr, 2*time.Second)
	if err != nil {
		return "", false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write(buildProbePacket(secret)); err != nil {
		return "", false
	}

	reply := make([]byte, 4096)
	n, err := conn.Read(reply)
	if err != nil || n < 20 {
		return "", false
	}

	switch reply[0] {
	case CodeCoAACK:
		return "CoA-ACK received, secret valid", true
	case CodeCoANAK:
		return "CoA-NAK received, secret valid (no matching session)", true
	default:
		return "", false
	}
}

// buildProbePacket creates a minimal CoA-Request with a single dummy
// NAS-IP-Address attribute and the standard zero-field authenticator.
func buildProbePacket(secret string) []byte {
	packet := make([]byte, 0, 32)
	packet = append(packet, CodeCoARequest, 0x01, 0x00, 0x00)
	packet = append(packet, make([]byte, 16)...)
	packet = append(packet, attrNasIPAddress, 6, 0, 0, 0, 0)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(packet)))

	h := md5.New()
	h.Write(packet)
	h.Write([]byte(secret))
	copy(packet[4:20], h.Sum(nil))

	return packet
}
