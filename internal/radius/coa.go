package radius

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/radgate/backend/internal/models"
)

// MikroTik vendor ID and the Rate-Limit vendor attribute.
const (
	MikrotikVendorID  = 14988
	MikrotikRateLimit = 8
)

// CoAClient pushes Change-of-Authorization packets to a NAS, used to change
// a live session's rate limit without disconnecting it.
type CoAClient struct {
	nas     *models.NasDevice
	timeout time.Duration
}

// NewCoAClient builds a client for one NAS.
func NewCoAClient(nas *models.NasDevice) *CoAClient {
	return &CoAClient{nas: nas, timeout: 5 * time.Second}
}

// UpdateRateLimit sends a CoA-Request carrying Mikrotik-Rate-Limit for the
// session. MikroTik matches sessions on a lowercase session id without the
// "0x" prefix, so the id is normalized before sending.
func (c *CoAClient) UpdateRateLimit(username, sessionID, rateLimit string) error {
	cleanSessionID := sessionID
	if strings.HasPrefix(sessionID, "0x") || strings.HasPrefix(sessionID, "0X") {
		cleanSessionID = sessionID[2:]
	}
	cleanSessionID = strings.ToLower(cleanSessionID)

	log.Printf("CoA: rate-limit change to %s for user=%s session=%s rate=%s",
		c.nas.IPAddress, username, cleanSessionID, rateLimit)

	packet := radius.New(radius.CodeCoARequest, []byte(c.nas.Secret))

	if err := rfc2865.UserName_SetString(packet, username); err != nil {
		return fmt.Errorf("failed to set User-Name: %w", err)
	}
	if cleanSessionID != "" {
		if err := rfc2866.AcctSessionID_SetString(packet, cleanSessionID); err != nil {
			return fmt.Errorf("failed to set Acct-Session-Id: %w", err)
		}
	}

	packet.Add(rfc2865.VendorSpecific_Type, buildMikrotikVSA(MikrotikRateLimit, []byte(rateLimit)))

	addr := fmt.Sprintf("%s:%d", c.nas.IPAddress, c.nas.DisconnectPort())
	conn, err := net.DialTimeout("udp", addr, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to NAS: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	packetBytes, err := packet.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode packet: %w", err)
	}
	if _, err := conn.Write(packetBytes); err != nil {
		return fmt.Errorf("failed to send CoA: %w", err)
	}

	respBuf := make([]byte, 4096)
	n, err := conn.Read(respBuf)
	if err != nil {
		return fmt.Errorf("failed to read CoA response: %w", err)
	}

	response, err := radius.Parse(respBuf[:n], []byte(c.nas.Secret))
	if err != nil {
		return fmt.Errorf("failed to parse CoA response: %w", err)
	}

	switch response.Code {
	case radius.CodeCoAACK:
		log.Printf("CoA: rate limit updated for %s to %s", username, rateLimit)
		return nil
	case radius.CodeCoANAK:
		return fmt.Errorf("CoA NAK received - NAS rejected the request")
	default:
		return fmt.Errorf("unexpected CoA response code: %d", response.Code)
	}
}

// buildMikrotikVSA builds a MikroTik Vendor-Specific Attribute:
// Vendor-ID (4) + type (1) + length (1) + value.
func buildMikrotikVSA(attrType byte, value []byte) radius.Attribute {
	vsa := make([]byte, 6+len(value))
	vsa[0] = byte(MikrotikVendorID >> 24)
	vsa[1] = byte(MikrotikVendorID >> 16)
	vsa[2] = byte(MikrotikVendorID >> 8)
	vsa[3] = byte(MikrotikVendorID & 0xFF)
	vsa[4] = attrType
	vsa[5] = byte(2 + len(value))
	copy(vsa[6:], value)
	return radius.Attribute(vsa)
}
