package radius

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/radgate/backend/internal/models"
)

// DefaultDisconnectTimeout bounds one Disconnect-Request round trip.
const DefaultDisconnectTimeout = 5 * time.Second

// SessionSource resolves the open sessions a disconnect should target.
type SessionSource interface {
	FindOpenByUsername(username string) ([]models.RadAcct, error)
	FindOpenBySessionID(sessionID string) (*models.RadAcct, error)
}

// NasSource resolves the NAS a session lives on.
type NasSource interface {
	FindByIP(ip string) (*models.NasDevice, error)
}

// Terminator tears down live sessions by sending Disconnect-Requests to
// the owning NAS devices.
type Terminator struct {
	sessions SessionSource
	nas      NasSource
	timeout  time.Duration
}

// NewTerminator builds a Terminator. A zero timeout selects the default.
func NewTerminator(sessions SessionSource, nas NasSource, timeout time.Duration) *Terminator {
	if timeout <= 0 {
		timeout = DefaultDisconnectTimeout
	}
	return &Terminator{sessions: sessions, nas: nas, timeout: timeout}
}

// DisconnectUser resolves every open session for the username and
// disconnects each one independently, concatenating the per-session
// outcomes. One NAS timing out does not stop the others.
func (t *Terminator) DisconnectUser(username string) (string, error) {
	sessions, err := t.sessions.FindOpenByUsername(username)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "no open sessions", nil
	}

	outcomes := make([]string, 0, len(sessions))
	for i := range sessions {
		outcomes = append(outcomes, t.disconnectOne(&sessions[i]))
	}
	return strings.Join(outcomes, "; "), nil
}

// DisconnectSession targets a single accounting session id.
func (t *Terminator) DisconnectSession(sessionID string) (string, error) {
	session, err := t.sessions.FindOpenBySessionID(sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "session not found", nil
	}
	return t.disconnectOne(session), nil
}

func (t *Terminator) disconnectOne(session *models.RadAcct) string {
	nas, err := t.nas.FindByIP(session.NasIPAddress)
	if err != nil || nas == nil {
		return fmt.Sprintf("%s: NAS %s not found", session.AcctSessionID, session.NasIPAddress)
	}

	result := SendDisconnect(nas, session.Username, session.AcctSessionID, t.timeout)
	return fmt.Sprintf("%s: %s", session.AcctSessionID, result)
}

// SendDisconnect sends one Disconnect-Request and waits for the reply. The
// first code byte selects the outcome: 41 is an ACK, 42 an explicit NAK,
// and anything else is treated as success (some NAS firmware answers with
// nonstandard codes after honoring the disconnect).
func SendDisconnect(nas *models.NasDevice, username, sessionID string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = DefaultDisconnectTimeout
	}

	packet, err := BuildDisconnectRequest(username, sessionID, nas.IPAddress, nas.Secret)
	if err != nil {
		return fmt.Sprintf("failed to build packet: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", nas.IPAddress, nas.DisconnectPort())
	conn, err := net.DialTimeout("udp", addr, timeout)
	if err != nil {
		return fmt.Sprintf("cannot reach NAS %s: %v", addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write(packet); err != nil {
		return fmt.Sprintf("failed to send disconnect: %v", err)
	}

	reply := make([]byte, 4096)
	n, err := conn.Read(reply)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return "timeout waiting for NAS reply"
		}
		return fmt.Sprintf("read error: %v", err)
	}
	if n == 0 {
		return "empty reply from NAS"
	}

	switch reply[0] {
	case CodeDisconnectACK:
		log.Printf("Disconnect: %s session %s acknowledged by %s", username, sessionID, nas.IPAddress)
		return "disconnected"
	case CodeDisconnectNAK:
		return "NAS rejected the disconnect (NAK)"
	default:
		return fmt.Sprintf("disconnected (reply code %d)", reply[0])
	}
}
