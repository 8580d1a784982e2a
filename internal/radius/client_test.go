package radius

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radgate/backend/internal/models"
)

// fakeNasServer answers every Disconnect-Request datagram with the given
// reply code, echoing the request identifier. replyCode 0 means stay silent.
func fakeNasServer(t *testing.T, replyCode byte) (ip string, port int) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if replyCode == 0 || n < 20 {
				continue
			}
			reply := make([]byte, 20)
			reply[0] = replyCode
			reply[1] = buf[1]
			reply[3] = 20
			conn.WriteTo(reply, addr)
		}
	}()

	udpAddr := conn.LocalAddr().(*net.UDPAddr)
	return udpAddr.IP.String(), udpAddr.Port
}

func testNas(ip string, port int) *models.NasDevice {
	return &models.NasDevice{
		IPAddress: ip,
		Type:      models.NasTypeMikrotik,
		Secret:    "s3cret",
		CoaPort:   port,
	}
}

func TestSendDisconnectAck(t *testing.T) {
	ip, port := fakeNasServer(t, CodeDisconnectACK)

	result := SendDisconnect(testNas(ip, port), "alice", "8100004a", time.Second)
	assert.Equal(t, "disconnected", result)
}

func TestSendDisconnectNak(t *testing.T) {
	ip, port := fakeNasServer(t, CodeDisconnectNAK)

	result := SendDisconnect(testNas(ip, port), "alice", "8100004a", time.Second)
	assert.Contains(t, result, "NAK")
}

func TestSendDisconnectNonstandardCodeIsSuccess(t *testing.T) {
	ip, port := fakeNasServer(t, CodeCoAACK)

	result := SendDisconnect(testNas(ip, port), "alice", "8100004a", time.Second)
	assert.Contains(t, result, "disconnected")
}

func TestSendDisconnectTimeout(t *testing.T) {
	ip, port := fakeNasServer(t, 0)

	result := SendDisconnect(testNas(ip, port), "alice", "8100004a", 300*time.Millisecond)
	assert.Equal(t, "timeout waiting for NAS reply", result)
}

// terminator fakes

type fakeSessionSource struct {
	sessions []models.RadAcct
}

func (f *fakeSessionSource) FindOpenByUsername(username string) ([]models.RadAcct, error) {
	var out []models.RadAcct
	for _, s := range f.sessions {
		if s.Username == username && s.AcctStopTime == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionSource) FindOpenBySessionID(sessionID string) (*models.RadAcct, error) {
	for i := range f.sessions {
		if f.sessions[i].AcctSessionID == sessionID && f.sessions[i].AcctStopTime == nil {
			return &f.sessions[i], nil
		}
	}
	return nil, nil
}

type fakeNasSource struct {
	devices map[string]*models.NasDevice
}

func (f *fakeNasSource) FindByIP(ip string) (*models.NasDevice, error) {
	return f.devices[ip], nil
}

func TestDisconnectUserAggregatesPerSessionOutcomes(t *testing.T) {
	// Two open sessions on two NAS devices: one ACKs, the other is silent.
	// Each session gets its own outcome and the timeout does not stop the
	// other disconnect.
	ackIP, ackPort := fakeNasServer(t, CodeDisconnectACK)
	silentIP, silentPort := fakeNasServer(t, 0)

	sessions := &fakeSessionSource{sessions: []models.RadAcct{
		{AcctSessionID: "sess-a", Username: "alice", NasIPAddress: ackIP + ":" + strconv.Itoa(ackPort)},
		{AcctSessionID: "sess-b", Username: "alice", NasIPAddress: silentIP + ":" + strconv.Itoa(silentPort)},
	}}
	nasDevices := &fakeNasSource{devices: map[string]*models.NasDevice{
		ackIP + ":" + strconv.Itoa(ackPort):       testNas(ackIP, ackPort),
		silentIP + ":" + strconv.Itoa(silentPort): testNas(silentIP, silentPort),
	}}

	terminator := NewTerminator(sessions, nasDevices, 300*time.Millisecond)
	result, err := terminator.DisconnectUser("alice")
	require.NoError(t, err)

	parts := strings.Split(result, "; ")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "sess-a")
	assert.Contains(t, parts[0], "disconnected")
	assert.Contains(t, parts[1], "sess-b")
	assert.Contains(t, parts[1], "timeout")
}

func TestDisconnectUserNoSessions(t *testing.T) {
	terminator := NewTerminator(&fakeSessionSource{}, &fakeNasSource{}, time.Second)

	result, err := terminator.DisconnectUser("nobody")
	require.NoError(t, err)
	assert.Equal(t, "no open sessions", result)
}

func TestDisconnectSession(t *testing.T) {
	ip, port := fakeNasServer(t, CodeDisconnectACK)
	key := ip + ":" + strconv.Itoa(port)

	sessions := &fakeSessionSource{sessions: []models.RadAcct{
		{AcctSessionID: "sess-x", Username: "bob", NasIPAddress: key},
	}}
	nasDevices := &fakeNasSource{devices: map[string]*models.NasDevice{
		key: testNas(ip, port),
	}}

	terminator := NewTerminator(sessions, nasDevices, time.Second)
	result, err := terminator.DisconnectSession("sess-x")
	require.NoError(t, err)
	assert.Contains(t, result, "disconnected")

	result, err = terminator.DisconnectSession("missing")
	require.NoError(t, err)
	assert.Equal(t, "session not found", result)
}

func TestDisconnectUserUnknownNas(t *testing.T) {
	sessions := &fakeSessionSource{sessions: []models.RadAcct{
		{AcctSessionID: "sess-y", Username: "carol", NasIPAddress: "203.0.113.5"},
	}}
	terminator := NewTerminator(sessions, &fakeNasSource{devices: map[string]*models.NasDevice{}}, time.Second)

	result, err := terminator.DisconnectUser("carol")
	require.NoError(t, err)
	assert.Contains(t, result, "NAS 203.0.113.5 not found")
}
