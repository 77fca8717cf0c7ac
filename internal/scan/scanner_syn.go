package scan

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"portsweep/internal/netraw"
)

// tcp flag bits, matching the pack's serviceradar reference scanner.
const (
	synFlag = 0x02
	ackFlag = 0x10
	rstFlag = 0x04
)

// SYNScanner is the raw-SYN PortScanner variant (§4.3.2). It owns one raw
// TCP send socket and one raw ICMP listener, shared across all probes in a
// scan, and classifies replies by matching the source port it stamped on
// each outbound SYN.
type SYNScanner struct {
	srcIP net.IP

	sendSocket *netraw.RawSocket
	icmpConn   net.PacketConn

	nextPort uint32 // ephemeral source port counter, wraps within the dynamic range

	mu      sync.Mutex
	waiters map[uint16]chan PortState // keyed by the source port stamped on the SYN
}

const ephemeralPortStart = 20000
const ephemeralPortRange = 20000

// NewSYNScanner opens the raw sockets needed for SYN scanning. It fails if
// the caller lacks CAP_NET_RAW (or root); the engine is responsible for
// falling back to ConnectScanner when that happens and fallback is allowed.
func NewSYNScanner(srcIP net.IP) (*SYNScanner, error) {
	if srcIP == nil {
		return nil, fmt.Errorf("syn scanner: source IP required")
	}

	send, err := netraw.NewRawSocket(6) // IPPROTO_TCP
	if err != nil {
		return nil, fmt.Errorf("syn scanner: %w", err)
	}

	icmpConn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		send.Close()
		return nil, fmt.Errorf("syn scanner: icmp listen: %w", err)
	}

	s := &SYNScanner{
		srcIP:      srcIP,
		sendSocket: send,
		icmpConn:   icmpConn,
		waiters:    make(map[uint16]chan PortState),
	}

	go s.readLoop()
	go s.icmpReadLoop()

	return s, nil
}

// Close releases both raw sockets. Safe to call once the scan using this
// scanner has fully drained (§4.5 cancellation: no in-flight read is torn
// down mid-syscall by the caller).
func (s *SYNScanner) Close() error {
	s.icmpConn.Close()
	return s.sendSocket.Close()
}

func (s *SYNScanner) Capabilities() Capabilities {
	return Capabilities{
		RequiresPrivilege: true,
		SupportsIPv6:      false,
		PreferredBatch:    AvgBatch * 2, // no per-probe descriptor is consumed
	}
}

func (s *SYNScanner) Probe(ctx context.Context, address net.IP, port int) (PortState, time.Duration) {
	start := time.Now()

	srcPort := s.allocPort()
	wait := make(chan PortState, 1)

	s.mu.Lock()
	s.waiters[srcPort] = wait
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiters, srcPort)
		s.mu.Unlock()
	}()

	if err := s.sendSYN(address, srcPort, port); err != nil {
		return StateFiltered, time.Since(start)
	}

	select {
	case state := <-wait:
		return state, time.Since(start)
	case <-ctx.Done():
		return StateFiltered, time.Since(start)
	}
}

func (s *SYNScanner) allocPort() uint16 {
	n := atomic.AddUint32(&s.nextPort, 1)
	return uint16(ephemeralPortStart + (n % ephemeralPortRange))
}

func (s *SYNScanner) sendSYN(dst net.IP, srcPort uint16, dstPort int) error {
	seq := uint32(time.Now().UnixNano())

	tcpHeader, err := netraw.BuildTCPHeaderWithChecksum(s.srcIP, dst, int(srcPort), dstPort, seq, 0, synFlag, 65535, 0, nil)
	if err != nil {
		return err
	}

	packet, err := netraw.BuildIPv4Packet(s.srcIP, dst, 6, tcpHeader)
	if err != nil {
		return err
	}

	return s.sendSocket.Send(dst, packet)
}

// readLoop continuously drains the raw TCP reply channel (via the send
// socket, which also receives inbound TCP for this protocol under
// IP_HDRINCL), dispatching each reply to the waiter for its matching source
// port. ICMP replies are read by icmpReadLoop. Filtered-by-timeout is
// handled by Probe's ctx.Done() branch, not here.
func (s *SYNScanner) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, _, err := s.sendSocket.Receive(buf, 2*time.Second)
		if err != nil {
			continue
		}
		s.handleTCPReply(buf[:n])
	}
}

// icmpReadLoop watches for ICMP destination-unreachable replies and resolves
// the matching probe as Filtered early instead of leaving it to time out
// against ctx.Done() (§4.3.2). Every unreachable code is treated this way,
// administratively filtered or not.
func (s *SYNScanner) icmpReadLoop() {
	buf := make([]byte, 4096)
	for {
		n, _, err := s.icmpConn.ReadFrom(buf)
		if err != nil {
			return
		}
		msg, err := icmp.ParseMessage(1, buf[:n]) // 1 == ICMPv4 protocol number
		if err != nil {
			continue
		}
		if msg.Type != ipv4.ICMPTypeDestinationUnreachable {
			continue
		}
		body, ok := msg.Body.(*icmp.DstUnreach)
		if !ok {
			continue
		}
		s.handleICMPUnreachable(body.Data)
	}
}

// handleICMPUnreachable extracts the embedded original IPv4+TCP header
// (RFC 792's "as much of the original datagram as possible") to recover the
// source port we stamped on the probe that triggered this reply.
func (s *SYNScanner) handleICMPUnreachable(embedded []byte) {
	if len(embedded) < 20 {
		return
	}
	ihl := int(embedded[0]&0x0f) * 4
	if len(embedded) < ihl+4 {
		return
	}
	srcPort := binary.BigEndian.Uint16(embedded[ihl : ihl+2])

	s.mu.Lock()
	wait, ok := s.waiters[srcPort]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case wait <- StateFiltered:
	default:
	}
}

func (s *SYNScanner) handleTCPReply(raw []byte) {
	if len(raw) < ipv4.HeaderLen+20 {
		return
	}
	ihl := int(raw[0]&0x0f) * 4
	if len(raw) < ihl+20 {
		return
	}
	tcp := raw[ihl:]

	dstPort := binary.BigEndian.Uint16(tcp[2:4]) // our src port is the reply's dst port
	flags := tcp[13]

	s.mu.Lock()
	wait, ok := s.waiters[dstPort]
	s.mu.Unlock()
	if !ok {
		return
	}

	var result PortState
	switch {
	case flags&synFlag != 0 && flags&ackFlag != 0:
		result = StateOpen
	case flags&rstFlag != 0:
		result = StateClosed
	default:
		return
	}
	select {
	case wait <- result:
	default:
	}
}
