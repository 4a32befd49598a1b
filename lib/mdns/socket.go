package mdns

import (
	"context"
	"fmt"
	"net"

	"github.com/airbridge/airdropd/lib/netiface"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	mdnsPort = 5353
	mdnsIPv4 = "224.0.0.251"
	mdnsIPv6 = "ff02::fb"

	// maxPacketSize bounds both reads and writes, per spec.md §4.4: a
	// 9000-byte ceiling keeps a single malformed or oversized query from
	// tying up a responder goroutine indefinitely.
	maxPacketSize = 9000
)

// family identifies which IP version a socketGroup serves.
type family int

const (
	familyV4 family = 4
	familyV6 family = 6
)

// socketGroup is the three-socket fleet spec.md §4.4 describes for one
// (interface, address family) pair: a listener joined to the mDNS
// multicast group scoped to that interface, an ephemeral-port client
// used to send unicast replies, and a client bound to the interface's
// own address used to send multicast replies and outgoing queries.
type socketGroup struct {
	iface  net.Interface
	fam    family
	group  net.Addr
	listen net.PacketConn
	pc4    *ipv4.PacketConn
	pc6    *ipv6.PacketConn
	reply  net.PacketConn // ephemeral port, unicast replies
	mcast  net.PacketConn // bound to iface addr:5353, multicast replies/queries
}

func listenConfig() net.ListenConfig {
	return net.ListenConfig{Control: netiface.ListenControl}
}

// newSocketGroup opens and joins all three sockets for iface/fam. addr
// is the interface's own address of the matching family, used to bind
// the multicast-sending client.
func newSocketGroup(ctx context.Context, iface net.Interface, fam family, addr net.IP) (*socketGroup, error) {
	network, wildcard, groupIP := "udp4", ":5353", mdnsIPv4
	if fam == familyV6 {
		network, wildcard, groupIP = "udp6", "[::]:5353", mdnsIPv6
	}

	lc := listenConfig()
	listen, err := lc.ListenPacket(ctx, network, wildcard)
	if err != nil {
		return nil, fmt.Errorf("mdns: listen %s on %s: %w", network, iface.Name, err)
	}

	sg := &socketGroup{iface: iface, fam: fam, listen: listen}

	if fam == familyV4 {
		sg.pc4 = ipv4.NewPacketConn(listen)
		if err := sg.pc4.SetControlMessage(ipv4.FlagInterface, true); err != nil {
			listen.Close()
			return nil, fmt.Errorf("mdns: set control message v4: %w", err)
		}
		group := &net.UDPAddr{IP: net.ParseIP(groupIP), Port: mdnsPort}
		if err := sg.pc4.JoinGroup(&iface, group); err != nil {
			listen.Close()
			return nil, fmt.Errorf("mdns: join group on %s: %w", iface.Name, err)
		}
		sg.group = group
	} else {
		sg.pc6 = ipv6.NewPacketConn(listen)
		if err := sg.pc6.SetControlMessage(ipv6.FlagInterface, true); err != nil {
			listen.Close()
			return nil, fmt.Errorf("mdns: set control message v6: %w", err)
		}
		group := &net.UDPAddr{IP: net.ParseIP(groupIP), Port: mdnsPort, Zone: iface.Name}
		if err := sg.pc6.JoinGroup(&iface, group); err != nil {
			listen.Close()
			return nil, fmt.Errorf("mdns: join group on %s: %w", iface.Name, err)
		}
		sg.group = group
	}

	reply, err := lc.ListenPacket(ctx, network, emptyHost(network))
	if err != nil {
		sg.Close()
		return nil, fmt.Errorf("mdns: open reply socket on %s: %w", iface.Name, err)
	}
	sg.reply = reply

	mcastAddr := net.JoinHostPort(addr.String(), fmt.Sprintf("%d", mdnsPort))
	mcast, err := lc.ListenPacket(ctx, network, mcastAddr)
	if err != nil {
		sg.Close()
		return nil, fmt.Errorf("mdns: open multicast-send socket on %s: %w", iface.Name, err)
	}
	sg.mcast = mcast

	return sg, nil
}

func emptyHost(network string) string {
	if network == "udp6" {
		return "[::]:0"
	}
	return ":0"
}

func (sg *socketGroup) Close() {
	if sg.listen != nil {
		sg.listen.Close()
	}
	if sg.reply != nil {
		sg.reply.Close()
	}
	if sg.mcast != nil {
		sg.mcast.Close()
	}
}

// readFrom reads one packet and the interface index it arrived on (used to discard packets delivered to the wrong listener
// when SO_RECV_ANYIF fans packets in from other interfaces).
func (sg *socketGroup) readFrom(buf []byte) (n int, src net.Addr, ifIndex int, err error) {
	if sg.fam == familyV4 {
		var cm *ipv4.ControlMessage
		n, cm, src, err = sg.pc4.ReadFrom(buf)
		if cm != nil {
			ifIndex = cm.IfIndex
		}
		return n, src, ifIndex, err
	}
	var cm *ipv6.ControlMessage
	n, cm, src, err = sg.pc6.ReadFrom(buf)
	if cm != nil {
		ifIndex = cm.IfIndex
	}
	return n, src, ifIndex, err
}

// writeUnicast sends buf to dst from the ephemeral reply socket.
func (sg *socketGroup) writeUnicast(buf []byte, dst net.Addr) error {
	_, err := sg.reply.WriteTo(buf, dst)
	return err
}

// writeMulticast sends buf to the mDNS group address from the socket
// bound to this interface's own address.
func (sg *socketGroup) writeMulticast(buf []byte) error {
	_, err := sg.mcast.WriteTo(buf, sg.group)
	return err
}
