package mdns

import (
	"testing"

	"github.com/miekg/dns"
)

func TestResolveAnswersDropsEmptyResult(t *testing.T) {
	c := NewCatalog()
	answers, _ := resolveAnswers(c, []dns.Question{
		{Name: "_airdrop._tcp.local.", Qtype: dns.TypePTR, Qclass: dns.ClassINET},
	})
	if answers != nil {
		t.Fatalf("expected nil answers for unknown name, got %v", answers)
	}
}

func TestResolveAnswersHonorsUnicastBit(t *testing.T) {
	c := NewCatalog()
	svc := testService()
	for _, rr := range svc.records(recordTTL) {
		c.Add(rr.Header().Name, rr)
	}

	// No QU bit set: should multicast.
	_, wantUnicast := resolveAnswers(c, []dns.Question{
		{Name: svc.Type, Qtype: dns.TypePTR, Qclass: dns.ClassINET},
	})
	if wantUnicast {
		t.Fatalf("expected multicast reply when QU bit is unset")
	}

	// QU bit set (top bit of qclass).
	answers, wantUnicast := resolveAnswers(c, []dns.Question{
		{Name: svc.Type, Qtype: dns.TypePTR, Qclass: dns.ClassINET | classQU},
	})
	if !wantUnicast {
		t.Fatalf("expected unicast reply when QU bit is set")
	}
	if len(answers) != 1 {
		t.Fatalf("got %d answers, want 1", len(answers))
	}
}

func TestResolveAnswersIgnoresUnknownClass(t *testing.T) {
	c := NewCatalog()
	svc := testService()
	for _, rr := range svc.records(recordTTL) {
		c.Add(rr.Header().Name, rr)
	}

	answers, _ := resolveAnswers(c, []dns.Question{
		{Name: svc.Type, Qtype: dns.TypePTR, Qclass: dns.ClassCHAOS},
	})
	if answers != nil {
		t.Fatalf("expected no answers for a non-IN/ANY class question")
	}
}
