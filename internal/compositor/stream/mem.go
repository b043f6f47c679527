package stream

import "sync"

// MemPacket is a Packet held in memory.
type MemPacket struct {
	Payload []byte
	Time    uint64
	Scale   uint32
	End     bool
}

func (p *MemPacket) Data() []byte      { return p.Payload }
func (p *MemPacket) CTS() uint64       { return p.Time }
func (p *MemPacket) Timescale() uint32 { return p.Scale }
func (p *MemPacket) EOS() bool         { return p.End }

// MemPid is an in-memory Pid. Producers may Push from any goroutine; the
// consumer side (Packet, DropPacket) is expected to run on the compositor's
// goroutine.
type MemPid struct {
	name string

	mu      sync.Mutex
	props   map[PropCode]Value
	queue   []*MemPacket
	dropped int
}

// NewMemPid creates an empty in-memory Pid.
func NewMemPid(name string) *MemPid {
	return &MemPid{
		name:  name,
		props: make(map[PropCode]Value),
	}
}

func (p *MemPid) Name() string { return p.name }

// SetProperty sets or replaces a property. It returns p for chaining.
func (p *MemPid) SetProperty(code PropCode, v Value) *MemPid {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props[code] = v
	return p
}

// ClearProperty removes a property.
func (p *MemPid) ClearProperty(code PropCode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.props, code)
}

func (p *MemPid) Property(code PropCode) (Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.props[code]
	return v, ok
}

// Push appends an access unit to the queue.
func (p *MemPid) Push(pck *MemPacket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, pck)
}

func (p *MemPid) Packet() (Packet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	return p.queue[0], true
}

func (p *MemPid) DropPacket() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return
	}
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.dropped++
}

// Pending returns the number of queued access units.
func (p *MemPid) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Dropped returns how many access units the consumer has released.
func (p *MemPid) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
