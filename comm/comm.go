// Package comm implements the collective messaging abstraction spec.md
// §5 describes: blocking point-to-point send/receive with a peer and
// tag, a broadcast from rank 0, and a barrier. A fixed collective of
// `size` members runs in-process as goroutines, wired together over
// channels rather than a real network transport — this repository has
// no MPI binding available, so the collective is implemented the way
// the rest of the corpus implements worker fan-out: with Go's native
// concurrency primitives.
//
// Operations are blocking; cancellation is not supported. A failed
// member aborts the collective by returning an error from whichever
// call was in flight (spec.md §5).
package comm

import (
	"fmt"
	"sync"
)

// NoRank is the sentinel neighbor value at the two ends of the
// (intentionally non-periodic) ring topology. spec.md §9 notes that
// the source's modular east/west computation is cosmetic once
// rank-bounds guards are in place everywhere they're used; this
// collective makes the sentinel the actual mechanism instead.
const NoRank = -1

// Collective is the view of the cluster one member gets: its own
// rank, the collective size, its ring neighbors, and the blocking
// primitives spec.md §5 lists.
type Collective interface {
	Rank() int
	Size() int
	West() int
	East() int

	Send(to, tag int, data []byte) error
	Recv(from, tag int) ([]byte, error)
	// SendRecv exchanges payloads with two peers in one blocking call,
	// mirroring MPI_Sendrecv: send sendData to sendTo, and receive
	// whatever recvFrom sends on recvTag, without requiring every
	// member to issue Send/Recv in the same order (each side performs
	// its own send and receive independently; deadlock-freedom comes
	// from running the send on its own goroutine).
	SendRecv(sendTo, sendTag int, sendData []byte, recvFrom, recvTag int) ([]byte, error)

	Broadcast(root int, data []byte) ([]byte, error)
	Barrier() error
}

type message struct {
	tag  int
	data []byte
}

type member struct {
	rank    int
	cluster *Cluster
	inbox   map[int]chan message // keyed by sender rank

	mu      sync.Mutex
	pending map[int][]message // messages received out of tag order, buffered per sender
}

// Cluster is a fixed collective of `size` in-process members. Use
// NewCluster to build one and Member to get each rank's Collective
// view.
type Cluster struct {
	size    int
	members []*member

	barrierMu    sync.Mutex
	barrierCond  *sync.Cond
	barrierCount int
	barrierEpoch int
}

// NewCluster builds a collective of `size` members, each able to
// exchange messages with any other and participate in Broadcast and
// Barrier.
func NewCluster(size int) *Cluster {
	if size < 1 {
		size = 1
	}
	c := &Cluster{size: size, members: make([]*member, size)}
	c.barrierCond = sync.NewCond(&c.barrierMu)

	for r := 0; r < size; r++ {
		c.members[r] = &member{
			rank:    r,
			cluster: c,
			inbox:   make(map[int]chan message),
			pending: make(map[int][]message),
		}
	}
	// Every ordered pair (from, to) gets its own buffered channel so
	// Send never blocks waiting for the receiver to be ready for that
	// specific sender.
	for from := 0; from < size; from++ {
		for to := 0; to < size; to++ {
			c.members[to].inbox[from] = make(chan message, 64)
		}
	}
	return c
}

// Member returns rank's Collective view into the cluster.
func (c *Cluster) Member(rank int) Collective {
	return c.members[rank]
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.cluster.size }

func (m *member) West() int {
	if m.rank == 0 {
		return NoRank
	}
	return m.rank - 1
}

func (m *member) East() int {
	if m.rank == m.cluster.size-1 {
		return NoRank
	}
	return m.rank + 1
}

func (m *member) Send(to, tag int, data []byte) error {
	if to < 0 || to >= m.cluster.size {
		return fmt.Errorf("comm: rank %d: send to out-of-range rank %d", m.rank, to)
	}
	cp := append([]byte(nil), data...)
	m.cluster.members[to].inbox[m.rank] <- message{tag: tag, data: cp}
	return nil
}

func (m *member) Recv(from, tag int) ([]byte, error) {
	if from < 0 || from >= m.cluster.size {
		return nil, fmt.Errorf("comm: rank %d: recv from out-of-range rank %d", m.rank, from)
	}
	ch, ok := m.inbox[from]
	if !ok {
		return nil, fmt.Errorf("comm: rank %d: no inbox from rank %d", m.rank, from)
	}

	m.mu.Lock()
	for i, msg := range m.pending[from] {
		if msg.tag == tag {
			m.pending[from] = append(m.pending[from][:i], m.pending[from][i+1:]...)
			m.mu.Unlock()
			return msg.data, nil
		}
	}
	m.mu.Unlock()

	for {
		msg := <-ch
		if msg.tag == tag {
			return msg.data, nil
		}
		m.mu.Lock()
		m.pending[from] = append(m.pending[from], msg)
		m.mu.Unlock()
	}
}

func (m *member) SendRecv(sendTo, sendTag int, sendData []byte, recvFrom, recvTag int) ([]byte, error) {
	var sendErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sendErr = m.Send(sendTo, sendTag, sendData)
	}()

	recvData, recvErr := m.Recv(recvFrom, recvTag)
	wg.Wait()
	if sendErr != nil {
		return nil, sendErr
	}
	if recvErr != nil {
		return nil, recvErr
	}
	return recvData, nil
}

const broadcastTag = -1

// Broadcast sends data from root to every other member and returns
// what root sent, on every member including root.
func (m *member) Broadcast(root int, data []byte) ([]byte, error) {
	if root < 0 || root >= m.cluster.size {
		return nil, fmt.Errorf("comm: rank %d: broadcast root %d out of range", m.rank, root)
	}
	if m.rank == root {
		for to := 0; to < m.cluster.size; to++ {
			if to == root {
				continue
			}
			if err := m.Send(to, broadcastTag, data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
	return m.Recv(root, broadcastTag)
}

// Barrier blocks until every member of the collective has called
// Barrier, then releases all of them together.
func (m *member) Barrier() error {
	c := m.cluster
	c.barrierMu.Lock()
	epoch := c.barrierEpoch
	c.barrierCount++
	if c.barrierCount == c.size {
		c.barrierCount = 0
		c.barrierEpoch++
		c.barrierCond.Broadcast()
	} else {
		for c.barrierEpoch == epoch {
			c.barrierCond.Wait()
		}
	}
	c.barrierMu.Unlock()
	return nil
}
