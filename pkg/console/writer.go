package console

import (
	"net"
	"sync"
	"time"
)

const dialTimeout = 500 * time.Millisecond

// NetWriter streams log events to a running console. Writes never fail: when
// no console is listening the events are dropped and the writer retries the
// connection on the next write.
type NetWriter struct {
	address string
	lock    sync.Mutex
	conn    net.Conn
}

func NewNetWriter(address string) *NetWriter {
	return &NetWriter{address: address}
}

func (w *NetWriter) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.conn == nil {
		conn, err := net.DialTimeout("tcp", w.address, dialTimeout)
		if err != nil {
			return len(p), nil
		}
		w.conn = conn
	}

	if _, err := w.conn.Write(p); err != nil {
		w.conn.Close()
		w.conn = nil
	}

	return len(p), nil
}

func (w *NetWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	w.conn = nil
	return err
}
