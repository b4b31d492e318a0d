// Implements the WaitQueue, which holds all customers waiting for the server.
// Customers are enqueued on arrival when the server is busy.

package sim

import (
	"fmt"
	"strings"
)

// WaitQueue represents a FIFO line of customers waiting for service.
// Insertion order is service order: there is no reordering or skipping.
type WaitQueue struct {
	queue []*Customer
}

// Enqueue adds a customer to the back of the line.
func (wq *WaitQueue) Enqueue(c *Customer) {
	if c == nil {
		panic("Enqueue: customer must not be nil")
	}
	wq.queue = append(wq.queue, c)
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range wq.queue {
		sb.WriteString(fmt.Sprint(val.ID))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of customers in line.
func (wq *WaitQueue) Len() int {
	return len(wq.queue)
}

// Peek returns the customer at the front of the line without removing it.
// Returns nil if the line is empty.
func (wq *WaitQueue) Peek() *Customer {
	if len(wq.queue) == 0 {
		return nil
	}
	return wq.queue[0]
}

// Items returns the line contents for iteration, head first.
// The returned slice is the queue's internal storage: callers MUST NOT modify it.
func (wq *WaitQueue) Items() []*Customer {
	return wq.queue
}

// Dequeue removes the customer at the front of the line.
// Returns nil if the line is empty.
func (wq *WaitQueue) Dequeue() *Customer {
	if len(wq.queue) == 0 {
		return nil
	}
	head := wq.queue[0]
	wq.queue[0] = nil
	wq.queue = wq.queue[1:]
	if len(wq.queue) == 0 {
		// release the backing array once drained
		wq.queue = nil
	}
	return head
}
